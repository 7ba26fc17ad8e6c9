package detection

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/tphakala/ppewatch/internal/conf"
)

// Rule maps any of its patterns to one category
type Rule struct {
	Category Category
	Patterns []string
}

// Classifier maps raw detector labels to categories by ordered rules.
// The first rule with a pattern contained in the label wins, so rule order is
// part of the contract: with the default order "no-helmet" contains "helmet"
// and classifies as CategoryHelmetPresent.
type Classifier struct {
	rules []Rule
}

// ruleOrder is the fixed priority in which rules are consulted
var ruleOrder = []Category{
	CategoryHelmetPresent,
	CategoryPerson,
	CategoryHelmetAbsent,
	CategoryVestPresent,
	CategoryVestAbsent,
	CategoryGogglesPresent,
	CategoryGogglesAbsent,
}

// NewClassifier builds a classifier from configured synonym lists. The rule
// order is fixed regardless of configuration.
func NewClassifier(s *conf.SynonymSettings) *Classifier {
	byCategory := map[Category][]string{
		CategoryHelmetPresent:  s.Helmet,
		CategoryPerson:         s.Person,
		CategoryHelmetAbsent:   s.NoHelmet,
		CategoryVestPresent:    s.Vest,
		CategoryVestAbsent:     s.NoVest,
		CategoryGogglesPresent: s.Goggles,
		CategoryGogglesAbsent:  s.NoGoggles,
	}

	fold := cases.Fold()
	rules := make([]Rule, 0, len(ruleOrder))
	for _, cat := range ruleOrder {
		patterns := make([]string, 0, len(byCategory[cat]))
		for _, p := range byCategory[cat] {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, fold.String(p))
			}
		}
		rules = append(rules, Rule{Category: cat, Patterns: patterns})
	}
	return &Classifier{rules: rules}
}

// DefaultClassifier uses the built-in synonym lists
func DefaultClassifier() *Classifier {
	return NewClassifier(&conf.SynonymSettings{
		Helmet:    conf.DefaultHelmetLabels,
		Person:    conf.DefaultPersonLabels,
		NoHelmet:  conf.DefaultNoHelmetLabels,
		Vest:      conf.DefaultVestLabels,
		NoVest:    conf.DefaultNoVestLabels,
		Goggles:   conf.DefaultGogglesLabels,
		NoGoggles: conf.DefaultNoGogglesLabels,
	})
}

// Classify returns the category for a raw label. Unmatched labels return
// (CategoryNone, false) and are dropped by callers without logging.
func (c *Classifier) Classify(label string) (Category, bool) {
	// cases.Caser is stateful, so one is created per call
	folded := cases.Fold().String(label)
	for _, rule := range c.rules {
		for _, p := range rule.Patterns {
			if strings.Contains(folded, p) {
				return rule.Category, true
			}
		}
	}
	return CategoryNone, false
}

// Rules returns a copy of the ordered rule list
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Category: r.Category, Patterns: append([]string(nil), r.Patterns...)}
	}
	return out
}
