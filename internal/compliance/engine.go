// Package compliance decides, for every person in a frame, which protective
// equipment is missing. Each equipment kind is evaluated independently by
// looking for a present-equipment detection inside a search region derived
// from the person's bounding box.
package compliance

import (
	"cmp"
	"slices"

	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/logger"
)

// Assignment selects how equipment items are matched to persons
type Assignment int

const (
	// AssignmentPermissive lets one item satisfy every person whose region contains it
	AssignmentPermissive Assignment = iota
	// AssignmentStrict matches items to persons one-to-one, nearest pairs first
	AssignmentStrict
)

// ParseAssignment maps the configuration value to an Assignment
func ParseAssignment(s string) Assignment {
	if s == "strict" {
		return AssignmentStrict
	}
	return AssignmentPermissive
}

func (a Assignment) String() string {
	if a == AssignmentStrict {
		return "strict"
	}
	return "permissive"
}

// PersonObservation is one person in one frame and the equipment it lacks
type PersonObservation struct {
	Person  detection.Detection
	Missing EquipmentSet
}

// Compliant reports whether nothing is missing
func (o *PersonObservation) Compliant() bool {
	return o.Missing.Empty()
}

// FrameResult is the full evaluation of one frame
type FrameResult struct {
	Observations []PersonObservation
	Seen         map[detection.Equipment]int // present-equipment detections
	Absent       map[detection.Equipment]int // absent-equipment detections, informational
}

// Engine evaluates frames. It holds no per-frame state and is safe for
// concurrent use.
type Engine struct {
	assignment Assignment
	log        logger.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithAssignment sets the matching mode
func WithAssignment(a Assignment) Option {
	return func(e *Engine) { e.assignment = a }
}

// WithLogger overrides the package logger
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an engine, permissive by default
func NewEngine(opts ...Option) *Engine {
	e := &Engine{assignment: AssignmentPermissive, log: GetLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assignment returns the configured matching mode
func (e *Engine) Assignment() Assignment {
	return e.assignment
}

// EvaluateFrame returns one observation per person detection, in input order
func (e *Engine) EvaluateFrame(dets []detection.Detection) []PersonObservation {
	return e.Evaluate(dets).Observations
}

// Evaluate returns observations plus equipment counts for the frame
func (e *Engine) Evaluate(dets []detection.Detection) FrameResult {
	result := FrameResult{
		Seen:   make(map[detection.Equipment]int, len(detection.AllEquipment)),
		Absent: make(map[detection.Equipment]int, len(detection.AllEquipment)),
	}

	var persons []*detection.Detection
	items := make(map[detection.Equipment][]*detection.Detection, len(detection.AllEquipment))

	for i := range dets {
		d := &dets[i]
		if !d.Box.Valid() {
			e.log.Debug("discarding malformed box", logger.String("label", d.Label))
			continue
		}
		if d.Category == detection.CategoryPerson {
			persons = append(persons, d)
			continue
		}
		kind, present, ok := d.Category.Equipment()
		if !ok {
			continue
		}
		if present {
			items[kind] = append(items[kind], d)
			result.Seen[kind]++
		} else {
			result.Absent[kind]++
		}
	}

	if len(persons) == 0 {
		return result
	}

	missing := make([]EquipmentSet, len(persons))
	for _, kind := range detection.AllEquipment {
		var satisfied []bool
		if e.assignment == AssignmentStrict {
			satisfied = matchStrict(persons, items[kind], kind)
		} else {
			satisfied = matchPermissive(persons, items[kind], kind)
		}
		for i, ok := range satisfied {
			if !ok {
				missing[i] = missing[i].With(kind)
			}
		}
	}

	result.Observations = make([]PersonObservation, len(persons))
	for i, p := range persons {
		result.Observations[i] = PersonObservation{Person: *p, Missing: missing[i]}
	}

	e.log.Trace("frame evaluated",
		logger.Int("persons", len(persons)),
		logger.Int("helmets", result.Seen[detection.Helmet]),
		logger.Int("vests", result.Seen[detection.Vest]),
		logger.Int("goggles", result.Seen[detection.Goggles]))

	return result
}

// matchPermissive checks each person independently. Helmets take the nearest
// qualifying candidate; any qualifying vest or goggles suffices.
func matchPermissive(persons, items []*detection.Detection, kind detection.Equipment) []bool {
	satisfied := make([]bool, len(persons))
	for i, p := range persons {
		if kind == detection.Helmet {
			_, satisfied[i] = nearestHelmet(p, items)
			continue
		}
		for _, item := range items {
			if _, ok := qualifies(p, item, kind); ok {
				satisfied[i] = true
				break
			}
		}
	}
	return satisfied
}

type candidatePair struct {
	person, item int
	dist         float64
}

// matchStrict assigns items greedily by ascending center distance so that
// each item satisfies at most one person
func matchStrict(persons, items []*detection.Detection, kind detection.Equipment) []bool {
	var pairs []candidatePair
	for pi, p := range persons {
		for ii, item := range items {
			if dist, ok := qualifies(p, item, kind); ok {
				pairs = append(pairs, candidatePair{person: pi, item: ii, dist: dist})
			}
		}
	}
	slices.SortStableFunc(pairs, func(a, b candidatePair) int {
		return cmp.Or(
			cmp.Compare(a.dist, b.dist),
			cmp.Compare(a.person, b.person),
			cmp.Compare(a.item, b.item),
		)
	})

	satisfied := make([]bool, len(persons))
	used := make([]bool, len(items))
	for _, pair := range pairs {
		if satisfied[pair.person] || used[pair.item] {
			continue
		}
		satisfied[pair.person] = true
		used[pair.item] = true
	}
	return satisfied
}

// nearestHelmet returns the qualifying helmet closest to person's center
func nearestHelmet(person *detection.Detection, helmets []*detection.Detection) (*detection.Detection, bool) {
	var best *detection.Detection
	bestDist := 0.0
	for _, h := range helmets {
		if h.Category != detection.CategoryHelmetPresent {
			continue
		}
		dist, ok := qualifies(person, h, detection.Helmet)
		if !ok {
			continue
		}
		if best == nil || dist < bestDist {
			best, bestDist = h, dist
		}
	}
	return best, best != nil
}
