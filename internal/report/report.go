// Package report aggregates stored violations over a trailing window.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/errors"
)

// DefaultWindowDays is the report window when none is given.
const DefaultWindowDays = 7

// Store is the read side used by the generator. Reads take no locks.
type Store interface {
	ViolationsInWindow(ctx context.Context, days int, now time.Time) ([]datastore.ViolationGroup, error)
	DeliveryTotalsSince(ctx context.Context, since time.Time) ([]datastore.KindTotal, error)
	RecipientCountsByDepartment(ctx context.Context) ([]datastore.DepartmentCount, error)
}

// Report is the grouped view of one window.
type Report struct {
	WindowDays  int                        `json:"window_days"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Groups      []datastore.ViolationGroup `json:"groups"`
	ByType      map[string]int64           `json:"by_type"`
	Total       int64                      `json:"total"` // sum of group counts; a multi-item record counts once per item
}

// DeliveryStats summarises delivery history and the recipient directory.
type DeliveryStats struct {
	WindowDays  int                         `json:"window_days"`
	Kinds       []datastore.KindTotal       `json:"kinds"`
	Departments []datastore.DepartmentCount `json:"departments"`
}

// Generator builds reports from the store.
type Generator struct {
	store Store
	now   func() time.Time
}

// NewGenerator creates a report generator.
func NewGenerator(store Store) *Generator {
	return &Generator{store: store, now: time.Now}
}

// Report groups violations from the last days by (type, location).
func (g *Generator) Report(ctx context.Context, days int) (*Report, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	now := g.now()
	groups, err := g.store.ViolationsInWindow(ctx, days, now)
	if err != nil {
		return nil, errors.New(err).
			Component("report").
			Category(errors.CategoryReport).
			Context("window_days", days).
			Build()
	}

	r := &Report{
		WindowDays:  days,
		GeneratedAt: now,
		Groups:      groups,
		ByType:      make(map[string]int64),
	}
	for _, grp := range groups {
		r.ByType[grp.Type] += grp.Count
		r.Total += grp.Count
	}
	return r, nil
}

// DeliveryStats reports delivery totals for the last days and the current
// recipient counts per department.
func (g *Generator) DeliveryStats(ctx context.Context, days int) (*DeliveryStats, error) {
	if days <= 0 {
		days = DefaultWindowDays
	}
	since := g.now().Add(-time.Duration(days) * 24 * time.Hour)
	kinds, err := g.store.DeliveryTotalsSince(ctx, since)
	if err != nil {
		return nil, errors.New(err).Component("report").Category(errors.CategoryReport).Build()
	}
	departments, err := g.store.RecipientCountsByDepartment(ctx)
	if err != nil {
		return nil, errors.New(err).Component("report").Category(errors.CategoryReport).Build()
	}
	return &DeliveryStats{WindowDays: days, Kinds: kinds, Departments: departments}, nil
}

// WriteText renders the report as an aligned table.
func (r *Report) WriteText(w io.Writer) error {
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "PPE violations, last %d days (generated %s)\n\n",
		r.WindowDays, r.GeneratedAt.Local().Format("2006-01-02 15:04")); err != nil {
		return err
	}
	if len(r.Groups) == 0 {
		_, err := fmt.Fprintln(w, "No violations recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TYPE\tLOCATION\tCOUNT\tAVG CONF\tFIRST\tLAST")
	for _, g := range r.Groups {
		_, _ = p.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%s\t%s\n",
			g.Type, g.Location, g.Count, g.AvgConfidence,
			g.FirstSeen.Local().Format("01-02 15:04"), g.LastSeen.Local().Format("01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := p.Fprintf(w, "\nTotal: %d\n", r.Total)
	return err
}

// WriteJSON renders the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText renders delivery statistics.
func (s *DeliveryStats) WriteText(w io.Writer) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = p.Fprintf(tw, "Deliveries, last %d days\n\nKIND\tBATCHES\tSENT\tOK\tFAILED\n", s.WindowDays)
	for _, k := range s.Kinds {
		_, _ = p.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", k.Kind, k.Batches, k.Sent, k.Succeeded, k.Failed)
	}
	_, _ = fmt.Fprint(tw, "\nDEPARTMENT\tRECIPIENTS\n")
	for _, d := range s.Departments {
		dept := d.Department
		if dept == "" {
			dept = "(none)"
		}
		_, _ = p.Fprintf(tw, "%s\t%d\n", dept, d.Count)
	}
	return tw.Flush()
}
