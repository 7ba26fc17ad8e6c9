// Package violation turns per-person compliance observations into violation
// records and keeps the per-run session statistics.
package violation

import (
	"time"

	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/detection"
)

// Record is one non-compliant person in one evaluated frame. Only Notified
// changes after creation, and only once.
type Record struct {
	ID         uint
	Timestamp  time.Time
	WorkerID   *string // nil when the person could not be identified
	Missing    compliance.EquipmentSet
	Location   string
	CameraID   string
	Frame      int64
	Confidence float64 // confidence of the person detection
	Box        detection.BBox
	Notified   bool
	CreatedAt  time.Time
}

// ViolationTypes lists the report keys for the record, e.g. ["no_helmet", "no_vest"]
func (r *Record) ViolationTypes() []string {
	items := r.Missing.Items()
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.ViolationType()
	}
	return out
}

// Worker returns the worker id or "" when unbound
func (r *Record) Worker() string {
	if r.WorkerID == nil {
		return ""
	}
	return *r.WorkerID
}
