package datastore

import (
	"time"

	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/violation"
)

// Violation is the persisted form of violation.Record. The missing set is
// stored both as text and as one flag per equipment so reports can group
// by violation type without parsing.
type Violation struct {
	ID             uint      `gorm:"primaryKey"`
	OccurredAt     time.Time `gorm:"index;not null"`
	OccurredUnixMs int64     `gorm:"index;not null"` // OccurredAt in unix millis, aggregated portably
	WorkerID       *string   `gorm:"size:64;index"`
	Missing        string    `gorm:"size:32;not null"` // e.g. "helmet,vest"
	MissingHelmet  bool      `gorm:"not null"`
	MissingVest    bool      `gorm:"not null"`
	MissingGoggles bool      `gorm:"not null"`
	Location       string    `gorm:"size:128;index"`
	CameraID       string    `gorm:"size:64"`
	Frame          int64
	Confidence     float64
	BoxX1          float64
	BoxY1          float64
	BoxX2          float64
	BoxY2          float64
	Notified       bool `gorm:"index;not null"`
	CreatedAt      time.Time
}

// DeliveryOutcome is one send attempt made by the dispatcher or a broadcast.
type DeliveryOutcome struct {
	ID          uint   `gorm:"primaryKey"`
	BatchID     string `gorm:"size:36;index;not null"`
	ViolationID *uint  `gorm:"index"` // nil for broadcasts
	Recipient   string `gorm:"size:128;not null"`
	Role        string `gorm:"size:16;not null"` // worker, admin, broadcast
	Sender      string `gorm:"size:32"`
	Success     bool
	Error       string `gorm:"size:512"`
	AttemptedAt time.Time `gorm:"index"`
}

// DeliveryHistory summarises one dispatch batch or broadcast.
type DeliveryHistory struct {
	ID          uint   `gorm:"primaryKey"`
	BatchID     string `gorm:"size:36;uniqueIndex;not null"`
	Kind        string `gorm:"size:32;index;not null"` // violations, helmet, vest, goggles, gloves, general
	Department  string `gorm:"size:64"`                // broadcast scope, empty for everyone
	TriggeredBy string `gorm:"size:64"`
	Message     string `gorm:"type:text"`
	Sent        int
	Succeeded   int
	Failed      int
	CreatedAt   time.Time `gorm:"index"`
}

// Recipient is a notification recipient from the worker directory.
type Recipient struct {
	ID         uint   `gorm:"primaryKey"`
	ChatID     string `gorm:"size:128;uniqueIndex;not null"`
	Name       string `gorm:"size:128"`
	Email      string `gorm:"size:128"`
	Department string `gorm:"size:64;index"`
	Active     bool   `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ViolationGroup is one (violation type, location) row of a report window.
type ViolationGroup struct {
	Type          string    `json:"type"`
	Location      string    `json:"location"`
	Count         int64     `json:"count"`
	AvgConfidence float64   `json:"avg_confidence"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
}

// KindTotal aggregates delivery history rows per kind.
type KindTotal struct {
	Kind      string `json:"kind"`
	Batches   int64  `json:"batches"`
	Sent      int64  `json:"sent"`
	Succeeded int64  `json:"succeeded"`
	Failed    int64  `json:"failed"`
}

// DepartmentCount is the number of active recipients in a department.
type DepartmentCount struct {
	Department string `json:"department"`
	Count      int64  `json:"count"`
}

// FromRecord converts a domain record to its row form.
func FromRecord(r *violation.Record) Violation {
	ts := r.Timestamp.UTC()
	return Violation{
		ID:             r.ID,
		OccurredAt:     ts,
		OccurredUnixMs: ts.UnixMilli(),
		WorkerID:       r.WorkerID,
		Missing:        r.Missing.String(),
		MissingHelmet:  r.Missing.Has(detection.Helmet),
		MissingVest:    r.Missing.Has(detection.Vest),
		MissingGoggles: r.Missing.Has(detection.Goggles),
		Location:       r.Location,
		CameraID:       r.CameraID,
		Frame:          r.Frame,
		Confidence:     r.Confidence,
		BoxX1:          r.Box.X1,
		BoxY1:          r.Box.Y1,
		BoxX2:          r.Box.X2,
		BoxY2:          r.Box.Y2,
		Notified:       r.Notified,
		CreatedAt:      r.CreatedAt,
	}
}

// ToRecord converts a row back to a domain record.
func (v *Violation) ToRecord() violation.Record {
	return violation.Record{
		ID:         v.ID,
		Timestamp:  time.UnixMilli(v.OccurredUnixMs).UTC(),
		WorkerID:   v.WorkerID,
		Missing:    compliance.ParseEquipmentSet(v.Missing),
		Location:   v.Location,
		CameraID:   v.CameraID,
		Frame:      v.Frame,
		Confidence: v.Confidence,
		Box:        detection.BBox{X1: v.BoxX1, Y1: v.BoxY1, X2: v.BoxX2, Y2: v.BoxY2},
		Notified:   v.Notified,
		CreatedAt:  v.CreatedAt,
	}
}
