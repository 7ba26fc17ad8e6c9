package mqtt

import (
	"time"

	"github.com/tphakala/ppewatch/internal/violation"
)

// ViolationEvent is the JSON payload published for each stored violation.
type ViolationEvent struct {
	ID         uint       `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	WorkerID   string     `json:"worker_id,omitempty"`
	Missing    []string   `json:"missing"`
	Location   string     `json:"location"`
	CameraID   string     `json:"camera_id,omitempty"`
	Frame      int64      `json:"frame"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// NewViolationEvent converts a stored record into its event form.
func NewViolationEvent(r *violation.Record) ViolationEvent {
	return ViolationEvent{
		ID:         r.ID,
		Timestamp:  r.Timestamp.UTC(),
		WorkerID:   r.Worker(),
		Missing:    r.ViolationTypes(),
		Location:   r.Location,
		CameraID:   r.CameraID,
		Frame:      r.Frame,
		Confidence: r.Confidence,
		BBox:       [4]float64{r.Box.X1, r.Box.Y1, r.Box.X2, r.Box.Y2},
	}
}
