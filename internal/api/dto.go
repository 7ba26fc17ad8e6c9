package api

import (
	"time"

	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/notification"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status               string      `json:"status"`
	Version              string      `json:"version"`
	BuildDate            string      `json:"build_date"`
	Uptime               string      `json:"uptime"`
	Timestamp            time.Time   `json:"timestamp"`
	Database             string      `json:"database"`
	DatabaseError        string      `json:"database_error,omitempty"`
	PendingNotifications int64       `json:"pending_notifications"`
	System               *SystemInfo `json:"system,omitempty"`
}

// RecipientDTO is the wire form of a directory entry
type RecipientDTO struct {
	ChatID     string `json:"chat_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
	Active     *bool  `json:"active,omitempty"` // defaults to true on create
}

func recipientFromModel(r *datastore.Recipient) RecipientDTO {
	active := r.Active
	return RecipientDTO{
		ChatID:     r.ChatID,
		Name:       r.Name,
		Email:      r.Email,
		Department: r.Department,
		Active:     &active,
	}
}

func (d *RecipientDTO) toModel() *datastore.Recipient {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return &datastore.Recipient{
		ChatID:     d.ChatID,
		Name:       d.Name,
		Email:      d.Email,
		Department: d.Department,
		Active:     active,
	}
}

// BroadcastRequest is the body of POST /broadcast
type BroadcastRequest struct {
	Kind       string `json:"kind"`
	Text       string `json:"text,omitempty"`
	Department string `json:"department,omitempty"`
	Admin      string `json:"admin,omitempty"`
}

// BroadcastResponse summarises a completed broadcast
type BroadcastResponse struct {
	BatchID     string  `json:"batch_id"`
	Kind        string  `json:"kind"`
	Department  string  `json:"department,omitempty"`
	Sent        int     `json:"sent"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
}

func broadcastResponse(r *notification.BroadcastResult) BroadcastResponse {
	return BroadcastResponse{
		BatchID:     r.BatchID,
		Kind:        string(r.Kind),
		Department:  r.Department,
		Sent:        r.Sent,
		Succeeded:   r.Succeeded,
		Failed:      r.Failed,
		SuccessRate: r.SuccessRate(),
	}
}

// DeliveryDTO is one row of delivery history
type DeliveryDTO struct {
	BatchID     string    `json:"batch_id"`
	Kind        string    `json:"kind"`
	Department  string    `json:"department,omitempty"`
	TriggeredBy string    `json:"triggered_by,omitempty"`
	Sent        int       `json:"sent"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	CreatedAt   time.Time `json:"created_at"`
}

// OutcomeDTO is one recorded send attempt
type OutcomeDTO struct {
	ViolationID *uint     `json:"violation_id,omitempty"`
	Recipient   string    `json:"recipient"`
	Role        string    `json:"role"`
	Sender      string    `json:"sender"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
}
