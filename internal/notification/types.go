// Package notification delivers violation alerts to workers and administrators
// and runs admin safety broadcasts.
package notification

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/violation"
)

// Role of a recipient in one send attempt
type Role string

const (
	RoleWorker    Role = "worker"
	RoleAdmin     Role = "admin"
	RoleBroadcast Role = "broadcast"
)

// Sender delivers one text message to one recipient. Implementations must be
// safe for concurrent use. Send is not idempotent.
type Sender interface {
	Name() string
	Send(ctx context.Context, recipient, text string) error
}

// Store is the subset of the violation store used by this package.
type Store interface {
	FetchUnnotified(ctx context.Context, limit int) ([]violation.Record, error)
	SaveOutcomes(ctx context.Context, outcomes []datastore.DeliveryOutcome) error
	SaveDeliveryHistory(ctx context.Context, history *datastore.DeliveryHistory) error
	GetRecipient(ctx context.Context, chatID string) (*datastore.Recipient, error)
	ListRecipients(ctx context.Context, department string) ([]datastore.Recipient, error)
}

// Outcome is the result of one send attempt.
type Outcome struct {
	ViolationID uint // zero for broadcasts
	Recipient   string
	Role        Role
	Success     bool
	Err         error
	At          time.Time
}

// BatchResult summarises one dispatch cycle.
type BatchResult struct {
	BatchID  string
	Records  int
	Outcomes []Outcome
}

// Succeeded counts successful attempts.
func (b *BatchResult) Succeeded() int {
	n := 0
	for i := range b.Outcomes {
		if b.Outcomes[i].Success {
			n++
		}
	}
	return n
}

// Failed counts failed attempts.
func (b *BatchResult) Failed() int {
	return len(b.Outcomes) - b.Succeeded()
}

// toRows converts outcomes to store rows under one batch id.
func toRows(batchID, sender string, outcomes []Outcome) []datastore.DeliveryOutcome {
	rows := make([]datastore.DeliveryOutcome, len(outcomes))
	for i := range outcomes {
		o := &outcomes[i]
		rows[i] = datastore.DeliveryOutcome{
			BatchID:     batchID,
			Recipient:   o.Recipient,
			Role:        string(o.Role),
			Sender:      sender,
			Success:     o.Success,
			AttemptedAt: o.At,
		}
		if o.ViolationID != 0 {
			id := o.ViolationID
			rows[i].ViolationID = &id
		}
		if o.Err != nil {
			rows[i].Error = truncate(o.Err.Error(), 512)
		}
	}
	return rows
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
