package notification

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/observability/metrics"
)

// DefaultBroadcastDelay is the pause between broadcast sends.
const DefaultBroadcastDelay = 100 * time.Millisecond

// BroadcastRequest describes one admin broadcast.
type BroadcastRequest struct {
	Kind       BroadcastKind
	Text       string // used when Kind is KindText
	Department string // empty targets every active recipient
	Admin      string // who triggered it
}

// BroadcastResult is returned when every recipient has been attempted.
type BroadcastResult struct {
	BatchID    string
	Kind       BroadcastKind
	Department string
	Sent       int
	Succeeded  int
	Failed     int
	Outcomes   []Outcome
}

// SuccessRate is Succeeded/Sent, or 0 for an empty broadcast.
func (r *BroadcastResult) SuccessRate() float64 {
	if r.Sent == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Sent)
}

// Broadcaster sends ad-hoc safety messages to recipients one at a time.
type Broadcaster struct {
	store     Store
	sender    Sender
	directory *Directory
	limiter   *rate.Limiter
	metrics   *metrics.NotificationMetrics
	now       func() time.Time
	log       logger.Logger
}

// NewBroadcaster creates a broadcaster pacing sends by delay.
func NewBroadcaster(store Store, sender Sender, directory *Directory, delay time.Duration, m *metrics.NotificationMetrics) *Broadcaster {
	if directory == nil {
		directory = NewDirectory(store, 0, m)
	}
	return &Broadcaster{
		store:     store,
		sender:    sender,
		directory: directory,
		limiter:   newPacer(delay),
		metrics:   m,
		now:       time.Now,
		log:       GetLogger().Module("broadcast"),
	}
}

// Broadcast renders the message, sends it to every targeted recipient and
// appends one delivery history entry. If ctx is cancelled part way, the
// remaining recipients are recorded as failed.
func (b *Broadcaster) Broadcast(ctx context.Context, req BroadcastRequest) (*BroadcastResult, error) {
	text, err := RenderBroadcast(req.Kind, req.Text, b.now())
	if err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategoryValidation).
			Context("kind", string(req.Kind)).
			Build()
	}

	department := strings.TrimSpace(req.Department)
	recipients, err := b.directory.Recipients(ctx, department)
	if err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategoryBroadcast).
			Context("department", department).
			Build()
	}

	result := &BroadcastResult{
		BatchID:    uuid.NewString(),
		Kind:       req.Kind,
		Department: department,
		Sent:       len(recipients),
		Outcomes:   make([]Outcome, 0, len(recipients)),
	}

	for i := range recipients {
		o := Outcome{Recipient: recipients[i].ChatID, Role: RoleBroadcast, At: b.now()}
		if err := b.limiter.Wait(ctx); err != nil {
			o.Err = err
		} else {
			start := time.Now()
			o.Err = safeSend(ctx, b.sender, o.Recipient, text)
			o.Success = o.Err == nil
			if b.metrics != nil {
				b.metrics.RecordDelivery(b.sender.Name(), string(RoleBroadcast), o.Success, time.Since(start).Seconds())
			}
		}
		if o.Success {
			result.Succeeded++
		} else {
			result.Failed++
			b.log.Warn("broadcast delivery failed", logger.String("batch_id", result.BatchID), logger.Error(o.Err))
		}
		result.Outcomes = append(result.Outcomes, o)
	}

	b.persist(context.WithoutCancel(ctx), req, text, result)
	if b.metrics != nil {
		b.metrics.RecordBroadcast(string(req.Kind))
	}

	b.log.Info("broadcast completed",
		logger.String("batch_id", result.BatchID),
		logger.String("kind", string(req.Kind)),
		logger.String("department", department),
		logger.Int("sent", result.Sent),
		logger.Int("succeeded", result.Succeeded),
		logger.Int("failed", result.Failed))
	return result, nil
}

func (b *Broadcaster) persist(ctx context.Context, req BroadcastRequest, text string, result *BroadcastResult) {
	if err := b.store.SaveOutcomes(ctx, toRows(result.BatchID, b.sender.Name(), result.Outcomes)); err != nil {
		b.log.Error("failed to save broadcast outcomes", logger.Error(err))
	}
	history := &datastore.DeliveryHistory{
		BatchID:     result.BatchID,
		Kind:        string(req.Kind),
		Department:  result.Department,
		TriggeredBy: req.Admin,
		Message:     text,
		Sent:        result.Sent,
		Succeeded:   result.Succeeded,
		Failed:      result.Failed,
	}
	if err := b.store.SaveDeliveryHistory(ctx, history); err != nil {
		b.log.Error("failed to save broadcast history", logger.Error(err))
	}
}
