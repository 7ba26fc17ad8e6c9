package notification

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/observability/metrics"
	"github.com/tphakala/ppewatch/internal/violation"
)

// DefaultPollInterval is the dispatcher tick when none is configured.
const DefaultPollInterval = 10 * time.Second

// HistoryKindViolations is the delivery history kind of dispatch batches.
const HistoryKindViolations = "violations"

// ErrNoAdminRecipients is returned when the dispatcher has no administrator
// to notify. Nothing is fetched, so no record is marked notified.
var ErrNoAdminRecipients = errors.NewStd("no admin recipients configured")

// State of the dispatcher loop
type State int32

const (
	StateIdle State = iota
	StateDispatching
)

func (s State) String() string {
	if s == StateDispatching {
		return "dispatching"
	}
	return "idle"
}

// Dispatcher polls the store for unnotified violations and fans each one out
// to the bound worker and every administrator. A failed or panicking send is
// recorded and the batch continues. Nothing is retried.
type Dispatcher struct {
	store      Store
	sender     Sender
	directory  *Directory
	admins     []string
	interval   time.Duration
	batchLimit int
	limiter    *rate.Limiter
	metrics    *metrics.NotificationMetrics
	now        func() time.Time
	newBatchID func() string
	log        logger.Logger

	state atomic.Int32
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithAdmins sets the administrator recipients notified of every violation.
func WithAdmins(admins ...string) DispatcherOption {
	return func(d *Dispatcher) { d.admins = append([]string(nil), admins...) }
}

// WithPollInterval overrides the tick interval.
func WithPollInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithBatchLimit caps records per cycle; 0 means unlimited.
func WithBatchLimit(limit int) DispatcherOption {
	return func(d *Dispatcher) { d.batchLimit = limit }
}

// WithSendDelay paces consecutive sends.
func WithSendDelay(delay time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.limiter = newPacer(delay) }
}

// WithDirectory resolves worker names for messages.
func WithDirectory(dir *Directory) DispatcherOption {
	return func(d *Dispatcher) { d.directory = dir }
}

// WithMetrics records delivery metrics.
func WithMetrics(m *metrics.NotificationMetrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates an idle dispatcher.
func NewDispatcher(store Store, sender Sender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:      store,
		sender:     sender,
		interval:   DefaultPollInterval,
		limiter:    newPacer(0),
		now:        time.Now,
		newBatchID: uuid.NewString,
		log:        GetLogger().Module("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State reports whether a batch is being sent.
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Run ticks until ctx is cancelled. A batch that has been fetched is always
// sent to completion, even if ctx is cancelled meanwhile.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.checkAdmins(); err != nil {
		return err
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.log.Info("dispatcher started",
		logger.Duration("interval", d.interval),
		logger.Int("admins", len(d.admins)),
		logger.String("sender", d.sender.Name()))

	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped")
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			if _, err := d.DispatchOnce(ctx); err != nil {
				// store faults never stop the loop
				d.log.Error("dispatch cycle failed", logger.Error(err))
			}
		}
	}
}

// DispatchOnce fetches one batch and attempts every delivery for it.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (*BatchResult, error) {
	if err := d.checkAdmins(); err != nil {
		d.recordCycle("error")
		return nil, err
	}

	records, err := d.store.FetchUnnotified(ctx, d.batchLimit)
	if err != nil {
		d.recordCycle("error")
		return nil, err
	}
	result := &BatchResult{BatchID: d.newBatchID(), Records: len(records)}
	if len(records) == 0 {
		d.recordCycle("empty")
		return result, nil
	}

	d.setState(StateDispatching)
	defer d.setState(StateIdle)

	// records are already flipped; finish them regardless of cancellation
	sendCtx := context.WithoutCancel(ctx)
	for i := range records {
		result.Outcomes = append(result.Outcomes, d.dispatchRecord(sendCtx, &records[i])...)
	}

	d.persist(sendCtx, result)
	d.recordCycle("dispatched")
	d.log.Info("dispatch batch completed",
		logger.String("batch_id", result.BatchID),
		logger.Int("records", result.Records),
		logger.Int("succeeded", result.Succeeded()),
		logger.Int("failed", result.Failed()))
	return result, nil
}

// checkAdmins refuses to run without administrators, since every record
// must get at least one delivery attempt once it is flipped.
func (d *Dispatcher) checkAdmins() error {
	if len(d.admins) > 0 {
		return nil
	}
	return errors.New(ErrNoAdminRecipients).
		Component("notification").
		Category(errors.CategoryConfiguration).
		Build()
}

func (d *Dispatcher) dispatchRecord(ctx context.Context, r *violation.Record) []Outcome {
	outcomes := make([]Outcome, 0, len(d.admins)+1)

	name := ""
	if d.directory != nil {
		name = d.directory.Name(ctx, r.Worker())
	}
	if name == "" {
		name = r.Worker()
	}

	if r.WorkerID != nil && *r.WorkerID != "" {
		text, err := RenderWorkerMessage(r, name)
		outcomes = append(outcomes, d.attempt(ctx, r.ID, *r.WorkerID, RoleWorker, text, err))
	}

	adminText, renderErr := RenderAdminMessage(r, name)
	for _, admin := range d.admins {
		outcomes = append(outcomes, d.attempt(ctx, r.ID, admin, RoleAdmin, adminText, renderErr))
	}
	return outcomes
}

// attempt makes one paced, panic-safe send.
func (d *Dispatcher) attempt(ctx context.Context, violationID uint, recipient string, role Role, text string, renderErr error) Outcome {
	o := Outcome{ViolationID: violationID, Recipient: recipient, Role: role, At: d.now()}
	if renderErr != nil {
		o.Err = fmt.Errorf("render message: %w", renderErr)
		return o
	}

	_ = d.limiter.Wait(ctx)
	start := time.Now()
	o.Err = safeSend(ctx, d.sender, recipient, text)
	o.Success = o.Err == nil

	if d.metrics != nil {
		d.metrics.RecordDelivery(d.sender.Name(), string(role), o.Success, time.Since(start).Seconds())
	}
	if o.Err != nil {
		d.log.Warn("delivery failed",
			logger.Uint64("violation_id", uint64(violationID)),
			logger.String("role", string(role)),
			logger.Error(o.Err))
	}
	return o
}

// persist stores outcomes and the batch history entry. Faults are logged.
func (d *Dispatcher) persist(ctx context.Context, result *BatchResult) {
	if err := d.store.SaveOutcomes(ctx, toRows(result.BatchID, d.sender.Name(), result.Outcomes)); err != nil {
		d.log.Error("failed to save delivery outcomes", logger.String("batch_id", result.BatchID), logger.Error(err))
	}
	history := &datastore.DeliveryHistory{
		BatchID:     result.BatchID,
		Kind:        HistoryKindViolations,
		TriggeredBy: "dispatcher",
		Sent:        len(result.Outcomes),
		Succeeded:   result.Succeeded(),
		Failed:      result.Failed(),
	}
	if err := d.store.SaveDeliveryHistory(ctx, history); err != nil {
		d.log.Error("failed to save delivery history", logger.String("batch_id", result.BatchID), logger.Error(err))
	}
}

func (d *Dispatcher) setState(s State) {
	d.state.Store(int32(s))
	if d.metrics != nil {
		d.metrics.SetDispatching(s == StateDispatching)
	}
}

func (d *Dispatcher) recordCycle(status string) {
	if d.metrics != nil {
		d.metrics.RecordDispatchCycle(status)
	}
}

// safeSend converts a sender panic into an error.
func safeSend(ctx context.Context, s Sender, recipient, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return s.Send(ctx, recipient, text)
}

// newPacer allows one send per delay; delay <= 0 disables pacing.
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
