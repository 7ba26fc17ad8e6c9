// Package pipeline runs detector frames through classification, compliance
// evaluation and violation aggregation, and stores the resulting records.
package pipeline

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/errors"
	"github.com/tphakala/ppewatch/internal/logger"
	"github.com/tphakala/ppewatch/internal/observability/metrics"
	"github.com/tphakala/ppewatch/internal/violation"
)

// Defaults used when settings leave a value unset
const (
	DefaultWorkers     = 4
	DefaultStatusEvery = 30
)

// Store persists violation records
type Store interface {
	Append(ctx context.Context, records []violation.Record) error
}

// EventPublisher receives stored records, e.g. the MQTT publisher
type EventPublisher interface {
	PublishViolations(ctx context.Context, records []violation.Record) int
}

// Processor evaluates frames from a Source on a bounded worker pool.
type Processor struct {
	classifier  *detection.Classifier
	engine      *compliance.Engine
	aggregator  *violation.Aggregator
	store       Store
	publisher   EventPublisher
	metrics     *metrics.PipelineMetrics
	stats       *violation.SessionStats
	threshold   float64
	workers     int
	stride      int
	statusEvery int
	location    string
	cameraID    string
	evaluated   atomic.Int64
	log         logger.Logger
}

// Option configures a Processor
type Option func(*Processor)

// WithPublisher forwards stored records to p
func WithPublisher(p EventPublisher) Option {
	return func(proc *Processor) { proc.publisher = p }
}

// WithMetrics records frame and violation counters
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(proc *Processor) { proc.metrics = m }
}

// WithIdentityResolver binds persons to worker ids
func WithIdentityResolver(r violation.IdentityResolver) Option {
	return func(proc *Processor) { proc.aggregator = violation.NewAggregator(r) }
}

// WithStats shares a session accumulator with the caller
func WithStats(s *violation.SessionStats) Option {
	return func(proc *Processor) {
		if s != nil {
			proc.stats = s
		}
	}
}

// New builds a processor from detection and pipeline settings.
func New(settings *conf.Settings, store Store, opts ...Option) *Processor {
	p := &Processor{
		classifier:  detection.NewClassifier(&settings.Detection.Synonyms),
		engine:      compliance.NewEngine(compliance.WithAssignment(compliance.ParseAssignment(settings.Detection.Assignment))),
		aggregator:  violation.NewAggregator(nil),
		store:       store,
		stats:       violation.NewSessionStats(),
		threshold:   settings.Detection.Threshold,
		workers:     settings.Pipeline.Workers,
		stride:      settings.Pipeline.FrameStride,
		statusEvery: settings.Pipeline.StatusEvery,
		location:    settings.Pipeline.Location,
		cameraID:    settings.Pipeline.CameraID,
		log:         GetLogger(),
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	if p.stride <= 0 {
		p.stride = 1
	}
	if p.statusEvery <= 0 {
		p.statusEvery = DefaultStatusEvery
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns the session accumulator
func (p *Processor) Stats() *violation.SessionStats {
	return p.stats
}

// Run reads frames until the source is exhausted or ctx is cancelled. Frames
// already handed to a worker are finished before Run returns. Only a source
// read failure is returned; store and geometry faults are logged.
func (p *Processor) Run(ctx context.Context, source detection.Source) error {
	p.log.Info("pipeline started",
		logger.Int("workers", p.workers),
		logger.Int("frame_stride", p.stride),
		logger.String("assignment", p.engine.Assignment().String()),
		logger.Float64("threshold", p.threshold))

	g := new(errgroup.Group)
	g.SetLimit(p.workers)

	var (
		read    int64
		readErr error
	)
	for {
		frame, err := source.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				readErr = err
			}
			break
		}
		read++
		if (read-1)%int64(p.stride) != 0 {
			continue
		}
		g.Go(func() error {
			p.processFrame(ctx, frame)
			return nil
		})
	}
	_ = g.Wait()

	p.logSummary(read)
	if readErr != nil {
		return errors.New(readErr).
			Component("pipeline").
			Category(errors.CategoryFileIO).
			Context("frames_read", read).
			Build()
	}
	return nil
}

// ProcessFrame evaluates a single frame synchronously and returns the
// records it stored.
func (p *Processor) ProcessFrame(ctx context.Context, frame *detection.Frame) []violation.Record {
	return p.processFrame(ctx, frame)
}

func (p *Processor) processFrame(ctx context.Context, frame *detection.Frame) []violation.Record {
	start := time.Now()

	dets, discarded := detection.Interpret(p.classifier, frame.Detections, p.threshold, p.log)
	result := p.engine.Evaluate(dets)
	p.stats.ObserveFrame(&result, discarded+frame.Skipped)

	fc := violation.FrameContext{
		Location: firstNonEmpty(frame.Location, p.location),
		CameraID: firstNonEmpty(frame.CameraID, p.cameraID),
		Frame:    frame.Number,
		Time:     frame.Time,
	}
	records := p.aggregator.Aggregate(ctx, result.Observations, fc, p.stats)

	if len(records) > 0 {
		// Evaluated violations are stored even when shutdown has begun.
		storeCtx := context.WithoutCancel(ctx)
		if err := p.store.Append(storeCtx, records); err != nil {
			p.log.Error("failed to store violations, frame records dropped",
				logger.Int64("frame", frame.Number),
				logger.Int("records", len(records)),
				logger.Error(err))
			p.recordError("append")
			records = nil
		} else {
			p.stats.RecordStored(len(records))
			if p.publisher != nil {
				p.publisher.PublishViolations(storeCtx, records)
			}
		}
	}

	p.recordFrame(&result, records, discarded, time.Since(start))
	if n := p.evaluated.Add(1); n%int64(p.statusEvery) == 0 {
		p.logStatus(n)
	}
	return records
}

func (p *Processor) recordFrame(result *compliance.FrameResult, stored []violation.Record, discarded int, elapsed time.Duration) {
	if p.metrics == nil {
		return
	}
	violating := 0
	for i := range result.Observations {
		if !result.Observations[i].Compliant() {
			violating++
		}
	}
	p.metrics.RecordFrame(len(result.Observations)-violating, violating, discarded, elapsed.Seconds())
	for i := range stored {
		for _, t := range stored[i].ViolationTypes() {
			p.metrics.RecordViolation(t)
		}
	}
}

func (p *Processor) recordError(operation string) {
	if p.metrics != nil {
		p.metrics.RecordError(operation, "store")
	}
}

func (p *Processor) logStatus(evaluated int64) {
	s := p.stats.Snapshot()
	p.log.Info("pipeline status",
		logger.Int64("frames", evaluated),
		logger.Int64("persons", s.Persons),
		logger.Int64("compliant", s.Compliant),
		logger.Int64("violating", s.Violating),
		logger.Int64("stored", s.Violations),
		logger.Float64("compliance_rate", s.ComplianceRate()))
}

func (p *Processor) logSummary(read int64) {
	s := p.stats.Snapshot()
	p.log.Info("session summary",
		logger.Int64("frames_read", read),
		logger.Int64("frames_evaluated", s.Frames),
		logger.Int64("persons", s.Persons),
		logger.Int64("compliant", s.Compliant),
		logger.Int64("violating", s.Violating),
		logger.Int64("violations_stored", s.Violations),
		logger.Int64("discarded", s.Discarded),
		logger.Int64("missing_helmet", s.MissingHelmet),
		logger.Int64("missing_vest", s.MissingVest),
		logger.Int64("missing_goggles", s.MissingGoggles),
		logger.Float64("compliance_rate", s.ComplianceRate()),
		logger.Duration("elapsed", time.Since(s.StartedAt)))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
