package violation

import (
	"context"
	"time"

	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/logger"
)

// IdentityResolver binds a person detection to a worker id. Face or badge
// recognition lives outside this module; a nil resolver leaves every record
// unbound.
type IdentityResolver interface {
	Resolve(ctx context.Context, obs *compliance.PersonObservation, frame FrameContext) (workerID string, ok bool)
}

// IdentityResolverFunc adapts a function to IdentityResolver
type IdentityResolverFunc func(ctx context.Context, obs *compliance.PersonObservation, frame FrameContext) (string, bool)

func (f IdentityResolverFunc) Resolve(ctx context.Context, obs *compliance.PersonObservation, frame FrameContext) (string, bool) {
	return f(ctx, obs, frame)
}

// FrameContext describes where and when a frame was captured
type FrameContext struct {
	Location string
	CameraID string
	Frame    int64
	Time     time.Time
}

// Aggregator converts observations into records
type Aggregator struct {
	resolver IdentityResolver
	now      func() time.Time
	log      logger.Logger
}

// NewAggregator creates an aggregator. resolver may be nil.
func NewAggregator(resolver IdentityResolver) *Aggregator {
	return &Aggregator{resolver: resolver, now: time.Now, log: GetLogger()}
}

// Aggregate emits exactly one record per non-compliant observation and
// updates stats for every observation
func (a *Aggregator) Aggregate(ctx context.Context, obs []compliance.PersonObservation, frame FrameContext, stats *SessionStats) []Record {
	ts := frame.Time
	if ts.IsZero() {
		ts = a.now()
	}

	var records []Record
	for i := range obs {
		o := &obs[i]
		if stats != nil {
			stats.observePerson(o)
		}
		if o.Compliant() {
			continue
		}

		rec := Record{
			Timestamp:  ts,
			Missing:    o.Missing,
			Location:   frame.Location,
			CameraID:   frame.CameraID,
			Frame:      frame.Frame,
			Confidence: o.Person.Confidence,
			Box:        o.Person.Box,
		}
		if a.resolver != nil {
			if id, ok := a.resolver.Resolve(ctx, o, frame); ok && id != "" {
				rec.WorkerID = &id
			}
		}
		records = append(records, rec)

		a.log.Debug("violation detected",
			logger.String("missing", o.Missing.String()),
			logger.String("location", frame.Location),
			logger.Int64("frame", frame.Frame),
			logger.Float64("confidence", o.Person.Confidence))
	}
	return records
}
