package report

import (
	"bytes"
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tphakala/ppewatch/internal/logger"
)

// Publisher receives the rendered text of each scheduled report.
type Publisher func(ctx context.Context, text string)

// Scheduler runs the report on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	generator *Generator
	days      int
	publish   Publisher
	log       logger.Logger
}

// NewScheduler parses a standard five field cron expression.
func NewScheduler(generator *Generator, schedule string, days int, publish Publisher) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		generator: generator,
		days:      days,
		publish:   publish,
		log:       GetLogger().Module("scheduler"),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running scheduled reports in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.Info("report scheduled", logger.Time("next_run", e.Next))
	}
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s.RunOnce(ctx)
}

// RunOnce generates and publishes one report. Failures are logged.
func (s *Scheduler) RunOnce(ctx context.Context) {
	r, err := s.generator.Report(ctx, s.days)
	if err != nil {
		s.log.Error("scheduled report failed", logger.Error(err))
		return
	}
	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		s.log.Error("failed to render report", logger.Error(err))
		return
	}
	s.log.Info("scheduled report generated", logger.Int64("total", r.Total), logger.Int("groups", len(r.Groups)))
	if s.publish != nil {
		s.publish(ctx, buf.String())
	}
}
