package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks frame evaluation and violation volume.
type PipelineMetrics struct {
	FramesTotal         prometheus.Counter
	PersonsTotal        *prometheus.CounterVec // status: compliant, violating
	ViolationsTotal     *prometheus.CounterVec // type: no_helmet, no_vest, no_goggles
	DiscardedTotal      prometheus.Counter
	FrameDuration       prometheus.Histogram
	OperationsTotal     *prometheus.CounterVec
	OperationErrors     *prometheus.CounterVec
	OperationDurationHg *prometheus.HistogramVec

	collectors []prometheus.Collector
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.FramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ppewatch_frames_evaluated_total",
		Help: "Total number of frames evaluated",
	})
	m.PersonsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppewatch_persons_evaluated_total",
		Help: "Total number of person observations by compliance status",
	}, []string{"status"})
	m.ViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppewatch_violations_total",
		Help: "Total number of missing equipment items by violation type",
	}, []string{"type"})
	m.DiscardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ppewatch_detections_discarded_total",
		Help: "Detections dropped for low confidence, unknown label or bad geometry",
	})
	m.FrameDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ppewatch_frame_duration_seconds",
		Help:    "Time taken to evaluate and persist one frame",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
	})
	m.OperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppewatch_pipeline_operations_total",
		Help: "Pipeline operations by status",
	}, []string{"operation", "status"})
	m.OperationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppewatch_pipeline_errors_total",
		Help: "Pipeline errors by operation and type",
	}, []string{"operation", "error_type"})
	m.OperationDurationHg = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ppewatch_pipeline_operation_duration_seconds",
		Help:    "Pipeline operation durations",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
	}, []string{"operation"})

	m.collectors = []prometheus.Collector{
		m.FramesTotal, m.PersonsTotal, m.ViolationsTotal, m.DiscardedTotal,
		m.FrameDuration, m.OperationsTotal, m.OperationErrors, m.OperationDurationHg,
	}
}

// Describe implements the Collector interface
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordFrame records one evaluated frame.
func (m *PipelineMetrics) RecordFrame(compliant, violating, discarded int, seconds float64) {
	m.FramesTotal.Inc()
	m.PersonsTotal.WithLabelValues("compliant").Add(float64(compliant))
	m.PersonsTotal.WithLabelValues("violating").Add(float64(violating))
	m.DiscardedTotal.Add(float64(discarded))
	m.FrameDuration.Observe(seconds)
}

// RecordViolation counts one missing item of the given violation type.
func (m *PipelineMetrics) RecordViolation(violationType string) {
	m.ViolationsTotal.WithLabelValues(violationType).Inc()
}

// RecordOperation implements Recorder
func (m *PipelineMetrics) RecordOperation(operation, status string) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder
func (m *PipelineMetrics) RecordDuration(operation string, seconds float64) {
	m.OperationDurationHg.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder
func (m *PipelineMetrics) RecordError(operation, errorType string) {
	m.OperationErrors.WithLabelValues(operation, errorType).Inc()
}
