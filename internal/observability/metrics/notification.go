package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains Prometheus metrics for violation dispatch and broadcasts.
type NotificationMetrics struct {
	DeliveriesTotal    *prometheus.CounterVec   // sender, role, status
	DeliveryDuration   *prometheus.HistogramVec // sender
	DispatchCycles     *prometheus.CounterVec   // status: empty, dispatched, error
	DispatchActive     prometheus.Gauge
	BroadcastsTotal    *prometheus.CounterVec // kind
	RecipientCacheHits *prometheus.CounterVec // result: hit, miss

	collectors []prometheus.Collector
}

// NewNotificationMetrics creates and registers notification metrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.DeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppewatch_notification_deliveries_total",
		Help: "Notification send attempts by sender, recipient role and status",
	}, []string{"sender", "role", "status"})
	m.DeliveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ppewatch_notification_delivery_duration_seconds",
		Help:    "Time taken per send attempt",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"sender"})
	m.DispatchCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppewatch_dispatch_cycles_total",
		Help: "Dispatcher poll cycles by result",
	}, []string{"status"})
	m.DispatchActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ppewatch_dispatch_active",
		Help: "1 while a dispatch batch is being sent",
	})
	m.BroadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppewatch_broadcasts_total",
		Help: "Admin broadcasts by kind",
	}, []string{"kind"})
	m.RecipientCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ppewatch_recipient_cache_total",
		Help: "Recipient directory cache lookups by result",
	}, []string{"result"})

	m.collectors = []prometheus.Collector{
		m.DeliveriesTotal, m.DeliveryDuration, m.DispatchCycles,
		m.DispatchActive, m.BroadcastsTotal, m.RecipientCacheHits,
	}
}

// Describe implements the Collector interface
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordDelivery records one send attempt.
func (m *NotificationMetrics) RecordDelivery(sender, role string, success bool, seconds float64) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	m.DeliveriesTotal.WithLabelValues(sender, role, status).Inc()
	m.DeliveryDuration.WithLabelValues(sender).Observe(seconds)
}

// RecordDispatchCycle records one poll cycle result.
func (m *NotificationMetrics) RecordDispatchCycle(status string) {
	m.DispatchCycles.WithLabelValues(status).Inc()
}

// SetDispatching flips the active gauge.
func (m *NotificationMetrics) SetDispatching(active bool) {
	if active {
		m.DispatchActive.Set(1)
		return
	}
	m.DispatchActive.Set(0)
}

// RecordBroadcast records a completed broadcast.
func (m *NotificationMetrics) RecordBroadcast(kind string) {
	m.BroadcastsTotal.WithLabelValues(kind).Inc()
}

// RecordRecipientLookup records a directory cache lookup.
func (m *NotificationMetrics) RecordRecipientLookup(hit bool) {
	if hit {
		m.RecipientCacheHits.WithLabelValues("hit").Inc()
		return
	}
	m.RecipientCacheHits.WithLabelValues("miss").Inc()
}
