package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrorMetrics counts enhanced errors by component and category.
type ErrorMetrics struct {
	ErrorsTotal *prometheus.CounterVec
}

// NewErrorMetrics creates and registers error metrics.
func NewErrorMetrics(registry *prometheus.Registry) (*ErrorMetrics, error) {
	m := &ErrorMetrics{
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ppewatch_errors_total",
			Help: "Errors built through the errors package by component and category",
		}, []string{"component", "category"}),
	}
	if err := registry.Register(m.ErrorsTotal); err != nil {
		return nil, fmt.Errorf("failed to register error metrics: %w", err)
	}
	return m, nil
}

// RecordError counts one error.
func (m *ErrorMetrics) RecordError(component, category string) {
	m.ErrorsTotal.WithLabelValues(component, category).Inc()
}
