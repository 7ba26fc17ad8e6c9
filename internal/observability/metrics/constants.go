// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Label values shared by the collectors.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	RoleWorker    = "worker"
	RoleAdmin     = "admin"
	RoleBroadcast = "broadcast"
)

// Histogram bucket configuration.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms.
	BucketStart1ms = 0.001
	// BucketFactor2 is the exponential growth factor used by all duration histograms.
	BucketFactor2 = 2
	// BucketCount12 covers 1ms to ~2s.
	BucketCount12 = 12
	// BucketCount15 covers 1ms to ~16s.
	BucketCount15 = 15
)

// ShutdownTimeout bounds the metrics HTTP server shutdown.
const ShutdownTimeout = 5 * time.Second
