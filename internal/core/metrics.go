package core

import "time"

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Token lifecycle
	RecordTokenIssued(mode, reason string)
	RecordTokenValidation(result string, duration time.Duration)
	RecordTokenConsumed(mode string, success bool)
	RecordTokenDeactivated(reason string)

	// Rotation sweep
	RecordRotationSweep(rotated, failed int, duration time.Duration)

	// Gauge setters (for periodic updates)
	SetActiveTokensCount(count int)
	SetRotatingQueuesCount(count int)

	// Database operations
	RecordDatabaseQueryError(operation string)
}

// MetricsStore defines the DB operations needed by the gauge refresh job.
type MetricsStore interface {
	CountActiveTokens() (int64, error)
	CountRotatingQueues() (int64, error)
}
