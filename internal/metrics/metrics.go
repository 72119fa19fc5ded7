package metrics

import (
	"sync"
	"time"

	"github.com/knobo/simple-queue-management/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ensure Metrics implements Recorder interface at compile time
var _ core.Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Token lifecycle metrics
	TokensIssuedTotal      *prometheus.CounterVec
	TokenValidationTotal   *prometheus.CounterVec
	TokensConsumedTotal    *prometheus.CounterVec
	TokensDeactivatedTotal *prometheus.CounterVec
	TokenValidationDuration prometheus.Histogram

	// Rotation sweep metrics
	RotationSweepsTotal    prometheus.Counter
	QueuesRotatedTotal     prometheus.Counter
	QueueRotationFailures  prometheus.Counter
	RotationSweepDuration  prometheus.Histogram

	// Gauges
	TokensActive   prometheus.Gauge
	QueuesRotating prometheus.Gauge

	// HTTP request metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database query metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag.
// If enabled=true, returns Prometheus-based Metrics.
// If enabled=false, returns NoopMetrics (zero overhead).
// Uses sync.Once to ensure Prometheus metrics are only registered once.
func Init(enabled bool) core.Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		TokensIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_tokens_issued_total",
				Help: "Total number of join tokens issued",
			},
			[]string{"mode", "reason"}, // reason: display, rotation, one_time_replacement, admin, config_change
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_token_validation_total",
				Help: "Total number of join token validations",
			},
			[]string{"result"}, // valid, expired, usage_exhausted, not_found
		),
		TokensConsumedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_tokens_consumed_total",
				Help: "Total number of join token consume attempts",
			},
			[]string{"mode", "result"}, // result: success, rejected
		),
		TokensDeactivatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_tokens_deactivated_total",
				Help: "Total number of join tokens deactivated",
			},
			[]string{"reason"}, // rotation, one_time_use, admin, config_change
		),
		TokenValidationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "queue_token_validation_duration_seconds",
				Help:    "Time taken to validate a join token",
				Buckets: prometheus.DefBuckets,
			},
		),

		RotationSweepsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "queue_token_rotation_sweeps_total",
				Help: "Total number of scheduled rotation sweeps",
			},
		),
		QueuesRotatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "queue_tokens_rotated_total",
				Help: "Total number of queues whose token was rotated by the sweep",
			},
		),
		QueueRotationFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "queue_token_rotation_failures_total",
				Help: "Total number of per-queue rotation failures during sweeps",
			},
		),
		RotationSweepDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "queue_token_rotation_sweep_duration_seconds",
				Help:    "Duration of a full rotation sweep",
				Buckets: prometheus.DefBuckets,
			},
		),

		TokensActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "queue_tokens_active",
				Help: "Current number of active join tokens",
			},
		),
		QueuesRotating: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "queue_queues_rotating",
				Help: "Current number of queues with scheduled rotation enabled",
			},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of in-flight HTTP requests",
			},
		),

		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors",
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) RecordTokenIssued(mode, reason string) {
	m.TokensIssuedTotal.WithLabelValues(mode, reason).Inc()
}

func (m *Metrics) RecordTokenValidation(result string, duration time.Duration) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
	m.TokenValidationDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordTokenConsumed(mode string, success bool) {
	result := "rejected"
	if success {
		result = "success"
	}
	m.TokensConsumedTotal.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) RecordTokenDeactivated(reason string) {
	m.TokensDeactivatedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordRotationSweep(rotated, failed int, duration time.Duration) {
	m.RotationSweepsTotal.Inc()
	m.QueuesRotatedTotal.Add(float64(rotated))
	m.QueueRotationFailures.Add(float64(failed))
	m.RotationSweepDuration.Observe(duration.Seconds())
}

func (m *Metrics) SetActiveTokensCount(count int) {
	m.TokensActive.Set(float64(count))
}

func (m *Metrics) SetRotatingQueuesCount(count int) {
	m.QueuesRotating.Set(float64(count))
}

func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
