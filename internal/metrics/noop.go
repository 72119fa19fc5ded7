package metrics

import (
	"time"

	"github.com/knobo/simple-queue-management/internal/core"
)

// NoopMetrics is a no-operation implementation of core.Recorder.
// All methods are empty and do nothing, providing zero overhead when
// metrics are disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ core.Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() core.Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordTokenIssued(mode, reason string)                          {}
func (n *NoopMetrics) RecordTokenValidation(result string, duration time.Duration)    {}
func (n *NoopMetrics) RecordTokenConsumed(mode string, success bool)                  {}
func (n *NoopMetrics) RecordTokenDeactivated(reason string)                           {}
func (n *NoopMetrics) RecordRotationSweep(rotated, failed int, duration time.Duration) {}
func (n *NoopMetrics) SetActiveTokensCount(count int)                                 {}
func (n *NoopMetrics) SetRotatingQueuesCount(count int)                               {}
func (n *NoopMetrics) RecordDatabaseQueryError(operation string)                      {}
