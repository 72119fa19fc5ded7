// Package scheduler drives the periodic background work of the token
// subsystem. It owns no business logic: each tick it invokes the rotation
// sweep (and optionally the purge) on the lifecycle service. The clock
// and ticker are injected so tests advance time instead of sleeping.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/knobo/simple-queue-management/internal/core"
)

// Rotator is the sweep entry point implemented by the lifecycle service.
type Rotator interface {
	RotateTokens(ctx context.Context) (rotated, failed int)
}

// RotationScheduler invokes the rotation sweep on a fixed cadence. The
// per-queue rotation deadlines are enforced inside the sweep itself; the
// scheduler only provides the heartbeat.
type RotationScheduler struct {
	rotator Rotator
	period  time.Duration
	clock   core.TickerClock
}

// NewRotationScheduler builds a scheduler. A nil clock falls back to the
// system clock.
func NewRotationScheduler(r Rotator, period time.Duration, clock core.TickerClock) *RotationScheduler {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &RotationScheduler{rotator: r, period: period, clock: clock}
}

// Run executes the sweep loop until the context is cancelled. The first
// sweep runs immediately so queues overdue at startup are not left
// waiting a full period.
func (s *RotationScheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.period)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ticker.Chan():
			s.sweep(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *RotationScheduler) sweep(ctx context.Context) {
	rotated, failed := s.rotator.RotateTokens(ctx)
	if rotated > 0 || failed > 0 {
		log.Printf("Rotation sweep: rotated %d queue(s), %d failure(s)", rotated, failed)
	}
}
