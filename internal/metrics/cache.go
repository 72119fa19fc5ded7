package metrics

import (
	"context"
	"time"

	"github.com/knobo/simple-queue-management/internal/core"
)

const (
	activeTokensKey   = "metrics:active_tokens"
	rotatingQueuesKey = "metrics:rotating_queues"
)

// GaugeCacheWrapper caches the count queries behind the periodic gauge
// refresh so multiple instances polling the same database do not multiply
// the load.
type GaugeCacheWrapper struct {
	store core.MetricsStore
	cache core.Cache[int64]
}

// NewGaugeCacheWrapper creates a cache wrapper around the metrics store.
func NewGaugeCacheWrapper(store core.MetricsStore, c core.Cache[int64]) *GaugeCacheWrapper {
	return &GaugeCacheWrapper{store: store, cache: c}
}

// GetActiveTokensCount returns the active token count, cache-aside.
func (w *GaugeCacheWrapper) GetActiveTokensCount(ctx context.Context, ttl time.Duration) (int64, error) {
	return w.fetch(ctx, activeTokensKey, ttl, w.store.CountActiveTokens)
}

// GetRotatingQueuesCount returns the rotating queue count, cache-aside.
func (w *GaugeCacheWrapper) GetRotatingQueuesCount(ctx context.Context, ttl time.Duration) (int64, error) {
	return w.fetch(ctx, rotatingQueuesKey, ttl, w.store.CountRotatingQueues)
}

func (w *GaugeCacheWrapper) fetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	query func() (int64, error),
) (int64, error) {
	if value, err := w.cache.Get(ctx, key); err == nil {
		return value, nil
	}
	value, err := query()
	if err != nil {
		return 0, err
	}
	_ = w.cache.Set(ctx, key, value, ttl)
	return value, nil
}
