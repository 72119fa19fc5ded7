package bootstrap

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/knobo/simple-queue-management/internal/config"
	"github.com/knobo/simple-queue-management/internal/core"
	"github.com/knobo/simple-queue-management/internal/metrics"
	"github.com/knobo/simple-queue-management/internal/scheduler"
	"github.com/knobo/simple-queue-management/internal/store"

	"github.com/appleboy/graceful"
	"github.com/redis/go-redis/v9"
)

// createHTTPServer creates the HTTP server instance
func createHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// addServerRunningJob adds the HTTP server running job
func addServerRunningJob(m *graceful.Manager, srv *http.Server) {
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})
}

// addServerShutdownJob adds HTTP server shutdown handler
func addServerShutdownJob(m *graceful.Manager, srv *http.Server) {
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})
}

// addRotationSweepJob runs the scheduled rotation sweep until shutdown.
func addRotationSweepJob(m *graceful.Manager, s *scheduler.RotationScheduler) {
	m.AddRunningJob(func(ctx context.Context) error {
		return s.Run(ctx)
	})
}

// addTokenPurgeJob adds the periodic purge of long-inactive token rows.
// Purging is housekeeping only: validity never depends on it, since
// expired and deactivated rows already fail validation.
func addTokenPurgeJob(m *graceful.Manager, cfg *config.Config, db *store.Store) {
	if !cfg.TokenPurgeEnabled || cfg.TokenPurgeRetention <= 0 {
		return
	}

	purge := func() {
		cutoff := time.Now().Add(-cfg.TokenPurgeRetention)
		if deleted, err := db.PurgeInactiveTokens(cutoff); err != nil {
			log.Printf("Failed to purge inactive tokens: %v", err)
		} else if deleted > 0 {
			log.Printf("Purged %d inactive tokens", deleted)
		}
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.TokenPurgeInterval)
		defer ticker.Stop()

		// Run purge immediately on startup
		purge()

		for {
			select {
			case <-ticker.C:
				purge()
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addMetricsGaugeUpdateJob adds periodic metrics gauge update job
func addMetricsGaugeUpdateJob(
	m *graceful.Manager,
	cfg *config.Config,
	db *store.Store,
	recorder core.Recorder,
	gaugeCache core.Cache[int64],
) {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled || gaugeCache == nil {
		return
	}

	m.AddRunningJob(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.MetricsGaugeUpdateInterval)
		defer ticker.Stop()

		wrapper := metrics.NewGaugeCacheWrapper(db, gaugeCache)

		// Update immediately on startup
		updateGaugeMetrics(ctx, wrapper, recorder, cfg.MetricsGaugeUpdateInterval)

		for {
			select {
			case <-ticker.C:
				updateGaugeMetrics(ctx, wrapper, recorder, cfg.MetricsGaugeUpdateInterval)
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// addRedisClientShutdownJob adds Redis client shutdown handler
func addRedisClientShutdownJob(m *graceful.Manager, redisClient *redis.Client) {
	if redisClient == nil {
		return
	}

	m.AddShutdownJob(func() error {
		log.Println("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
			return err
		}
		log.Println("Redis connection closed")
		return nil
	})
}

// addCacheShutdownJob closes a cache on shutdown.
func addCacheShutdownJob(m *graceful.Manager, name string, c interface{ Close() error }) {
	if c == nil {
		return
	}

	m.AddShutdownJob(func() error {
		if err := c.Close(); err != nil {
			log.Printf("Error closing %s: %v", name, err)
			return err
		}
		return nil
	})
}

// errorLogger handles rate-limited error logging
type errorLogger struct {
	lastErrorTimes  map[string]time.Time
	rateLimitWindow time.Duration
}

func newErrorLogger() *errorLogger {
	return &errorLogger{
		lastErrorTimes:  make(map[string]time.Time),
		rateLimitWindow: 5 * time.Minute,
	}
}

// logIfNeeded logs an error only if rate limit allows
func (e *errorLogger) logIfNeeded(operation string, err error) {
	now := time.Now()
	lastTime, exists := e.lastErrorTimes[operation]

	if !exists || now.Sub(lastTime) >= e.rateLimitWindow {
		log.Printf("Database query failed for %s: %v (further errors will be suppressed for %v)",
			operation, err, e.rateLimitWindow)
		e.lastErrorTimes[operation] = now
	}
}

var gaugeErrorLogger = newErrorLogger()

// updateGaugeMetrics refreshes the gauge values from the cache-backed
// counts. The cache TTL matches the update interval so several instances
// polling the same database share one query per interval.
func updateGaugeMetrics(
	ctx context.Context,
	wrapper *metrics.GaugeCacheWrapper,
	recorder core.Recorder,
	cacheTTL time.Duration,
) {
	activeTokens, err := wrapper.GetActiveTokensCount(ctx, cacheTTL)
	if err != nil {
		recorder.RecordDatabaseQueryError("count_active_tokens")
		gaugeErrorLogger.logIfNeeded("count_active_tokens", err)
	} else {
		recorder.SetActiveTokensCount(int(activeTokens))
	}

	rotatingQueues, err := wrapper.GetRotatingQueuesCount(ctx, cacheTTL)
	if err != nil {
		recorder.RecordDatabaseQueryError("count_rotating_queues")
		gaugeErrorLogger.logIfNeeded("count_rotating_queues", err)
	} else {
		recorder.SetRotatingQueuesCount(int(rotatingQueues))
	}
}
