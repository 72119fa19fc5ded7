package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/knobo/simple-queue-management/internal/cache"
	"github.com/knobo/simple-queue-management/internal/config"
	"github.com/knobo/simple-queue-management/internal/core"
	"github.com/knobo/simple-queue-management/internal/metrics"
	"github.com/knobo/simple-queue-management/internal/services"
)

const cacheInitTimeout = 10 * time.Second

// initializeMetrics initializes Prometheus metrics
func initializeMetrics(cfg *config.Config) core.Recorder {
	recorder := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}
	return recorder
}

// initializeGaugeCache sets up the cache behind the periodic gauge
// refresh. The gauge job tolerates a nil cacheless setup, so a Redis
// failure here falls back to memory instead of aborting startup.
func initializeGaugeCache(cfg *config.Config) core.Cache[int64] {
	if !cfg.MetricsEnabled || !cfg.MetricsGaugeUpdateEnabled {
		return nil
	}

	if cfg.CacheStoreType == config.StoreTypeRedis {
		ctx, cancel := context.WithTimeout(context.Background(), cacheInitTimeout)
		defer cancel()

		c, err := cache.NewRueidisCache[int64](
			ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "queue:gauges:",
			cfg.MetricsGaugeUpdateInterval,
		)
		if err == nil {
			log.Printf("Gauge cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
			return c
		}
		log.Printf("Gauge cache: redis unavailable (%v), falling back to memory", err)
	}

	log.Println("Gauge cache: memory (single instance only)")
	return cache.NewMemoryCache[int64]()
}

// initializeTokenInfoCache sets up the short-TTL cache for the display
// projection. This one is load-bearing (kiosks poll continuously), so a
// configured-but-unreachable Redis is a startup error.
func initializeTokenInfoCache(cfg *config.Config) (core.Cache[services.TokenInfo], error) {
	if cfg.CacheStoreType == config.StoreTypeRedis {
		ctx, cancel := context.WithTimeout(context.Background(), cacheInitTimeout)
		defer cancel()

		c, err := cache.NewRueidisCache[services.TokenInfo](
			ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "queue:",
			cfg.CacheTTL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis token info cache: %w", err)
		}
		log.Printf("Token info cache: redis (addr=%s, db=%d, ttl=%s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.CacheTTL)
		return c, nil
	}

	log.Printf("Token info cache: memory (ttl=%s, single instance only)", cfg.CacheTTL)
	return cache.NewMemoryCache[services.TokenInfo](), nil
}
