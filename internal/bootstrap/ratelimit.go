package bootstrap

import (
	"fmt"
	"log"

	"github.com/knobo/simple-queue-management/internal/config"
	"github.com/knobo/simple-queue-management/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// initializeRateLimitRedisClient dials Redis when the rate limiter is
// configured to use it. The client is shared with the limiter store and
// closed on shutdown.
func initializeRateLimitRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.RateLimitEnabled || cfg.RateLimitStoreType != config.StoreTypeRedis {
		return nil, nil
	}

	client, err := middleware.CreateRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rate limit redis client: %w", err)
	}
	return client, nil
}

// setupRateLimiting builds the middleware guarding the public token
// endpoints. Token values are guessable only by brute force; the limiter
// makes that brute force impractical.
func setupRateLimiting(cfg *config.Config, redisClient *redis.Client) (gin.HandlerFunc, error) {
	if !cfg.RateLimitEnabled {
		log.Println("Rate limiting disabled")
		return func(c *gin.Context) { c.Next() }, nil
	}

	storeType := middleware.RateLimitStoreMemory
	if cfg.RateLimitStoreType == config.StoreTypeRedis {
		storeType = middleware.RateLimitStoreRedis
	}

	limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: cfg.RateLimitRequestsPerMinute,
		StoreType:         storeType,
		RedisClient:       redisClient,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Rate limiting: %d req/min per IP (%s store)",
		cfg.RateLimitRequestsPerMinute, cfg.RateLimitStoreType)
	return limiter, nil
}
