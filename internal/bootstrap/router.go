package bootstrap

import (
	"log"
	"net/http"

	"github.com/knobo/simple-queue-management/internal/config"
	"github.com/knobo/simple-queue-management/internal/core"
	"github.com/knobo/simple-queue-management/internal/handlers"
	"github.com/knobo/simple-queue-management/internal/metrics"
	"github.com/knobo/simple-queue-management/internal/middleware"
	"github.com/knobo/simple-queue-management/internal/services"
	"github.com/knobo/simple-queue-management/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	lifecycle *services.TokenLifecycleService,
	recorder core.Recorder,
	rateLimitRedisClient *redis.Client,
) (*gin.Engine, error) {
	setupGinMode(cfg)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(recorder))
	r.Use(gin.Logger(), gin.Recovery())

	// Health check endpoint
	r.GET("/health", createHealthCheckHandler(db))

	// Prometheus metrics endpoint
	setupMetricsEndpoint(r, cfg)

	rateLimiter, err := setupRateLimiting(cfg, rateLimitRedisClient)
	if err != nil {
		return nil, err
	}

	tokenHandler := handlers.NewTokenHandler(lifecycle, cfg)
	queueHandler := handlers.NewQueueHandler(lifecycle, db, cfg)

	// Public join surface: these carry token values guessed by brute
	// force, so they sit behind the rate limiter.
	r.GET("/q/:token", rateLimiter, tokenHandler.Join)

	tokens := r.Group("/api/tokens")
	{
		tokens.POST("/validate", rateLimiter, tokenHandler.Validate)
		tokens.POST("/consume", rateLimiter, tokenHandler.Consume)
		tokens.DELETE("/:id", queueHandler.DeactivateToken)
	}

	// Queue management. Authentication is handled upstream (reverse
	// proxy or API gateway); this subsystem owns only the token logic.
	queues := r.Group("/api/queues")
	{
		queues.POST("", queueHandler.CreateQueue)
		queues.GET("", queueHandler.ListQueues)
		queues.GET("/:id", queueHandler.GetQueue)
		queues.GET("/:id/token", queueHandler.GetTokenInfo)
		queues.GET("/:id/join-url", queueHandler.GetJoinURL)
		queues.POST("/:id/token/rotate", queueHandler.RotateToken)
		queues.PUT("/:id/token-config", queueHandler.UpdateTokenConfig)
	}

	logServerStartup(cfg)
	return r, nil
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config) {
	switch {
	case !cfg.MetricsEnabled:
		log.Printf("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Printf("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Printf("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// createHealthCheckHandler creates health check endpoint handler
func createHealthCheckHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
		log.Printf("Gin mode: Release (production)")
		return
	}
	gin.SetMode(gin.DebugMode)
	log.Printf("Gin mode: Debug (development)")
}

// logServerStartup logs server startup information
func logServerStartup(cfg *config.Config) {
	log.Printf("Queue token service starting on %s", cfg.ServerAddr)
	log.Printf("Join URL base: %s/q/<token>", cfg.BaseURL)
	log.Printf("Rotation sweep period: %s", cfg.RotationSweepPeriod)
}
