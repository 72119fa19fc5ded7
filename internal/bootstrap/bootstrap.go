// Package bootstrap wires the application together: configuration
// validation, database and cache initialization, service construction,
// router setup and graceful lifecycle management.
package bootstrap

import (
	"net/http"

	"github.com/knobo/simple-queue-management/internal/config"
	"github.com/knobo/simple-queue-management/internal/core"
	"github.com/knobo/simple-queue-management/internal/scheduler"
	"github.com/knobo/simple-queue-management/internal/services"
	"github.com/knobo/simple-queue-management/internal/store"

	"github.com/appleboy/graceful"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Application holds all initialized components
type Application struct {
	Config *config.Config

	// Core infrastructure
	DB                   *store.Store
	MetricsRecorder      core.Recorder
	GaugeCache           core.Cache[int64]
	TokenInfoCache       core.Cache[services.TokenInfo]
	RateLimitRedisClient *redis.Client

	// Services
	Lifecycle *services.TokenLifecycleService
	Scheduler *scheduler.RotationScheduler

	// HTTP
	Router *gin.Engine
	Server *http.Server
}

// Run initializes and starts the application
func Run(cfg *config.Config) error {
	app := &Application{Config: cfg}

	// Phase 1: Validate configuration
	validateAllConfiguration(cfg)

	// Phase 2: Initialize infrastructure
	if err := app.initializeInfrastructure(); err != nil {
		return err
	}

	// Phase 3: Initialize business layer
	app.initializeBusinessLayer()

	// Phase 4: Initialize HTTP layer
	if err := app.initializeHTTPLayer(); err != nil {
		return err
	}

	// Phase 5: Start server with graceful shutdown
	app.startWithGracefulShutdown()

	return nil
}

// initializeInfrastructure sets up database, metrics, caches, and Redis
func (app *Application) initializeInfrastructure() error {
	var err error

	app.DB, err = initializeDatabase(app.Config)
	if err != nil {
		return err
	}

	app.MetricsRecorder = initializeMetrics(app.Config)
	app.GaugeCache = initializeGaugeCache(app.Config)

	app.TokenInfoCache, err = initializeTokenInfoCache(app.Config)
	if err != nil {
		return err
	}

	// Redis (for rate limiting)
	app.RateLimitRedisClient, err = initializeRateLimitRedisClient(app.Config)
	if err != nil {
		return err
	}

	return nil
}

// initializeBusinessLayer sets up the lifecycle service and its scheduler
func (app *Application) initializeBusinessLayer() {
	app.Lifecycle = services.NewTokenLifecycleService(
		app.DB,
		app.Config,
		app.TokenInfoCache,
		app.MetricsRecorder,
		core.SystemClock{},
	)
	app.Scheduler = scheduler.NewRotationScheduler(
		app.Lifecycle,
		app.Config.RotationSweepPeriod,
		core.SystemClock{},
	)
}

// initializeHTTPLayer sets up handlers, router, and server
func (app *Application) initializeHTTPLayer() error {
	router, err := setupRouter(
		app.Config,
		app.DB,
		app.Lifecycle,
		app.MetricsRecorder,
		app.RateLimitRedisClient,
	)
	if err != nil {
		return err
	}
	app.Router = router
	app.Server = createHTTPServer(app.Config, app.Router)
	return nil
}

// startWithGracefulShutdown starts the server and background jobs and
// blocks until shutdown completes.
func (app *Application) startWithGracefulShutdown() {
	m := graceful.NewManager()

	addServerRunningJob(m, app.Server)
	addServerShutdownJob(m, app.Server)
	addRotationSweepJob(m, app.Scheduler)
	addTokenPurgeJob(m, app.Config, app.DB)
	addMetricsGaugeUpdateJob(m, app.Config, app.DB, app.MetricsRecorder, app.GaugeCache)
	addRedisClientShutdownJob(m, app.RateLimitRedisClient)
	addCacheShutdownJob(m, "token info cache", app.TokenInfoCache)
	addCacheShutdownJob(m, "gauge cache", app.GaugeCache)

	<-m.Done()
}
