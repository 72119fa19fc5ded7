package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Cache and rate-limit store backends
const (
	StoreTypeMemory = "memory"
	StoreTypeRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr   string
	BaseURL      string
	IsProduction bool

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string // Database connection string (DSN or path)

	// Token settings
	TokenValueLength    int           // length of generated token values
	DefaultTokenExpiry  time.Duration // expiry window when a queue has none configured
	RotationSweepPeriod time.Duration // cadence of the scheduled rotation sweep

	// Token purge settings
	TokenPurgeEnabled   bool
	TokenPurgeInterval  time.Duration
	TokenPurgeRetention time.Duration // how long inactive tokens are kept

	// Metrics
	MetricsEnabled             bool
	MetricsToken               string // optional bearer token guarding /metrics
	MetricsGaugeUpdateEnabled  bool
	MetricsGaugeUpdateInterval time.Duration

	// Token info cache
	CacheStoreType string // "memory" or "redis"
	CacheTTL       time.Duration

	// Rate limiting (public validate/consume endpoints)
	RateLimitEnabled           bool
	RateLimitRequestsPerMinute int
	RateLimitStoreType         string // "memory" or "redis"

	// Redis (shared by cache and rate limit stores)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "queue.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
		IsProduction: getEnv("GIN_MODE", "") == "release",

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		TokenValueLength:    getEnvInt("TOKEN_VALUE_LENGTH", 12),
		DefaultTokenExpiry:  getEnvDuration("DEFAULT_TOKEN_EXPIRY", 15*time.Minute),
		RotationSweepPeriod: getEnvDuration("ROTATION_SWEEP_PERIOD", time.Minute),

		TokenPurgeEnabled:   getEnvBool("TOKEN_PURGE_ENABLED", true),
		TokenPurgeInterval:  getEnvDuration("TOKEN_PURGE_INTERVAL", 24*time.Hour),
		TokenPurgeRetention: getEnvDuration("TOKEN_PURGE_RETENTION", 30*24*time.Hour),

		MetricsEnabled:             getEnvBool("METRICS_ENABLED", true),
		MetricsToken:               getEnv("METRICS_TOKEN", ""),
		MetricsGaugeUpdateEnabled:  getEnvBool("METRICS_GAUGE_UPDATE_ENABLED", true),
		MetricsGaugeUpdateInterval: getEnvDuration("METRICS_GAUGE_UPDATE_INTERVAL", 30*time.Second),

		CacheStoreType: getEnv("CACHE_STORE_TYPE", StoreTypeMemory),
		CacheTTL:       getEnvDuration("CACHE_TTL", 5*time.Second),

		RateLimitEnabled:           getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequestsPerMinute: getEnvInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
		RateLimitStoreType:         getEnv("RATE_LIMIT_STORE_TYPE", StoreTypeMemory),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL must not be empty")
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "postgres" {
		return fmt.Errorf("invalid DATABASE_DRIVER: %s (must be: sqlite, postgres)", c.DatabaseDriver)
	}
	if c.DatabaseDriver == "postgres" && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required when DATABASE_DRIVER=postgres")
	}
	if c.TokenValueLength < 8 || c.TokenValueLength > 255 {
		return fmt.Errorf("TOKEN_VALUE_LENGTH must be between 8 and 255, got %d", c.TokenValueLength)
	}
	if c.RotationSweepPeriod <= 0 {
		return fmt.Errorf("ROTATION_SWEEP_PERIOD must be positive, got %v", c.RotationSweepPeriod)
	}
	if c.DefaultTokenExpiry <= 0 {
		return fmt.Errorf("DEFAULT_TOKEN_EXPIRY must be positive, got %v", c.DefaultTokenExpiry)
	}
	if err := validateStoreType("CACHE_STORE_TYPE", c.CacheStoreType); err != nil {
		return err
	}
	if err := validateStoreType("RATE_LIMIT_STORE_TYPE", c.RateLimitStoreType); err != nil {
		return err
	}
	usesRedis := c.CacheStoreType == StoreTypeRedis || c.RateLimitStoreType == StoreTypeRedis
	if usesRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when a redis store is selected")
	}
	return nil
}

func validateStoreType(name, value string) error {
	if value != StoreTypeMemory && value != StoreTypeRedis {
		return fmt.Errorf("invalid %s: %s (must be: memory, redis)", name, value)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
