package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, 12, cfg.TokenValueLength)
	assert.Equal(t, 15*time.Minute, cfg.DefaultTokenExpiry)
	assert.Equal(t, time.Minute, cfg.RotationSweepPeriod)
	assert.Equal(t, StoreTypeMemory, cfg.CacheStoreType)
	assert.Equal(t, StoreTypeMemory, cfg.RateLimitStoreType)
	assert.True(t, cfg.MetricsEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("TOKEN_VALUE_LENGTH", "24")
	t.Setenv("ROTATION_SWEEP_PERIOD", "30s")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("CACHE_STORE_TYPE", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, 24, cfg.TokenValueLength)
	assert.Equal(t, 30*time.Second, cfg.RotationSweepPeriod)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, StoreTypeRedis, cfg.CacheStoreType)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TOKEN_VALUE_LENGTH", "notanumber")
	t.Setenv("ROTATION_SWEEP_PERIOD", "bogus")

	cfg := Load()
	assert.Equal(t, 12, cfg.TokenValueLength)
	assert.Equal(t, time.Minute, cfg.RotationSweepPeriod)
}

func TestValidate_Errors(t *testing.T) {
	base := func() *Config {
		cfg := Load()
		require.NoError(t, cfg.Validate())
		return cfg
	}

	cfg := base()
	cfg.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DatabaseDriver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DatabaseDriver = "postgres"
	cfg.DatabaseDSN = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.TokenValueLength = 4
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RotationSweepPeriod = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.CacheStoreType = "memcached"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RateLimitStoreType = StoreTypeRedis
	cfg.RedisAddr = ""
	assert.Error(t, cfg.Validate())
}
