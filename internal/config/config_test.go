package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 10, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 200, cfg.Import.MaxRows)
	assert.Equal(t, int64(5<<20), cfg.Import.MaxUploadBytes)
	assert.Equal(t, 1000, cfg.Export.MaxRows)
	assert.Equal(t, 5, cfg.History.Limit)
	assert.Equal(t, "LEADS", cfg.NATS.Stream)
	assert.Equal(t, "v1.leads", cfg.NATS.SubjectPrefix)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, 8, cfg.WorkerPools.Validation.PoolSize)
}

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
environment: staging
rateLimit:
  limit: 3
  window: 30s
import:
  maxRows: 50
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.yaml"), yaml, 0o600))

	t.Setenv("POSTGRES_DSN", "postgres://crm:crm@db:5432/crm")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("RATELIMIT_BACKEND", "redis")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 3, cfg.RateLimit.Limit)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 50, cfg.Import.MaxRows)
	assert.Equal(t, "postgres://crm:crm@db:5432/crm", cfg.Database.PostgresDSN)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "redis", cfg.RateLimit.Backend)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("unknown rate limit backend", func(t *testing.T) {
		t.Setenv("RATELIMIT_BACKEND", "memcached")
		_, err := LoadConfig(t.TempDir())
		assert.ErrorContains(t, err, "rateLimit.backend")
	})

	t.Run("redis backend without address", func(t *testing.T) {
		t.Setenv("RATELIMIT_BACKEND", "redis")
		_, err := LoadConfig(t.TempDir())
		assert.ErrorContains(t, err, "redis.addr")
	})
}
