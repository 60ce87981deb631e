package config_test

import (
	"testing"
	"time"

	"github.com/otzivi/authcore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("PENDING_TOKEN_SECRET", "a-long-enough-development-secret")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("NOTIFY_FROM_ADDRESS", "security@example.com")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Throttle.MaxAttempts)
	assert.Equal(t, 3, cfg.Throttle.WarnThreshold)
	assert.Equal(t, 30*time.Second, cfg.Throttle.BlockWindow)
	assert.Equal(t, 1*time.Hour, cfg.Throttle.Retention)
	assert.Equal(t, "memory", cfg.Throttle.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Challenge.PendingTTL)
	assert.Equal(t, 1*time.Hour, cfg.Events.SuspiciousWindow)
	assert.Equal(t, 10, cfg.Events.SuspiciousThreshold)
}

func TestLoad_RequiresPendingSecret(t *testing.T) {
	t.Setenv("PENDING_TOKEN_SECRET", "")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsShortSecretInProduction(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("PENDING_TOKEN_SECRET", "short-prod-secret")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownThrottleBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("THROTTLE_BACKEND", "memcache")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RejectsWarnThresholdAboveMax(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("THROTTLE_WARN_THRESHOLD", "7")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("THROTTLE_MAX_ATTEMPTS", "10")
	t.Setenv("THROTTLE_BLOCK_WINDOW", "2m")
	t.Setenv("THROTTLE_BACKEND", "redis")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Throttle.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Throttle.BlockWindow)
	assert.Equal(t, "redis", cfg.Throttle.Backend)
}
