package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stackmesh/authgate/internal/config"
)

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	_, err := config.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "unit-test-secret")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "3000", cfg.HTTPPort)
	require.Equal(t, time.Hour, cfg.SessionTTL)
	require.Equal(t, "keyboardcat", cfg.CookieSecret)
	require.Equal(t, "http://localhost:3001", cfg.FrontendOrigin)
	require.Equal(t, 100, cfg.RateLimitMax)
	require.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	require.Equal(t, 2, cfg.RateLimitBanAfter)
	require.Equal(t, []string{"127.0.0.1"}, cfg.RateLimitAllowList)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "unit-test-secret")
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("RATE_LIMIT_ALLOWLIST", "10.0.0.1, 10.0.0.2")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.Equal(t, 10, cfg.RateLimitMax)
	require.Equal(t, time.Minute, cfg.RateLimitWindow)
	require.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.RateLimitAllowList)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("SESSION_SECRET", "unit-test-secret")
	t.Setenv("SESSION_TTL", "not-a-duration")
	t.Setenv("RATE_LIMIT_MAX", "many")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, time.Hour, cfg.SessionTTL)
	require.Equal(t, 100, cfg.RateLimitMax)
}

func TestLoadNonPositiveTTLFallsBack(t *testing.T) {
	t.Setenv("SESSION_SECRET", "unit-test-secret")
	t.Setenv("SESSION_TTL", "-5m")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, time.Hour, cfg.SessionTTL)
}
