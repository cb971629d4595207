package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":3000", cfg.ListenAddr)
	require.False(t, cfg.SkipCredentialValidation)
	require.Equal(t, 120*time.Second, cfg.HTTPClientTimeout)
	require.Equal(t, "memory", cfg.CacheBackend)
	require.Equal(t, 60000.0, cfg.RateLimitInitialTPM)
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	t.Setenv("GATEWAY_LISTEN_ADDR", ":8080")
	t.Setenv("GATEWAY_SKIP_CREDENTIAL_VALIDATION", "true")
	t.Setenv("GATEWAY_CACHE_BACKEND", "redis")
	t.Setenv("GATEWAY_RATE_LIMIT_MAX_TPM", "1000000")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.True(t, cfg.SkipCredentialValidation)
	require.Equal(t, "redis", cfg.CacheBackend)
	require.Equal(t, 1000000.0, cfg.RateLimitMaxTPM)
}
