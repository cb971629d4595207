// Package config implements §1's process-wide configuration surface using
// struct-tag-driven environment loading, following teilomillet-gollm's
// config.Config/env.Parse convention (caarlos0/env) rather than the
// teacher's own Goa-DSL-generated config, which this module does not carry.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every process-wide toggle the gateway needs at startup: the
// HTTP listen address, credential-validation skip flag, shared HTTP client
// tuning (§5), the response-cache backend selection, and the cluster rate
// limiter's Redis target.
type Config struct {
	ListenAddr string `env:"GATEWAY_LISTEN_ADDR" envDefault:":3000"`

	// SkipCredentialValidation mirrors internal/credential.SkipValidation:
	// when true, a missing Env/PathFromEnv credential demotes to
	// model.MissingCredential instead of failing closed (§6).
	SkipCredentialValidation bool `env:"GATEWAY_SKIP_CREDENTIAL_VALIDATION" envDefault:"false"`

	HTTPClientTimeout         time.Duration `env:"GATEWAY_HTTP_CLIENT_TIMEOUT" envDefault:"120s"`
	HTTPClientIdleConnTimeout time.Duration `env:"GATEWAY_HTTP_IDLE_CONN_TIMEOUT" envDefault:"2s"`
	HTTPClientKeepAlive       time.Duration `env:"GATEWAY_HTTP_KEEPALIVE" envDefault:"60s"`

	CacheBackend string        `env:"GATEWAY_CACHE_BACKEND" envDefault:"memory"` // memory | redis
	CacheTTL     time.Duration `env:"GATEWAY_CACHE_TTL" envDefault:"24h"`

	RedisAddr     string `env:"GATEWAY_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"GATEWAY_REDIS_PASSWORD"`
	RedisDB       int    `env:"GATEWAY_REDIS_DB" envDefault:"0"`

	RateLimitInitialTPM float64 `env:"GATEWAY_RATE_LIMIT_INITIAL_TPM" envDefault:"60000"`
	RateLimitMaxTPM     float64 `env:"GATEWAY_RATE_LIMIT_MAX_TPM" envDefault:"600000"`
	RateLimitClusterKey string  `env:"GATEWAY_RATE_LIMIT_CLUSTER_KEY"`

	MetricsListenAddr string `env:"GATEWAY_METRICS_LISTEN_ADDR" envDefault:":9090"`

	LogLevel string `env:"GATEWAY_LOG_LEVEL" envDefault:"info"`

	// OverlayConfigPath optionally points at a YAML file of named
	// OverlayPreset entries (see overlay.go) applied to individual
	// ModelProviders at wiring time. Empty disables preset loading.
	OverlayConfigPath string `env:"GATEWAY_OVERLAY_CONFIG_PATH"`
}

// Load reads process configuration from the environment, applying the
// envDefault tags above for anything unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
