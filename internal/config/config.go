// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/fraudwatch/internal/common"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyAPIURL            = "api.url"
	KeyAPIPrefix         = "api.prefix"
	KeyProbeTimeout      = "timeouts.probe"
	KeyPredictTimeout    = "timeouts.predict"
	KeyLightTimeout      = "timeouts.light"
	KeyRetryMaxAttempts  = "retry.max_attempts"
	KeyRetryDelay        = "retry.delay"
	KeyLogLevel          = "logging.level"
	KeyLogFormat         = "logging.format"
	KeyMetricsAddr       = "metrics.addr"
	fallbackAPIURLEnvVar = "FRAUD_API_URL"
)

// Config is the resolved client configuration.
type Config struct {
	API      APIConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Timeouts Timeouts
	Retry    RetryConfig
}

// APIConfig locates the scoring service.
type APIConfig struct {
	// BaseURL is the service root; the liveness probe hits {BaseURL}/health.
	BaseURL string
	// Prefix is prepended to every business endpoint, e.g. /api/v1.
	Prefix string
}

// Timeouts are the per-class request budgets.
type Timeouts struct {
	// Probe must tolerate a full cold start.
	Probe time.Duration
	// Predict covers single, batch and approve calls.
	Predict time.Duration
	// Light covers model info, feature importance and model health.
	Light time.Duration
}

// RetryConfig shapes the single-prediction retry.
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Addr string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Prefix:  "/api/v1",
		},
		Timeouts: Timeouts{
			Probe:   120 * time.Second,
			Predict: 120 * time.Second,
			Light:   30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 2,
			Delay:       3 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load resolves the configuration from v. It follows this precedence:
// 1. Viper configuration (flags, config file, FRAUDWATCH_ env vars)
// 2. The FRAUD_API_URL environment variable for the service root
// 3. Default values
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()

	if s := v.GetString(KeyAPIURL); s != "" {
		cfg.API.BaseURL = s
	} else if s := os.Getenv(fallbackAPIURLEnvVar); s != "" {
		cfg.API.BaseURL = s
	}
	if v.IsSet(KeyAPIPrefix) {
		cfg.API.Prefix = v.GetString(KeyAPIPrefix)
	}
	if d := v.GetDuration(KeyProbeTimeout); d != 0 {
		cfg.Timeouts.Probe = d
	}
	if d := v.GetDuration(KeyPredictTimeout); d != 0 {
		cfg.Timeouts.Predict = d
	}
	if d := v.GetDuration(KeyLightTimeout); d != 0 {
		cfg.Timeouts.Light = d
	}
	if n := v.GetInt(KeyRetryMaxAttempts); n != 0 {
		cfg.Retry.MaxAttempts = n
	}
	if v.IsSet(KeyRetryDelay) {
		cfg.Retry.Delay = v.GetDuration(KeyRetryDelay)
	}
	if s := v.GetString(KeyLogLevel); s != "" {
		cfg.Logging.Level = s
	}
	if s := v.GetString(KeyLogFormat); s != "" {
		cfg.Logging.Format = s
	}
	cfg.Metrics.Addr = v.GetString(KeyMetricsAddr)

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	cfg.API.Prefix = normalizePrefix(cfg.API.Prefix)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a client.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api.url must be an absolute http(s) URL, got %q", common.ErrInvalidConfig, c.API.BaseURL)
	}
	if c.Timeouts.Probe <= 0 || c.Timeouts.Predict <= 0 || c.Timeouts.Light <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", common.ErrInvalidConfig)
	}
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 2 {
		return fmt.Errorf("%w: retry.max_attempts must be 1 or 2, got %d", common.ErrInvalidConfig, c.Retry.MaxAttempts)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("%w: retry.delay cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// normalizePrefix yields "" or a path with one leading slash and no trailing slash.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return "/" + prefix
}
