// Package config loads server configuration from defaults, an optional
// YAML file, and APIMOCKR_* environment variables, in increasing
// precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	// ListenAddr is the host:port the HTTP server binds.
	ListenAddr string `mapstructure:"listen_addr" validate:"required,hostname_port"`

	// DatabasePath is the SQLite file, or ":memory:" for an ephemeral
	// store.
	DatabasePath string `mapstructure:"database_path" validate:"required"`

	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`

	// TrustProxy makes rate limiting key on X-Forwarded-For.
	TrustProxy bool `mapstructure:"trust_proxy"`

	RateLimit RateLimit `mapstructure:"rate_limit"`
	Reset     Reset     `mapstructure:"reset"`
}

// RateLimit holds both limiter knobs.
type RateLimit struct {
	// Rate is the sustained per-IP allowance in requests per second.
	Rate float64 `mapstructure:"rate" validate:"gt=0"`

	// Burst is the per-IP bucket capacity. Zero derives it from Rate.
	Burst int `mapstructure:"burst" validate:"gte=0"`

	// DailyWrites is the per-IP quota of mutating requests per UTC day.
	DailyWrites int `mapstructure:"daily_writes" validate:"gt=0"`
}

// Reset controls the scheduled data reset.
type Reset struct {
	// Enabled turns the nightly reseed on.
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration. path may be empty, in which case only
// defaults and environment variables apply; a named file that is missing
// is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listen_addr", ":3000")
	v.SetDefault("database_path", "apimockr.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("trust_proxy", false)
	v.SetDefault("rate_limit.rate", 100.0)
	v.SetDefault("rate_limit.burst", 0)
	v.SetDefault("rate_limit.daily_writes", 100)
	v.SetDefault("reset.enabled", true)

	v.SetEnvPrefix("APIMOCKR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
