// Package config loads harvester host settings from the environment.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the host configuration.
type Config struct {
	// DataDir holds the history database; empty means ~/.harvester/data.
	DataDir  string `env:"HARVESTER_DATA_DIR"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Verbose  bool   `env:"HARVESTER_VERBOSE" envDefault:"false"`

	// MetricsAddr, when set, serves Prometheus metrics on that address.
	MetricsAddr string `env:"HARVESTER_METRICS_ADDR"`

	// HistoryLimit is the number of process records kept; 0 keeps all.
	HistoryLimit int `env:"HARVESTER_HISTORY_LIMIT" envDefault:"100"`

	// ShutdownTimeout bounds how long an interrupted run waits for abort.
	ShutdownTimeout time.Duration `env:"HARVESTER_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	Events EventsConfig
}

// EventsConfig configures the Redis process event stream.
type EventsConfig struct {
	// RedisAddr enables event publishing when set.
	RedisAddr string `env:"HARVESTER_REDIS_ADDR"`
	Password  string `env:"HARVESTER_REDIS_PASS"`
	DB        int    `env:"HARVESTER_REDIS_DB" envDefault:"0"`
	Stream    string `env:"HARVESTER_REDIS_STREAM" envDefault:"harvester:events"`
}

// Enabled reports whether events should be published.
func (c EventsConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.HistoryLimit < 0 {
		return fmt.Errorf("history limit must not be negative: %d", c.HistoryLimit)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive: %s", c.ShutdownTimeout)
	}

	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return fmt.Errorf("invalid metrics address %q: %w", c.MetricsAddr, err)
		}
	}

	if c.Events.Enabled() {
		if _, _, err := net.SplitHostPort(c.Events.RedisAddr); err != nil {
			return fmt.Errorf("invalid redis address %q: %w", c.Events.RedisAddr, err)
		}
		if c.Events.DB < 0 {
			return fmt.Errorf("invalid redis db: %d", c.Events.DB)
		}
		if c.Events.Stream == "" {
			return fmt.Errorf("redis stream is required")
		}
	}

	return nil
}
