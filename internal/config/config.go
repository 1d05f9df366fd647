package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ConfigFilename = "teledash.yaml"

// TLSConfig enables HTTPS serving when both paths are set. File-only.
type TLSConfig struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// Config holds everything the server needs. Precedence: environment >
// config file > built-in defaults. Durations are environment-only.
type Config struct {
	// Store connection. The telemetry relations are owned by the external
	// collector; this service only ever reads them.
	DatabaseURL           string `env:"DATABASE_URL"`
	DatabaseTLSSkipVerify bool   `env:"DATABASE_TLS_SKIP_VERIFY"`

	Host string `yaml:"host" env:"TELEDASH_HOST"`
	Port string `yaml:"port" env:"TELEDASH_PORT"`

	PageSize      int           `yaml:"page_size" env:"TELEDASH_PAGE_SIZE"`
	HistoryPoints int           `yaml:"history_points" env:"TELEDASH_HISTORY_POINTS"`
	CacheTTL      time.Duration `env:"TELEDASH_CACHE_TTL"`
	OnlineWindow  time.Duration `env:"TELEDASH_ONLINE_WINDOW"`

	PoolMaxConns       int32         `env:"TELEDASH_POOL_MAX_CONNS"`
	PoolAcquireTimeout time.Duration `env:"TELEDASH_POOL_ACQUIRE_TIMEOUT"`
	PoolIdleTimeout    time.Duration `env:"TELEDASH_POOL_IDLE_TIMEOUT"`

	// When set, the page-1 response cache lives in Redis instead of the
	// in-process slot.
	RedisURL string `yaml:"redis_url" env:"TELEDASH_REDIS_URL"`

	// Stats page strategy: one CTE + lateral-join round trip (true) or the
	// per-family resolver composition (false). Both produce the same view.
	SingleQuery bool `yaml:"single_query" env:"TELEDASH_SINGLE_QUERY"`

	TLS *TLSConfig `yaml:"tls"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "3001",
		PageSize:           10,
		HistoryPoints:      20,
		CacheTTL:           15 * time.Second,
		OnlineWindow:       5 * time.Minute,
		PoolMaxConns:       10,
		PoolAcquireTimeout: 5 * time.Second,
		PoolIdleTimeout:    30 * time.Second,
		SingleQuery:        true,
	}
}

func getExeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// GetConfigPath returns the config file location, overridable via env.
func GetConfigPath() string {
	if p := os.Getenv("TELEDASH_CONFIG_PATH"); p != "" {
		return p
	}
	return filepath.Join(getExeDir(), ConfigFilename)
}

// Load builds the effective configuration: a .env file if present, then the
// YAML config file, then environment overrides.
func Load() (*Config, error) {
	// Missing .env is fine; it is a development convenience.
	_ = godotenv.Load()

	cfg := Default()

	path := GetConfigPath()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = 10
	}
	if cfg.HistoryPoints < 1 {
		cfg.HistoryPoints = 20
	}

	return cfg, nil
}

// UseTLS reports whether HTTPS serving is configured.
func (c *Config) UseTLS() bool {
	return c.TLS != nil && c.TLS.Cert != "" && c.TLS.Key != ""
}
