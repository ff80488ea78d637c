// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Port        string   `env:"PORT"                 envDefault:"8080"`
	GRPCPort    string   `env:"GRPC_PORT"            envDefault:"9090"`
	FrontendURL string   `env:"FRONTEND_URL"`
	CORSOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	LogLevel    string   `env:"LOG_LEVEL"            envDefault:"info"`

	DB   DBConfig
	Auth AuthConfig

	// DashboardSessionLimit caps how many recent sessions feed the dashboard.
	DashboardSessionLimit int `env:"DASHBOARD_SESSION_LIMIT" envDefault:"50"`
	// SessionAutocompleteAfter completes sessions left open longer than this.
	// Zero disables the reconciler.
	SessionAutocompleteAfter time.Duration `env:"SESSION_AUTOCOMPLETE_AFTER" envDefault:"0"`
	ReconcileInterval        time.Duration `env:"RECONCILE_INTERVAL"         envDefault:"1m"`
}

// MinAutocompleteAfter is the shortest enabled reconciler threshold.
const MinAutocompleteAfter = 2 * time.Minute

// DBConfig selects and tunes the store backend.
type DBConfig struct {
	Driver         string        `env:"DB_DRIVER"           envDefault:"sqlite"`
	Path           string        `env:"DB_PATH"             envDefault:"./data/confido.db"`
	URL            string        `env:"DATABASE_URL"`
	MaxRetries     uint64        `env:"DB_MAX_RETRIES"      envDefault:"3"`
	RetryBaseDelay time.Duration `env:"DB_RETRY_BASE_DELAY" envDefault:"100ms"`
}

// AuthConfig verifies bearer identity tokens.
type AuthConfig struct {
	Secret   string `env:"JWT_SECRET"`
	Issuer   string `env:"JWT_ISSUER"`
	Audience string `env:"JWT_AUDIENCE"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}
	return FromEnv()
}

// FromEnv parses configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return errors.New("DB_PATH cannot be empty")
		}
	case "postgres":
		if c.DB.URL == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DB.Driver)
	}
	if c.Auth.Secret == "" {
		return errors.New("JWT_SECRET cannot be empty")
	}
	if c.DashboardSessionLimit <= 0 {
		return errors.New("DASHBOARD_SESSION_LIMIT must be > 0")
	}
	if c.SessionAutocompleteAfter < 0 {
		return errors.New("SESSION_AUTOCOMPLETE_AFTER cannot be negative")
	}
	// Open views heartbeat every 30s; a shorter window would reap them.
	if c.SessionAutocompleteAfter > 0 && c.SessionAutocompleteAfter < MinAutocompleteAfter {
		return fmt.Errorf("SESSION_AUTOCOMPLETE_AFTER must be 0 or at least %s", MinAutocompleteAfter)
	}
	if c.ReconcileInterval <= 0 {
		return errors.New("RECONCILE_INTERVAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS allow list. Without an explicit list the
// frontend URL is allowed, and development mode allows any origin.
func (c *Config) AllowedOrigins() []string {
	if len(c.CORSOrigins) > 0 {
		return c.CORSOrigins
	}
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
