package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "9090", cfg.GRPCPort)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "./data/confido.db", cfg.DB.Path)
	assert.EqualValues(t, 3, cfg.DB.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.DB.RetryBaseDelay)
	assert.Equal(t, 50, cfg.DashboardSessionLimit)
	assert.Zero(t, cfg.SessionAutocompleteAfter)
	assert.Equal(t, time.Minute, cfg.ReconcileInterval)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://confido@db/confido")
	t.Setenv("FRONTEND_URL", "https://app.confido.dev")
	t.Setenv("SESSION_AUTOCOMPLETE_AFTER", "2h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.dev,https://b.dev")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 2*time.Hour, cfg.SessionAutocompleteAfter)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, cfg.AllowedOrigins())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Port:                  "8080",
			DB:                    DBConfig{Driver: "sqlite", Path: "x.db"},
			Auth:                  AuthConfig{Secret: "s"},
			DashboardSessionLimit: 50,
			ReconcileInterval:     time.Minute,
		}
	}
	good := base()
	require.NoError(t, good.Validate())

	cases := map[string]func(*Config){
		"missing secret":    func(c *Config) { c.Auth.Secret = "" },
		"unknown driver":    func(c *Config) { c.DB.Driver = "mysql" },
		"postgres no url":   func(c *Config) { c.DB.Driver = "postgres" },
		"empty port":        func(c *Config) { c.Port = "" },
		"zero limit":        func(c *Config) { c.DashboardSessionLimit = 0 },
		"negative autodone": func(c *Config) { c.SessionAutocompleteAfter = -time.Second },
		"short autodone":    func(c *Config) { c.SessionAutocompleteAfter = 45 * time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestAllowedOriginsProduction(t *testing.T) {
	c := Config{FrontendURL: "https://app.confido.dev"}
	assert.Equal(t, []string{"https://app.confido.dev"}, c.AllowedOrigins())
}
