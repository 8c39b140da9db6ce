package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 60, cfg.Lifecycle.SweepIntervalSec)
	assert.Equal(t, "gemini-1.5-flash", cfg.Moderation.Model)
	assert.Empty(t, cfg.Redis.Addr, "redis is opt-in")
	assert.Equal(t, 24, cfg.JWT.ExpireHours)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LIFECYCLE_SWEEP_INTERVAL_SEC", "15")
	t.Setenv("GEMINI_API_KEY", "k-123")
	t.Setenv("DATABASE_URL", "postgres://example/db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 15, cfg.Lifecycle.SweepIntervalSec)
	assert.Equal(t, "k-123", cfg.Moderation.APIKey)
	assert.Equal(t, "postgres://example/db", cfg.Database.DSN())
}

func TestDSNFromComponents(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", DBName: "polls", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@db:5432/polls?sslmode=disable", c.DSN())
}
