package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("BABYLOG_HTTP_PORT", "9191")
	t.Setenv("BABYLOG_API_KEY", "sekrit")
	t.Setenv("BABYLOG_RESET_ENABLED", "true")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.HTTPPort)
	assert.Equal(t, "sekrit", cfg.APIKey)
	assert.True(t, cfg.ResetEnabled)
	assert.Equal(t, ":9191", cfg.GetHTTPAddr())
}

func TestResolveDefaultsAutoPrefersPostgresWhenDSNSet(t *testing.T) {
	cfg := &Config{DBDriver: "auto", PostgresDSN: "postgres://x", SQLitePath: "x.db"}
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "postgres", cfg.DBDriver)
}

func TestResolveDefaultsAutoFallsBackToSqlite(t *testing.T) {
	cfg := &Config{DBDriver: "auto", SQLitePath: "x.db"}
	require.NoError(t, cfg.ResolveDefaults())
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestResolveDefaultsRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{DBDriver: "mongodb"}
	assert.Error(t, cfg.ResolveDefaults())
}

func TestResolveDefaultsPostgresRequiresDSN(t *testing.T) {
	cfg := &Config{DBDriver: "postgres"}
	assert.Error(t, cfg.ResolveDefaults())
}
