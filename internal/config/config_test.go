package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, ":8000", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "adventskalender.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL())
	assert.Equal(t, time.Hour, cfg.Auth.SweepInterval)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10, cfg.RateLimit.AuthPerMinute)
	assert.False(t, cfg.RateLimit.TrustProxyHeaders)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "server:\n  port: 9100\ndatabase:\n  path: /tmp/advent.db\nauth:\n  session_ttl_hours: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("ADVENT_LOGGER_LEVEL", "debug")
	t.Setenv("ADVENT_SERVER_PORT", "9200")
	t.Setenv("ADVENT_RATELIMIT_TRUST_PROXY_HEADERS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "/tmp/advent.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL())
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.RateLimit.TrustProxyHeaders)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ADVENT_SERVER_PORT", "0")

	_, err := Load("")
	assert.Error(t, err)
}
