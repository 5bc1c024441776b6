package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FLOURISH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Dispatch.HistoryCapacity)
	assert.Equal(t, "flourish/settings", cfg.Store.SettingsKey)
	assert.Equal(t, 5*time.Minute, cfg.Store.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Store.NotificationTTL)
	assert.False(t, cfg.Store.WatchSettings)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flourish.yaml")
	doc := `
dispatch:
  history_capacity: 250
store:
  cache_ttl: 90s
  watch_settings: true
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	t.Setenv("FLOURISH_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Dispatch.HistoryCapacity)
	assert.Equal(t, 90*time.Second, cfg.Store.CacheTTL)
	assert.True(t, cfg.Store.WatchSettings)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	// Unset keys keep their defaults.
	assert.Equal(t, 5*time.Second, cfg.Store.NotificationTTL)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FLOURISH_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("FLOURISH_LOG_LEVEL", "error")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelError, cfg.LogLevel())
}
