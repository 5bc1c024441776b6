// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Dispatch DispatchConfig
	Store    StoreConfig
	Log      LogConfig
}

// DispatchConfig holds dispatcher settings.
type DispatchConfig struct {
	HistoryCapacity int `mapstructure:"history_capacity"`
}

// StoreConfig holds state-store settings.
type StoreConfig struct {
	SettingsPath    string        `mapstructure:"settings_path"`
	SettingsKey     string        `mapstructure:"settings_key"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	NotificationTTL time.Duration `mapstructure:"notification_ttl"`
	WatchSettings   bool          `mapstructure:"watch_settings"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix
// FLOURISH_. A missing config file is fine; defaults apply.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("dispatch.history_capacity", 100)
	v.SetDefault("store.settings_path", filepath.Join(os.Getenv("HOME"), ".local", "share", "flourish", "settings.json"))
	v.SetDefault("store.settings_key", "flourish/settings")
	v.SetDefault("store.cache_ttl", "5m")
	v.SetDefault("store.notification_ttl", "5s")
	v.SetDefault("store.watch_settings", false)
	v.SetDefault("log.level", "info")

	v.SetConfigType("yaml")

	cfgPath := os.Getenv("FLOURISH_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "flourish"))
		v.SetConfigName("flourish")
	}

	v.SetEnvPrefix("FLOURISH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// LogLevel maps the configured level name onto a slog level.
func (c Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
