package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "waterfall.db", cfg.DBPath)
	assert.Equal(t, "./specs", cfg.SpecsDir)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WATERFALL_DB", "/tmp/w.db")
	t.Setenv("WATERFALL_SPECS", "/etc/waterfalls")
	t.Setenv("WATERFALL_SWEEP_INTERVAL", "5s")
	t.Setenv("WATERFALL_LOG_LEVEL", "debug")
	t.Setenv("WATERFALL_LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/w.db", cfg.DBPath)
	assert.Equal(t, "/etc/waterfalls", cfg.SpecsDir)
	assert.Equal(t, 5*time.Second, cfg.SweepInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("WATERFALL_SWEEP_INTERVAL", "often")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	base := Config{SweepInterval: time.Second, LogLevel: "info", LogFormat: "text"}
	require.NoError(t, base.Validate())

	tests := []struct {
		name string
		edit func(c *Config)
		want string
	}{
		{"negative interval", func(c *Config) { c.SweepInterval = -time.Second }, "WATERFALL_SWEEP_INTERVAL"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "WATERFALL_LOG_LEVEL"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "WATERFALL_LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.edit(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateZeroIntervalDisablesSweep(t *testing.T) {
	cfg := Config{LogLevel: "warn", LogFormat: "JSON"}
	assert.NoError(t, cfg.Validate())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "info", LogFormat: "json"}
	logger := cfg.NewLogger(&buf, false)

	logger.Debug("hidden")
	logger.Info("offer sent", "load_id", "L1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "offer sent", rec["msg"])
	assert.Equal(t, "L1", rec["load_id"])
}

func TestNewLoggerVerbose(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "error", LogFormat: "text"}
	logger := cfg.NewLogger(&buf, true)

	logger.Debug("tier activated", "tier_rank", 2)
	assert.Contains(t, buf.String(), "tier activated")
	assert.Contains(t, buf.String(), "tier_rank=2")
}
