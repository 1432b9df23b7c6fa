// Package config loads runtime settings from the environment and builds the
// process logger.
//
// Every setting has a WATERFALL_ prefixed variable and a default; CLI flags
// override whatever is loaded here.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process-wide settings.
type Config struct {
	// DBPath is the SQLite database holding executions and the log.
	DBPath string `env:"WATERFALL_DB" envDefault:"waterfall.db"`
	// SpecsDir is the directory of CUE waterfall definitions.
	SpecsDir string `env:"WATERFALL_SPECS" envDefault:"./specs"`
	// SweepInterval is how often the run loop expires overdue offers.
	SweepInterval time.Duration `env:"WATERFALL_SWEEP_INTERVAL" envDefault:"30s"`
	LogLevel      string        `env:"WATERFALL_LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"WATERFALL_LOG_FORMAT" envDefault:"text"`
}

// Load parses Config from the environment and checks its values.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.SweepInterval < 0 {
		return fmt.Errorf("WATERFALL_SWEEP_INTERVAL must not be negative, got %s", c.SweepInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("WATERFALL_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("WATERFALL_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// NewLogger builds a slog logger writing to w in the configured format.
// verbose forces debug level.
func (c Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
