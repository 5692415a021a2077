// Package config loads the marionette CLI configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the versioned YAML document the CLI reads. Every field has a
// flag counterpart; flags win over the file.
type Config struct {
	Version int `yaml:"version"`

	// ProgramsDir is the default directory of .cue/.json programs.
	ProgramsDir string `yaml:"programs_dir"`

	// TraceDB is the default SQLite trace path. Empty disables tracing.
	TraceDB string `yaml:"trace_db"`

	Engine struct {
		// TickMs is the real-time clock interval in milliseconds.
		TickMs int `yaml:"tick_ms"`

		// MaxPerformances caps the live-performance set.
		MaxPerformances int `yaml:"max_performances"`
	} `yaml:"engine"`
}

// TickInterval returns the configured tick interval, defaulting to
// 16ms (~60 fps).
func (c *Config) TickInterval() time.Duration {
	if c.Engine.TickMs <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(c.Engine.TickMs) * time.Millisecond
}

// MaxPerformances returns the configured cap, or 0 for the engine
// default.
func (c *Config) MaxPerformances() int {
	if c.Engine.MaxPerformances < 0 {
		return 0
	}
	return c.Engine.MaxPerformances
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d", cfg.Version)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Version: 1}
}
