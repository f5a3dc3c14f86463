// Package config loads application configuration from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML decoding of values like "24h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds application configuration.
type Config struct {
	// DataDir holds the database and the secret store.
	DataDir string `yaml:"data_dir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// ExactAlarms reports whether the platform grants precise wake-ups.
	ExactAlarms bool `yaml:"exact_alarms"`
	// InexactWindow quantizes best-effort wake-ups.
	InexactWindow Duration `yaml:"inexact_window"`
	// ReconcileInterval is the cadence of the reminder reconciliation job.
	ReconcileInterval Duration `yaml:"reconcile_interval"`
	// ReconcileInitialDelay is the startup grace before the first run.
	ReconcileInitialDelay Duration `yaml:"reconcile_initial_delay"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DataDir:               filepath.Join(home, ".subtrack"),
		LogLevel:              "info",
		ExactAlarms:           true,
		InexactWindow:         Duration(15 * time.Minute),
		ReconcileInterval:     Duration(24 * time.Hour),
		ReconcileInitialDelay: Duration(1 * time.Hour),
	}
}

// Load reads configuration from path, overlaying the defaults. A missing
// file is not an error: the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("reconcile_interval must be positive")
	}
	if c.ReconcileInitialDelay < 0 {
		return fmt.Errorf("reconcile_initial_delay must not be negative")
	}
	if c.InexactWindow < 0 {
		return fmt.Errorf("inexact_window must not be negative")
	}
	return nil
}
