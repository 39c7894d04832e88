// Package config loads the YAML config file. Everything in it has a working
// default, so a missing file is not an error and a fresh install runs without
// any setup beyond 'questforge init'.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kverlaine/questforge/internal/constants"
)

// Config is the file-backed configuration. The database location and debug
// flag can additionally be overridden by CLI flags, which win over the file.
type Config struct {
	// Database is a SQLite file path or a postgres:// connection string.
	Database string `yaml:"database"`
	// RemoteBaseURL is the sync/validation API endpoint. Empty disables all
	// remote calls; the app then runs fully local with the heuristic GM.
	RemoteBaseURL string `yaml:"remote_base_url"`
	// UserID identifies the local profile.
	UserID string `yaml:"user_id"`

	DrainIntervalMin int  `yaml:"drain_interval_min"`
	Debug            bool `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Database:         filepath.Join(home, ".config", constants.AppName, constants.AppName+".db"),
		UserID:           "local",
		DrainIntervalMin: constants.DefaultDrainIntervalMin,
	}
}

// DefaultPath returns the canonical config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", constants.AppName, "config.yaml")
}

// Load reads the config file at path, filling unset fields with defaults. A
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.Database == "" {
		cfg.Database = Default().Database
	}
	if cfg.UserID == "" {
		cfg.UserID = Default().UserID
	}
	if cfg.DrainIntervalMin <= 0 {
		cfg.DrainIntervalMin = constants.DefaultDrainIntervalMin
	}
	return cfg, nil
}

// Save writes the config file, creating the directory if needed.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
