package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"clinicops/internal/auth"
)

// Config holds user preferences. The logging section is owned by
// internal/logging; it is carried through load/save untouched so saving a
// theme change never drops logging settings.
type Config struct {
	Theme   string          `json:"theme"` // "light" or "dark"
	Logging json.RawMessage `json:"logging,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Theme: "light",
	}
}

// File returns the full path to the config file
func File() (string, error) {
	dir, err := auth.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk
func Load() (Config, error) {
	path, err := File()
	if err != nil {
		return DefaultConfig(), err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return DefaultConfig(), err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}
	if cfg.Theme == "" {
		cfg.Theme = "light"
	}

	return cfg, nil
}

// Save writes the configuration to disk
func Save(cfg Config) error {
	path, err := File()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
