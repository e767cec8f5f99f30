// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Test     TestConfig     `toml:"test"`
	Selector SelectorConfig `toml:"selector"`
	Storage  StorageConfig  `toml:"storage"`
	Progress ProgressConfig `toml:"progress"`
	Log      LogConfig      `toml:"log"`
	Profile  ProfileConfig  `toml:"profile"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Tables     *[]int `toml:"tables"`
	RecentSize *int   `toml:"recent-size"`
}

// TestConfig maps test-related settings.
type TestConfig struct {
	Tables    *[]int  `toml:"tables"`
	Questions *int    `toml:"questions"`
	Speed     *string `toml:"speed"`
}

// SelectorConfig maps adaptive weighting settings.
type SelectorConfig struct {
	BaseWeight    *float64 `toml:"base-weight"`
	MinWeight     *float64 `toml:"min-weight"`
	SlowRatio     *float64 `toml:"slow-ratio"`
	SlowBoost     *float64 `toml:"slow-boost"`
	RecentDamping *float64 `toml:"recent-damping"`
	MaxFactor     *int     `toml:"max-factor"`
}

// StorageConfig selects the score backend.
type StorageConfig struct {
	Backend *string `toml:"backend"`
	Path    *string `toml:"path"`
}

// ProgressConfig maps progress view settings.
type ProgressConfig struct {
	Metric      *string `toml:"metric"`
	CurveWindow *int    `toml:"curve-window"`
	Top         *int    `toml:"top"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// ProfileConfig maps profile settings.
type ProfileConfig struct {
	Default *string `toml:"default"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func (c FileConfig) validate() error {
	if c.Storage.Backend != nil {
		switch *c.Storage.Backend {
		case BackendSQLite, BackendJSON:
		default:
			return fmt.Errorf("unknown storage backend %q (want %s or %s)", *c.Storage.Backend, BackendSQLite, BackendJSON)
		}
	}
	return nil
}
