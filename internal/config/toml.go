// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Data      DataConfig      `toml:"data"`
	Estimator EstimatorConfig `toml:"estimator"`
	Analysis  AnalysisConfig  `toml:"analysis"`
	Log       LogConfig       `toml:"log"`
}

// DataConfig maps dataset location settings.
type DataConfig struct {
	DB       *string `toml:"db"`
	Repo     *string `toml:"repo"`
	Filename *string `toml:"filename"`
	Revision *string `toml:"revision"`
}

// EstimatorConfig maps win probability simulation settings.
type EstimatorConfig struct {
	Trials               *int     `toml:"trials"`
	SecondsPerPossession *int     `toml:"seconds-per-possession"`
	PointsPerPossession  *float64 `toml:"points-per-possession"`
	Method               *string  `toml:"method"`
	CacheSize            *int     `toml:"cache-size"`
	Seed                 *uint64  `toml:"seed"`
}

// AnalysisConfig maps aggregation settings.
type AnalysisConfig struct {
	ClutchThreshold *float64 `toml:"clutch-threshold"`
	MaxShots        *int     `toml:"max-shots"`
	MemoSize        *int     `toml:"memo-size"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
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
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
