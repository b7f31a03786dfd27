// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Game  GameConfig  `toml:"game"`
	Audio AudioConfig `toml:"audio"`
	Log   LogConfig   `toml:"log"`
}

// GameConfig maps round pacing settings.
type GameConfig struct {
	AutoPlay       *bool `toml:"autoplay"`
	SuccessDelayMs *int  `toml:"success-delay-ms"`
	FailureDelayMs *int  `toml:"failure-delay-ms"`
}

// AudioConfig maps sound output settings.
type AudioConfig struct {
	Enabled *bool    `toml:"enabled"`
	Volume  *float64 `toml:"volume"`
}

// LogConfig maps the log file settings.
type LogConfig struct {
	Level *string `toml:"level"`
	Path  *string `toml:"path"`
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
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
