// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Judge   JudgeConfig   `toml:"judge"`
	Run     RunConfig     `toml:"run"`
	Grading GradingConfig `toml:"grading"`
	Log     LogConfig     `toml:"log"`
}

// JudgeConfig maps judge site settings.
type JudgeConfig struct {
	LoginURL    *string `toml:"login-url"`
	LoginMarker *string `toml:"login-marker"`
	TimeoutSec  *int    `toml:"timeout"`
}

// RunConfig maps defaults for a scoring run.
type RunConfig struct {
	LoginID    *string `toml:"id"`
	ListingURL *string `toml:"url"`
	Mode       *string `toml:"mode"`
	Fetch      *string `toml:"fetch"`
	MaxPages   *int    `toml:"max-pages"`
	Out        *string `toml:"out"`
	History    *bool   `toml:"history"`
}

// GradingConfig maps grade ratio settings.
type GradingConfig struct {
	UseRatio *bool    `toml:"ratio"`
	A        *float64 `toml:"a"`
	B        *float64 `toml:"b"`
	C        *float64 `toml:"c"`
	D        *float64 `toml:"d"`
	F        *float64 `toml:"f"`
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
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
