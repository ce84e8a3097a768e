// Package config provides configuration loading and management for mrigibbs.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel slice processing
		NumCores int `yaml:"numCores"`

		// SliceAxis selects which volume axis enumerates the 2D slices (0, 1 or 2)
		SliceAxis int `yaml:"sliceAxis"`

		// NPoints is the neighborhood size used when scoring local total variation
		NPoints int `yaml:"nPoints"`

		// MinShift is the smallest trial sub-voxel shift, in voxel units
		MinShift float64 `yaml:"minShift"`

		// MaxShift is the largest trial sub-voxel shift, in voxel units
		MaxShift float64 `yaml:"maxShift"`

		// ShiftSteps is the number of evenly spaced trial shifts searched per voxel
		ShiftSteps int `yaml:"shiftSteps"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Format selects the corrected slice image format ("png" or "jpeg")
		Format string `yaml:"format"`

		// SaveDiffMaps determines whether per-slice difference maps are written
		SaveDiffMaps bool `yaml:"saveDiffMaps"`

		// DiffMapsDir is the directory difference maps are written to.
		// Empty selects a diff_maps directory beside the corrected slices.
		DiffMapsDir string `yaml:"diffMapsDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values. The
// processing defaults match the corrector's own defaults, so an empty
// configuration file changes nothing.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.SliceAxis = 2
	cfg.Processing.NPoints = 3
	cfg.Processing.MinShift = 0.02
	cfg.Processing.MaxShift = 0.9
	cfg.Processing.ShiftSteps = 45

	// Set default output parameters
	cfg.Output.Format = "png"
	cfg.Output.SaveDiffMaps = false
	cfg.Output.DiffMapsDir = ""
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
