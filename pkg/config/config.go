// Package config provides configuration loading and management for uncertaintymap.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"uncertaintymap/pkg/mapping"
	"uncertaintymap/pkg/plane"
	"uncertaintymap/pkg/raymarch"
)

// Volume sources understood by the analysis pipeline
const (
	SourceCube   = "cube"
	SourceSphere = "sphere"
	SourceImages = "images"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many goroutines march rays in parallel
		NumCores int `yaml:"numCores"`

		// Seed seeds the random plane search; 0 picks a time-based seed
		Seed int64 `yaml:"seed"`
	} `yaml:"processing"`

	// Volume describes where the uncertainty grid comes from
	Volume struct {
		// Source is one of "cube", "sphere" or "images"
		Source string `yaml:"source"`

		// InputDir holds the numbered grayscale slices for the "images" source
		InputDir string `yaml:"inputDir"`

		// Dims is the (H, W, D) size of a generated phantom
		Dims [3]int `yaml:"dims"`

		// CubeSize, Background and Inner shape the cube phantom
		CubeSize   int     `yaml:"cubeSize"`
		Background float64 `yaml:"background"`
		Inner      float64 `yaml:"inner"`

		// Radius, Core and Rim shape the sphere phantom
		Radius float64 `yaml:"radius"`
		Core   float64 `yaml:"core"`
		Rim    float64 `yaml:"rim"`

		// Origin and Spacing place the grid in world space
		Origin  [3]float64 `yaml:"origin"`
		Spacing [3]float64 `yaml:"spacing"`
	} `yaml:"volume"`

	// Plane search parameters
	Plane struct {
		MaxIterations     int     `yaml:"maxIterations"`
		GoodnessThreshold float64 `yaml:"goodnessThreshold"`
		Thickness         float64 `yaml:"thickness"`

		// WorstFraction selects the share of highest-uncertainty voxels fed
		// to the SVD fit
		WorstFraction float64 `yaml:"worstFraction"`
	} `yaml:"plane"`

	// Surface mapping parameters
	Mapping struct {
		Registration      mapping.Registration `yaml:"registration"`
		Accumulation      raymarch.Policy      `yaml:"accumulation"`
		Scaling           mapping.Scaling      `yaml:"scaling"`
		Palette           mapping.Palette      `yaml:"palette"`
		SamplingFraction  float64              `yaml:"samplingFraction"`
		InvertNormals     bool                 `yaml:"invertNormals"`
		NegateAxes        [3]bool              `yaml:"negateAxes"`
		DebugRegistration bool                 `yaml:"debugRegistration"`
		DebugMarker       float64              `yaml:"debugMarker"`

		// The probe surface is a UV sphere with this tessellation
		SphereRings    int     `yaml:"sphereRings"`
		SphereSegments int     `yaml:"sphereSegments"`
		SphereRadius   float64 `yaml:"sphereRadius"`
	} `yaml:"mapping"`

	// Spherical texture parameters
	Texture struct {
		Enabled bool            `yaml:"enabled"`
		Width   int             `yaml:"width"`
		Height  int             `yaml:"height"`
		Scaling mapping.Scaling `yaml:"scaling"`
		Palette mapping.Palette `yaml:"palette"`
	} `yaml:"texture"`

	// Output parameters
	Output struct {
		// Dir receives images and the YAML report
		Dir string `yaml:"dir"`

		// SaveIntermediaryResults also writes the middle slice of the volume
		// along every axis
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// HistogramBins is the bin count of the intensity histogram plot
		HistogramBins int `yaml:"histogramBins"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is a zerolog level name
		Level string `yaml:"level"`

		// Console selects the human-readable writer instead of JSON
		Console bool `yaml:"console"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.Seed = 1

	cfg.Volume.Source = SourceCube
	cfg.Volume.Dims = [3]int{32, 32, 32}
	cfg.Volume.CubeSize = 12
	cfg.Volume.Background = 10
	cfg.Volume.Inner = 90
	cfg.Volume.Radius = 12
	cfg.Volume.Core = 5
	cfg.Volume.Rim = 100
	cfg.Volume.Spacing = [3]float64{1, 1, 1}

	def := plane.DefaultRandomSearchConfig()
	cfg.Plane.MaxIterations = def.MaxIterations
	cfg.Plane.GoodnessThreshold = def.GoodnessThreshold
	cfg.Plane.Thickness = def.Thickness
	cfg.Plane.WorstFraction = 0.05

	opts := mapping.DefaultOptions()
	cfg.Mapping.Registration = mapping.SphericalProjection
	cfg.Mapping.Accumulation = opts.Accumulation
	cfg.Mapping.Scaling = mapping.LinearScaling
	cfg.Mapping.Palette = opts.Palette
	cfg.Mapping.SamplingFraction = opts.SamplingFraction
	cfg.Mapping.InvertNormals = true
	cfg.Mapping.DebugMarker = opts.DebugMarker
	cfg.Mapping.SphereRings = 24
	cfg.Mapping.SphereSegments = 48
	cfg.Mapping.SphereRadius = 1

	tex := mapping.DefaultTextureOptions()
	cfg.Texture.Enabled = true
	cfg.Texture.Width = tex.Width
	cfg.Texture.Height = tex.Height
	cfg.Texture.Scaling = tex.Scaling
	cfg.Texture.Palette = tex.Palette

	cfg.Output.Dir = "output"
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.HistogramBins = 32

	cfg.Logging.Level = "info"
	cfg.Logging.Console = true

	return cfg
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Volume.Source {
	case SourceCube, SourceSphere:
		for _, d := range c.Volume.Dims {
			if d < 1 {
				errs = append(errs, fmt.Errorf("volume dims must be positive, got %v", c.Volume.Dims))
				break
			}
		}
	case SourceImages:
		if c.Volume.InputDir == "" {
			errs = append(errs, errors.New("volume inputDir is required for the images source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown volume source %q", c.Volume.Source))
	}
	for _, s := range c.Volume.Spacing {
		if s <= 0 {
			errs = append(errs, fmt.Errorf("volume spacing must be positive, got %v", c.Volume.Spacing))
			break
		}
	}

	if c.Plane.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("plane maxIterations must not be negative, got %d", c.Plane.MaxIterations))
	}
	if c.Plane.Thickness < 0 {
		errs = append(errs, fmt.Errorf("plane thickness must not be negative, got %f", c.Plane.Thickness))
	}
	if c.Plane.WorstFraction <= 0 || c.Plane.WorstFraction > 1 {
		errs = append(errs, fmt.Errorf("plane worstFraction must be in (0, 1], got %f", c.Plane.WorstFraction))
	}

	if !(c.Mapping.SamplingFraction > 0 && c.Mapping.SamplingFraction <= 100) {
		errs = append(errs, fmt.Errorf("mapping %w, got %f", raymarch.ErrInvalidFraction, c.Mapping.SamplingFraction))
	}
	if c.Mapping.SphereRings < 2 || c.Mapping.SphereSegments < 3 {
		errs = append(errs, fmt.Errorf("mapping sphere needs at least 2 rings and 3 segments, got %d and %d",
			c.Mapping.SphereRings, c.Mapping.SphereSegments))
	}
	if c.Mapping.SphereRadius <= 0 {
		errs = append(errs, fmt.Errorf("mapping sphereRadius must be positive, got %f", c.Mapping.SphereRadius))
	}

	if c.Texture.Enabled && (c.Texture.Width < 1 || c.Texture.Height < 1) {
		errs = append(errs, fmt.Errorf("texture size must be positive, got %dx%d", c.Texture.Width, c.Texture.Height))
	}
	if c.Output.HistogramBins < 1 {
		errs = append(errs, fmt.Errorf("output histogramBins must be positive, got %d", c.Output.HistogramBins))
	}

	return errors.Join(errs...)
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Fields missing from the file keep their defaults
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

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

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
