package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uncertaintymap/pkg/mapping"
	"uncertaintymap/pkg/raymarch"
)

// TestDefaultConfigIsValid verifies the defaults pass validation
func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Plane.MaxIterations)
	assert.Equal(t, 0.5, cfg.Plane.GoodnessThreshold)
	assert.Equal(t, 1.0, cfg.Plane.Thickness)
	assert.Equal(t, 100.0, cfg.Mapping.SamplingFraction)
	assert.Equal(t, raymarch.Average, cfg.Mapping.Accumulation)
}

// TestLoadMissingFile verifies a missing file yields the defaults
func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

// TestSaveLoadRoundTrip verifies enums and nested sections survive YAML
func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Mapping.Registration = mapping.BoundingBoxNormalize
	cfg.Mapping.Accumulation = raymarch.Maximum
	cfg.Mapping.Scaling = mapping.HistogramEqualize
	cfg.Mapping.Palette = mapping.RedBlack
	cfg.Mapping.NegateAxes = [3]bool{true, false, true}
	cfg.Volume.Source = SourceSphere
	cfg.Plane.MaxIterations = 42
	require.NoError(t, SaveConfig(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "registration: bbox")
	assert.Contains(t, string(data), "accumulation: maximum")
	assert.Contains(t, string(data), "scaling: equalize")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// TestLoadPartialFile verifies fields missing from the file keep defaults
func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlText := "mapping:\n  accumulation: minimum\n  palette: redblack\nplane:\n  maxIterations: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, raymarch.Minimum, cfg.Mapping.Accumulation)
	assert.Equal(t, mapping.RedBlack, cfg.Mapping.Palette)
	assert.Equal(t, 3, cfg.Plane.MaxIterations)
	assert.Equal(t, DefaultConfig().Volume, cfg.Volume)
}

// TestLoadRejectsUnknownEnum verifies enum names are checked while parsing
func TestLoadRejectsUnknownEnum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mapping:\n  scaling: cubic\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

// TestValidate verifies invalid settings are reported together
func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Volume.Source = "dicom"
	cfg.Mapping.SamplingFraction = 0
	cfg.Plane.WorstFraction = 2

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, raymarch.ErrInvalidFraction)
	assert.Contains(t, err.Error(), "dicom")
	assert.Contains(t, err.Error(), "worstFraction")

	cfg = DefaultConfig()
	cfg.Volume.Source = SourceImages
	assert.Error(t, cfg.Validate())
	cfg.Volume.InputDir = "slices"
	assert.NoError(t, cfg.Validate())
}

// TestCreateDefaultConfigFile verifies the written file loads back as defaults
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
