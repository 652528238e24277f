package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uncertaintymap/pkg/config"
	"uncertaintymap/pkg/mapping"
)

func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := executeCommand("init-config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	_, err = executeCommand("init-config", path)
	assert.Error(t, err)
}

func TestPlaneCommand(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "metrics.prom")

	out, err := executeCommand("plane",
		"--config", filepath.Join(dir, "missing.yaml"),
		"--log-level", "error",
		"--source", "sphere",
		"--iterations", "3",
		"--metrics-file", metricsPath,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "random")
	assert.Contains(t, out, "svd")
	assert.Equal(t, 2, strings.Count(out, "goodness="))

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "uncertaintymap_plane_candidates_total")
}

func TestApplyRunFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, runCmd.ParseFlags([]string{
		"--input", "slices",
		"--scaling", "equalize",
		"--palette", "redblack",
		"--no-texture",
	}))
	require.NoError(t, applyRunFlags(runCmd, cfg))

	assert.Equal(t, config.SourceImages, cfg.Volume.Source)
	assert.Equal(t, "slices", cfg.Volume.InputDir)
	assert.Equal(t, mapping.HistogramEqualize, cfg.Mapping.Scaling)
	assert.Equal(t, mapping.RedBlack, cfg.Texture.Palette)
	assert.False(t, cfg.Texture.Enabled)

	require.NoError(t, runCmd.ParseFlags([]string{"--registration", "affine"}))
	assert.Error(t, applyRunFlags(runCmd, config.DefaultConfig()))
}
