package analysis

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"uncertaintymap/internal/metrics"
	"uncertaintymap/pkg/config"
	"uncertaintymap/pkg/mapping"
)

// createTestImage creates a grayscale test image with the specified dimensions and pattern
func createTestImage(width, height int, pattern func(x, y int) uint16) image.Image {
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.Gray16{Y: pattern(x, y)})
		}
	}
	return img
}

// writePNG saves img under dir/name
func writePNG(t *testing.T, dir, name string, img image.Image) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("Failed to create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", name, err)
	}
}

// createTestConfig returns a small, fast configuration writing into a temp dir
func createTestConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Processing.NumCores = 2
	cfg.Volume.Dims = [3]int{12, 12, 12}
	cfg.Volume.CubeSize = 4
	cfg.Volume.Radius = 4
	cfg.Mapping.SphereRings = 6
	cfg.Mapping.SphereSegments = 8
	cfg.Texture.Width = 16
	cfg.Texture.Height = 8
	cfg.Output.Dir = t.TempDir()
	return cfg
}

// TestExtractNumber verifies numeric ordering keys
func TestExtractNumber(t *testing.T) {
	tests := []struct {
		filename string
		expected int
	}{
		{"slice_001.png", 1},
		{"slice10.jpg", 10},
		{"/path/to/slice_42.jpeg", 42},
		{"no_number.png", 0},
		{"a1b2.png", 12},
	}

	for _, tt := range tests {
		if got := extractNumber(tt.filename); got != tt.expected {
			t.Errorf("extractNumber(%q) = %d, expected %d", tt.filename, got, tt.expected)
		}
	}
}

// TestLoadSlicesAndStack verifies numeric ordering and the voxel layout
func TestLoadSlicesAndStack(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []int{10, 2, 1} {
		value := uint16(n * 1000)
		writePNG(t, dir, fmt.Sprintf("slice_%d.png", n), createTestImage(4, 3, func(x, y int) uint16 {
			return value + uint16(10*y+x)
		}))
	}
	// Non-image files are ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	slices, err := loadSlices(dir)
	if err != nil {
		t.Fatalf("Failed to load slices: %v", err)
	}
	if len(slices) != 3 {
		t.Fatalf("Expected 3 slices, got %d", len(slices))
	}
	want := []string{"slice_1.png", "slice_2.png", "slice_10.png"}
	for i, s := range slices {
		if s.Filename != want[i] || s.Index != i {
			t.Errorf("Slice %d: got %s (index %d), expected %s", i, s.Filename, s.Index, want[i])
		}
	}

	grid, err := slicesToGrid(slices)
	if err != nil {
		t.Fatalf("Failed to stack slices: %v", err)
	}
	if grid.Dims() != [3]int{3, 3, 4} {
		t.Errorf("Expected dims [3 3 4], got %v", grid.Dims())
	}

	// voxel (i, j, k) is pixel (k, j) of slice i
	v, err := grid.Value(2, 1, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v != 10000+13 {
		t.Errorf("Expected 10013, got %f", v)
	}
}

// TestLoadSlicesErrors verifies empty and inconsistent stacks are rejected
func TestLoadSlicesErrors(t *testing.T) {
	if _, err := loadSlices(t.TempDir()); err == nil {
		t.Error("Expected error for directory without images")
	}
	if _, err := loadSlices(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}

	dir := t.TempDir()
	writePNG(t, dir, "s1.png", createTestImage(4, 4, func(x, y int) uint16 { return 1 }))
	writePNG(t, dir, "s2.png", createTestImage(5, 4, func(x, y int) uint16 { return 1 }))
	if _, err := loadSlices(dir); err == nil {
		t.Error("Expected error for slices of different sizes")
	}

	if _, err := slicesToGrid(nil); err == nil {
		t.Error("Expected error for empty slice list")
	}
}

// TestSummarize verifies NaN and Inf are excluded from statistics
func TestSummarize(t *testing.T) {
	s := summarize([]float64{4, math.NaN(), 1, math.Inf(1), 7})
	if s.Count != 3 || s.Min != 1 || s.Max != 7 || s.Mean != 4 || s.Median != 4 {
		t.Errorf("Unexpected summary %+v", s)
	}
	if s.StdDev != 3 {
		t.Errorf("Expected standard deviation 3, got %f", s.StdDev)
	}

	empty := summarize([]float64{math.NaN()})
	if empty.Count != 0 || empty.Mean != 0 {
		t.Errorf("Expected empty summary, got %+v", empty)
	}
}

// TestNewAnalyzer verifies configuration validation
func TestNewAnalyzer(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.Mapping.SamplingFraction = 150
	if _, err := NewAnalyzer(cfg, nil, nil); err == nil {
		t.Error("Expected error for invalid sampling fraction")
	}

	a, err := NewAnalyzer(nil, nil, nil)
	if err != nil {
		t.Fatalf("Default configuration rejected: %v", err)
	}
	if _, err := a.FitPlanes(); err == nil {
		t.Error("Expected error fitting planes before loading a volume")
	}
	if err := a.MapSurface(); err == nil {
		t.Error("Expected error mapping before loading a volume")
	}
}

// TestFitPlanes verifies both fitters run on the cube phantom
func TestFitPlanes(t *testing.T) {
	cfg := createTestConfig(t)
	m := metrics.New()
	a, err := NewAnalyzer(cfg, nil, m)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	if err := a.LoadVolume(); err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}

	results, err := a.FitPlanes()
	if err != nil {
		t.Fatalf("Failed to fit planes: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 plane results, got %d", len(results))
	}

	random, svd := results[0], results[1]
	if random.Fitter != "random" || svd.Fitter != "svd" {
		t.Errorf("Unexpected fitter order %s, %s", random.Fitter, svd.Fitter)
	}
	if len(random.History) == 0 || len(random.History) > cfg.Plane.MaxIterations {
		t.Errorf("Unexpected history length %d", len(random.History))
	}
	if svd.Points < 1 || svd.Error != "" {
		t.Errorf("Expected SVD fit over points, got %+v", svd)
	}
	if math.Abs(1-math.Hypot(math.Hypot(svd.Plane.Normal.X, svd.Plane.Normal.Y), svd.Plane.Normal.Z)) > 1e-9 {
		t.Errorf("Expected unit SVD normal, got %v", svd.Plane.Normal)
	}
	if svd.Plane.Normal.X < 0 {
		t.Errorf("Expected canonical SVD normal, got %v", svd.Plane.Normal)
	}
	for _, r := range results {
		if r.Goodness < 0 || r.Goodness > 1 {
			t.Errorf("%s goodness %f outside [0, 1]", r.Fitter, r.Goodness)
		}
	}
}

// TestFitPlanesEmptyVolume verifies fitters without data are reported, not fatal
func TestFitPlanesEmptyVolume(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.Volume.Background = 0
	cfg.Volume.Inner = 0
	a, err := NewAnalyzer(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	if err := a.LoadVolume(); err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}

	results, err := a.FitPlanes()
	if err != nil {
		t.Fatalf("Failed to fit planes: %v", err)
	}
	if results[1].Error == "" {
		t.Error("Expected SVD fitter to report missing points")
	}
	if !math.IsNaN(results[0].Goodness) {
		t.Errorf("Expected NaN goodness on an empty volume, got %f", results[0].Goodness)
	}
}

// TestMapSurfaceSphere verifies spherical mapping of the sphere phantom
func TestMapSurfaceSphere(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.Volume.Source = config.SourceSphere
	cfg.Mapping.DebugRegistration = true

	a, err := NewAnalyzer(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	if err := a.LoadVolume(); err != nil {
		t.Fatalf("Failed to load volume: %v", err)
	}
	original := append([]float64(nil), a.Grid().Data()...)

	if err := a.MapSurface(); err != nil {
		t.Fatalf("Failed to map surface: %v", err)
	}

	res := a.Mapped()
	if len(res.Intensities) != 2+5*8 {
		t.Errorf("Expected 42 vertices, got %d", len(res.Intensities))
	}
	for i, v := range res.Intensities {
		if math.IsNaN(v) {
			t.Errorf("Vertex %d found no data", i)
		}
	}

	// Debug markers go into a copy
	for i, v := range a.Grid().Data() {
		if v != original[i] {
			t.Fatalf("Grid modified at %d", i)
		}
	}
}

// TestProcess runs the complete pipeline on the cube phantom
func TestProcess(t *testing.T) {
	// Skip this test for regular unit testing, as it renders plots
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := createTestConfig(t)
	cfg.Output.SaveIntermediaryResults = true
	cfg.Mapping.Scaling = mapping.HistogramEqualize

	a, err := NewAnalyzer(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	report, err := a.Process()
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}

	for _, name := range []string{ReportFile, HistogramFile, LegendFile, TextureFile} {
		if _, err := os.Stat(filepath.Join(cfg.Output.Dir, name)); err != nil {
			t.Errorf("Expected output %s: %v", name, err)
		}
	}
	slices, _ := filepath.Glob(filepath.Join(cfg.Output.Dir, SlicesDir, "*.png"))
	if len(slices) != 3 {
		t.Errorf("Expected 3 intermediary slices, got %d", len(slices))
	}

	loaded, err := LoadReport(filepath.Join(cfg.Output.Dir, ReportFile))
	if err != nil {
		t.Fatalf("Failed to load report: %v", err)
	}
	if loaded.Volume.Dims != [3]int{12, 12, 12} {
		t.Errorf("Unexpected dims %v", loaded.Volume.Dims)
	}
	if loaded.Mapping == nil || loaded.Mapping.Scaling != mapping.HistogramEqualize {
		t.Fatalf("Unexpected mapping summary %+v", loaded.Mapping)
	}
	if loaded.Mapping.EmptyRays != 0 {
		t.Errorf("Expected every ray to find data, %d were empty", loaded.Mapping.EmptyRays)
	}
	if loaded.Mapping.Legend.Known() {
		t.Error("Expected unknown legend for equalized scaling")
	}
	if loaded.Texture == nil || loaded.Texture.Width != 16 {
		t.Errorf("Unexpected texture summary %+v", loaded.Texture)
	}
	if len(loaded.Outputs) != len(report.Outputs) {
		t.Errorf("Report outputs differ: %d vs %d", len(loaded.Outputs), len(report.Outputs))
	}
}

// TestProcessImageStack runs the pipeline on a generated image stack
func TestProcessImageStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	inputDir := t.TempDir()
	// Concentric discs growing towards the middle slice
	for i := 0; i < 8; i++ {
		radius := 5 - math.Abs(float64(i)-3.5)
		writePNG(t, inputDir, fmt.Sprintf("slice_%d.png", i), createTestImage(16, 16, func(x, y int) uint16 {
			if math.Hypot(float64(x)-7.5, float64(y)-7.5) <= radius*1.5 {
				return uint16(1000 * (x + 1))
			}
			return 0
		}))
	}

	cfg := createTestConfig(t)
	cfg.Volume.Source = config.SourceImages
	cfg.Volume.InputDir = inputDir
	cfg.Texture.Enabled = false

	a, err := NewAnalyzer(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	report, err := a.Process()
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	if report.Volume.Slices != 8 || report.Volume.Dims != [3]int{8, 16, 16} {
		t.Errorf("Unexpected volume summary %+v", report.Volume)
	}
	if report.Texture != nil {
		t.Error("Expected no texture when disabled")
	}
}
