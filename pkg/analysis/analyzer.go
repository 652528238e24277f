// Package analysis runs the uncertainty analysis pipeline: it loads an
// uncertainty volume, fits scan planes through it, maps the uncertainty onto a
// probe surface and writes images plus a YAML report.
//
// The pipeline consists of several steps:
// 1. Loading the uncertainty volume (a phantom or a stack of images)
// 2. Fitting scan planes with the random search and the SVD fit
// 3. Mapping the volume onto a probe sphere along its normals
// 4. Building the spherical texture
// 5. Writing images and the report
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"uncertaintymap/internal/logger"
	"uncertaintymap/internal/metrics"
	"uncertaintymap/internal/models"
	"uncertaintymap/pkg/config"
	"uncertaintymap/pkg/mapping"
	"uncertaintymap/pkg/mesh"
	"uncertaintymap/pkg/plane"
	"uncertaintymap/pkg/raymarch"
	"uncertaintymap/pkg/visualization"
	"uncertaintymap/pkg/volume"
)

const component = "analysis"

// Output file names inside the output directory
const (
	ReportFile    = "report.yaml"
	HistogramFile = "histogram.png"
	LegendFile    = "legend.png"
	TextureFile   = "texture.png"
	SlicesDir     = "slices"
)

// Analyzer holds the state of one pipeline run
type Analyzer struct {
	// cfg is the validated run configuration
	cfg *config.Config

	log     logger.Logger
	metrics *metrics.Metrics

	// grid is the uncertainty volume and geometry its world placement
	grid     *volume.Grid
	geometry *volume.Geometry

	// debugGrid receives registration markers when debug registration is on
	debugGrid *volume.Grid

	// probe is the mapped surface and mapped the per-vertex result
	probe  *mesh.Mesh
	mapped *mapping.Result

	texture *mapping.Texture

	report models.Report
}

// NewAnalyzer creates an analyzer. A nil logger discards output and nil
// metrics get a private registry
func NewAnalyzer(cfg *config.Config, log logger.Logger, m *metrics.Metrics) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.New()
	}
	return &Analyzer{cfg: cfg, log: log, metrics: m}, nil
}

// Process runs the complete pipeline and returns the written report
func (a *Analyzer) Process() (*models.Report, error) {
	if err := os.MkdirAll(a.cfg.Output.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	a.log.Info(component, "Step 1: Loading uncertainty volume", map[string]interface{}{"source": a.cfg.Volume.Source})
	if err := a.LoadVolume(); err != nil {
		return nil, fmt.Errorf("failed to load volume: %w", err)
	}

	a.log.Info(component, "Step 2: Fitting scan planes", nil)
	if _, err := a.FitPlanes(); err != nil {
		return nil, fmt.Errorf("failed to fit planes: %w", err)
	}

	a.log.Info(component, "Step 3: Mapping uncertainty onto the probe surface", nil)
	if err := a.MapSurface(); err != nil {
		return nil, fmt.Errorf("failed to map surface: %w", err)
	}

	if a.cfg.Texture.Enabled {
		a.log.Info(component, "Step 4: Building spherical texture", nil)
		if err := a.BuildTexture(); err != nil {
			return nil, fmt.Errorf("failed to build texture: %w", err)
		}
	} else {
		a.log.Info(component, "Step 4: Spherical texture disabled, skipping", nil)
	}

	a.log.Info(component, "Step 5: Writing outputs", map[string]interface{}{"dir": a.cfg.Output.Dir})
	if err := a.writeOutputs(); err != nil {
		return nil, fmt.Errorf("failed to write outputs: %w", err)
	}

	return &a.report, nil
}

// LoadVolume builds or reads the uncertainty grid
func (a *Analyzer) LoadVolume() error {
	defer a.metrics.ObserveStep("load", time.Now())

	v := a.cfg.Volume
	summary := models.VolumeSummary{Source: v.Source, Origin: v.Origin, Spacing: v.Spacing}

	var err error
	switch v.Source {
	case config.SourceCube:
		a.grid, err = volume.CubeUncertainty(v.Dims, v.CubeSize, v.Background, v.Inner)
	case config.SourceSphere:
		a.grid, err = volume.SphereShell(v.Dims, v.Radius, v.Core, v.Rim)
	case config.SourceImages:
		var slices []models.Slice
		slices, err = loadSlices(v.InputDir)
		if err == nil {
			summary.Slices = len(slices)
			summary.Filename = slices[0].Filename
			a.grid, err = slicesToGrid(slices)
		}
	default:
		err = fmt.Errorf("unknown volume source %q", v.Source)
	}
	if err != nil {
		return err
	}

	a.geometry, err = volume.NewGeometry(
		r3.Vec{X: v.Origin[0], Y: v.Origin[1], Z: v.Origin[2]},
		r3.Vec{X: v.Spacing[0], Y: v.Spacing[1], Z: v.Spacing[2]},
		nil,
	)
	if err != nil {
		return err
	}

	summary.Dims = a.grid.Dims()
	volumeSummary(a.grid.Data(), &summary)
	a.report.Volume = summary

	a.log.Info(component, "Loaded uncertainty volume", map[string]interface{}{
		"dims":    summary.Dims,
		"nonZero": summary.NonZero,
		"max":     summary.Max,
	})
	return nil
}

// Grid returns the loaded uncertainty volume, or nil before LoadVolume
func (a *Analyzer) Grid() *volume.Grid {
	return a.grid
}

type namedFitter struct {
	name   string
	fitter plane.Fitter
}

// FitPlanes runs the random search and the SVD fit over the loaded volume.
// Fitters that cannot produce a plane (no iterations, no data) are reported
// with their error instead of failing the run
func (a *Analyzer) FitPlanes() ([]models.PlaneResult, error) {
	if a.grid == nil {
		return nil, errors.New("no volume loaded")
	}
	defer a.metrics.ObserveStep("planes", time.Now())

	seed := a.cfg.Processing.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	searchCfg := plane.RandomSearchConfig{
		MaxIterations:     a.cfg.Plane.MaxIterations,
		GoodnessThreshold: a.cfg.Plane.GoodnessThreshold,
		Thickness:         a.cfg.Plane.Thickness,
		RNG:               rand.New(rand.NewSource(seed)),
		Progress: func(iteration, total int, best float64) {
			a.metrics.PlaneCandidates.Inc()
			a.log.Debug("plane", "Evaluated candidate plane", map[string]interface{}{
				"iteration": iteration,
				"total":     total,
				"best":      best,
			})
		},
	}
	search, err := plane.NewRandomSearch(a.grid, searchCfg)
	if err != nil {
		return nil, err
	}

	points, err := plane.WorstPoints(a.grid, a.cfg.Plane.WorstFraction)
	if err != nil {
		return nil, err
	}

	fitters := []namedFitter{
		{name: "random", fitter: search},
		{name: "svd", fitter: plane.NewSVDFit(points)},
	}

	results := make([]models.PlaneResult, 0, len(fitters))
	for _, f := range fitters {
		res := models.PlaneResult{Fitter: f.name}

		pl, err := f.fitter.CalculateBestScanPlane()
		switch {
		case errors.Is(err, plane.ErrNoCandidates), errors.Is(err, plane.ErrNoPoints):
			a.log.Warning("plane", "Fitter produced no plane", map[string]interface{}{"fitter": f.name, "reason": err.Error()})
			res.Error = err.Error()
			res.Goodness = math.NaN()
		case err != nil:
			return nil, fmt.Errorf("%s fitter: %w", f.name, err)
		default:
			res.Plane = pl
			res.Goodness = search.EvaluateGoodness(pl)
			a.metrics.SetGoodness(f.name, res.Goodness)
			a.log.Info("plane", "Fitted scan plane", map[string]interface{}{
				"fitter":   f.name,
				"plane":    pl.String(),
				"goodness": res.Goodness,
			})
		}

		switch fitter := f.fitter.(type) {
		case *plane.RandomSearch:
			res.History = fitter.History()
		case *plane.SVDFit:
			res.Points = len(points)
		}
		results = append(results, res)
	}

	a.report.Planes = results
	return results, nil
}

// probeCenter places the probe sphere in the mesh space each registration
// expects
func (a *Analyzer) probeCenter() r3.Vec {
	center := volume.Center(a.grid.Dims())
	switch a.cfg.Mapping.Registration {
	case mapping.Identity:
		return center
	case mapping.WorldTransform:
		return a.geometry.IndexToWorld(center)
	default:
		return r3.Vec{}
	}
}

// progressLogger logs every tenth of the work at debug level
func (a *Analyzer) progressLogger(what string) mapping.ProgressCallback {
	lastDecile := 0
	return func(completed, total int) {
		if total == 0 {
			return
		}
		decile := completed * 10 / total
		if decile == lastDecile {
			return
		}
		lastDecile = decile
		a.log.Debug(component, "Progress", map[string]interface{}{
			"what":     what,
			"percent":  float64(completed) / float64(total) * 100,
			"complete": completed,
		})
	}
}

// MapSurface fires one ray per vertex of a UV sphere probe and colours it
func (a *Analyzer) MapSurface() error {
	if a.grid == nil {
		return errors.New("no volume loaded")
	}
	defer a.metrics.ObserveStep("mapping", time.Now())

	mc := a.cfg.Mapping
	probe, err := mesh.NewUVSphere(a.probeCenter(), mc.SphereRadius, mc.SphereRings, mc.SphereSegments)
	if err != nil {
		return err
	}

	opts := mapping.Options{
		Registration:      mc.Registration,
		Accumulation:      mc.Accumulation,
		Scaling:           mc.Scaling,
		Palette:           mc.Palette,
		SamplingFraction:  mc.SamplingFraction,
		InvertNormals:     mc.InvertNormals,
		NegateAxes:        mc.NegateAxes,
		World:             a.geometry,
		DebugRegistration: mc.DebugRegistration,
		DebugMarker:       mc.DebugMarker,
		Workers:           a.cfg.Processing.NumCores,
		Progress:          a.progressLogger("vertices"),
		OnRay: func(r raymarch.Result) {
			a.metrics.ObserveRay(metrics.SourceMesh, r.Samples)
		},
	}
	mapper, err := mapping.NewMapper(opts)
	if err != nil {
		return err
	}

	// Markers go into a copy so later steps still see the original data
	target := a.grid
	if mc.DebugRegistration {
		a.debugGrid = a.grid.Clone()
		target = a.debugGrid
	}

	result, err := mapper.Map(target, probe)
	if err != nil {
		return err
	}
	a.probe, a.mapped = probe, result

	empty := 0
	for _, s := range result.Samples {
		if s == 0 {
			empty++
		}
	}

	summary := summarize(result.Intensities)
	a.metrics.Vertices.Add(float64(probe.NumVertices()))
	a.metrics.IntensitySummary.WithLabelValues("mean").Set(summary.Mean)
	a.metrics.IntensitySummary.WithLabelValues("min").Set(summary.Min)
	a.metrics.IntensitySummary.WithLabelValues("max").Set(summary.Max)

	a.report.Mapping = &models.MappingSummary{
		Registration: mc.Registration,
		Accumulation: mc.Accumulation,
		Scaling:      mc.Scaling,
		Palette:      mc.Palette,
		Vertices:     probe.NumVertices(),
		EmptyRays:    empty,
		Legend:       result.Legend,
		Intensity:    summary,
	}

	fields := map[string]interface{}{"vertices": probe.NumVertices(), "emptyRays": empty, "mean": summary.Mean}
	if empty == probe.NumVertices() {
		a.log.Warning(component, "No ray found data; check registration and normal orientation", fields)
	} else {
		a.log.Info(component, "Mapped probe surface", fields)
	}
	return nil
}

// Mapped returns the per-vertex result of MapSurface, or nil
func (a *Analyzer) Mapped() *mapping.Result {
	return a.mapped
}

// BuildTexture renders the spherical texture of the volume
func (a *Analyzer) BuildTexture() error {
	if a.grid == nil {
		return errors.New("no volume loaded")
	}
	defer a.metrics.ObserveStep("texture", time.Now())

	tc := a.cfg.Texture
	opts := mapping.TextureOptions{
		Width:            tc.Width,
		Height:           tc.Height,
		Accumulation:     a.cfg.Mapping.Accumulation,
		SamplingFraction: a.cfg.Mapping.SamplingFraction,
		Scaling:          tc.Scaling,
		Palette:          tc.Palette,
		NegateAxes:       a.cfg.Mapping.NegateAxes,
		Workers:          a.cfg.Processing.NumCores,
		Progress:         a.progressLogger("texels"),
		OnRay: func(r raymarch.Result) {
			a.metrics.ObserveRay(metrics.SourceTexture, r.Samples)
		},
	}

	tex, err := mapping.SphericalTexture(a.grid, opts)
	if err != nil {
		return err
	}
	a.texture = tex

	a.report.Texture = &models.TextureSummary{
		Width:     tex.Width,
		Height:    tex.Height,
		Legend:    tex.Legend,
		Intensity: summarize(tex.Values),
	}
	return nil
}

// writeOutputs saves the images and the report
func (a *Analyzer) writeOutputs() error {
	defer a.metrics.ObserveStep("output", time.Now())
	dir := a.cfg.Output.Dir
	a.report.Outputs = nil

	if a.mapped != nil {
		histPath := filepath.Join(dir, HistogramFile)
		err := visualization.SaveHistogram(a.mapped.Intensities, a.cfg.Output.HistogramBins, "Vertex uncertainty", histPath)
		switch {
		case errors.Is(err, visualization.ErrNoFiniteValues):
			a.log.Warning(component, "Skipping histogram, no vertex carries data", nil)
		case err != nil:
			return err
		default:
			a.report.Outputs = append(a.report.Outputs, histPath)
		}

		cm, err := a.cfg.Mapping.Palette.ColorMap()
		if err != nil {
			return err
		}
		legendPath := filepath.Join(dir, LegendFile)
		if err := visualization.SaveLegend(cm, a.mapped.Legend.Min, a.mapped.Legend.Max, legendPath); err != nil {
			return err
		}
		a.report.Outputs = append(a.report.Outputs, legendPath)
	}

	if a.texture != nil {
		texPath := filepath.Join(dir, TextureFile)
		if err := visualization.SaveImage(a.texture.Image, texPath); err != nil {
			return err
		}
		a.report.Outputs = append(a.report.Outputs, texPath)
	}

	if a.cfg.Output.SaveIntermediaryResults {
		source := a.grid
		if a.debugGrid != nil {
			source = a.debugGrid
		}
		paths, err := visualization.NewViewer(source).SaveMiddleSlices(filepath.Join(dir, SlicesDir))
		if err != nil {
			// Slices are diagnostic only
			a.log.Warning(component, "Failed to save volume slices", map[string]interface{}{"error": err.Error()})
		}
		a.report.Outputs = append(a.report.Outputs, paths...)
	}

	reportPath := filepath.Join(dir, ReportFile)
	a.report.Outputs = append(a.report.Outputs, reportPath)
	if err := SaveReport(&a.report, reportPath); err != nil {
		return err
	}

	a.log.Info(component, "Wrote outputs", map[string]interface{}{"files": len(a.report.Outputs)})
	return nil
}

// SaveReport writes a report as YAML
func SaveReport(report *models.Report, path string) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("error marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}
	return nil
}

// LoadReport reads a report written by SaveReport
func LoadReport(path string) (*models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading report: %w", err)
	}
	report := &models.Report{}
	if err := yaml.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("error parsing report: %w", err)
	}
	return report, nil
}
