// Package mapping samples an uncertainty volume along the normals of a surface
// mesh and turns the result into per-vertex colours.
package mapping

import (
	"errors"
	"fmt"
	"image/color"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"uncertaintymap/pkg/mesh"
	"uncertaintymap/pkg/raymarch"
	"uncertaintymap/pkg/volume"
)

// ProgressCallback reports completed vertices (or texels). Calls are
// serialised but may come from different goroutines.
type ProgressCallback func(completed, total int)

// Options configures a mapping run.
type Options struct {
	Registration Registration
	Accumulation raymarch.Policy
	Scaling      Scaling
	Palette      Palette

	// SamplingFraction is the march percent in (0, 100].
	SamplingFraction float64

	// InvertNormals marches against the vertex normals.
	InvertNormals bool

	// NegateAxes flips vertex coordinates before SphericalProjection.
	NegateAxes [3]bool

	// World is required by WorldTransform registration.
	World WorldToIndex

	// DebugRegistration writes DebugMarker into the grid at every
	// registered vertex position. The grid must implement volume.Writer.
	DebugRegistration bool
	DebugMarker       float64

	// Workers bounds the goroutines marching rays; 0 means runtime.NumCPU().
	Workers int

	Progress ProgressCallback

	// OnRay is forwarded to the ray marcher.
	OnRay func(raymarch.Result)
}

// DefaultOptions returns identity registration, average accumulation, no
// scaling, grayscale colours and a full-length march.
func DefaultOptions() Options {
	return Options{
		Registration:     Identity,
		Accumulation:     raymarch.Average,
		Scaling:          NoScaling,
		Palette:          Grayscale,
		SamplingFraction: 100,
		DebugMarker:      -100,
	}
}

// Result holds the per-vertex output of a mapping run.
type Result struct {
	// VolumePositions are the registered vertex positions in index space.
	VolumePositions []r3.Vec
	// Intensities are the raw march results.
	Intensities []float64
	// Samples counts the non-zero samples behind each intensity.
	Samples []int
	// Scaled are the intensities after the scaling policy.
	Scaled []float64
	// Colors are the palette colours, also written to the mesh.
	Colors []color.NRGBA
	// Legend is the value range the colour ramp spans.
	Legend Range
	// LegendColors are the colours at the low and high end of the ramp.
	LegendColors [2]color.NRGBA
}

// Mapper runs surface uncertainty mapping with fixed options.
type Mapper struct {
	opts Options
}

// NewMapper validates opts.
func NewMapper(opts Options) (*Mapper, error) {
	if !(opts.SamplingFraction > 0 && opts.SamplingFraction <= 100) {
		return nil, fmt.Errorf("%w: got %v", raymarch.ErrInvalidFraction, opts.SamplingFraction)
	}
	if opts.Registration < Identity || opts.Registration > SphericalProjection {
		return nil, fmt.Errorf("unknown registration %d", int(opts.Registration))
	}
	if opts.Scaling < NoScaling || opts.Scaling > HistogramEqualize {
		return nil, fmt.Errorf("unknown scaling %d", int(opts.Scaling))
	}
	if opts.Registration == WorldTransform && opts.World == nil {
		return nil, ErrNoWorldTransform
	}
	if _, err := opts.Palette.ColorMap(); err != nil {
		return nil, err
	}
	return &Mapper{opts: opts}, nil
}

// Map fires one ray per vertex of m into g and colours the mesh. The mesh
// colour buffer is replaced and its scalar data cleared. Nothing is written
// when an error is returned.
func (mp *Mapper) Map(g volume.Accessor, m *mesh.Mesh) (*Result, error) {
	if !m.HasNormals() {
		return nil, mesh.ErrMissingNormals
	}

	var writer volume.Writer
	if mp.opts.DebugRegistration {
		w, ok := g.(volume.Writer)
		if !ok {
			return nil, errors.New("debug registration needs a writable grid")
		}
		writer = w
	}

	register, err := newRegistrar(mp.opts.Registration, m.Bounds(), g.Dims(), mp.opts.World, mp.opts.NegateAxes)
	if err != nil {
		return nil, err
	}

	marcher, err := raymarch.NewMarcher(g, mp.opts.Accumulation, mp.opts.SamplingFraction)
	if err != nil {
		return nil, err
	}
	marcher.OnRay = mp.opts.OnRay

	colors, err := newColorizer(mp.opts.Palette)
	if err != nil {
		return nil, err
	}

	n := m.NumVertices()
	res := &Result{
		VolumePositions: make([]r3.Vec, n),
		Intensities:     make([]float64, n),
		Samples:         make([]int, n),
	}

	progress := &progressReporter{total: n, callback: mp.opts.Progress}
	var firstErr error
	var errOnce sync.Once

	parallelFor(n, mp.opts.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			pos := register(m.Positions[i])
			normal := m.Normals[i]
			if mp.opts.InvertNormals {
				normal = r3.Scale(-1, normal)
			}

			ray, err := marcher.March(pos, normal)
			if err != nil {
				errOnce.Do(func() { firstErr = fmt.Errorf("vertex %d: %w", i, err) })
				return
			}

			res.VolumePositions[i] = pos
			res.Intensities[i] = ray.Value
			res.Samples[i] = ray.Samples
			progress.add(1)
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}

	if writer != nil {
		dims := g.Dims()
		for v, pos := range res.VolumePositions {
			// Positions registered outside the grid have nothing to mark
			if !volume.IsWithinGrid(dims, pos) {
				continue
			}
			i, j, k := volume.Nearest(dims, pos)
			if err := writer.Set(i, j, k, mp.opts.DebugMarker); err != nil {
				return nil, fmt.Errorf("marking vertex %d: %w", v, err)
			}
		}
	}

	res.Scaled, res.Legend = mp.opts.Scaling.Apply(res.Intensities)
	res.Colors = make([]color.NRGBA, n)
	for i, v := range res.Scaled {
		res.Colors[i] = colors.At(v)
	}
	res.LegendColors = colors.Legend()

	m.Colors = append(m.Colors[:0], res.Colors...)
	m.Scalars = nil

	return res, nil
}
