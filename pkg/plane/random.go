package plane

import (
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"uncertaintymap/pkg/volume"
)

// ProgressCallback is called once per search iteration with the best
// goodness found so far.
type ProgressCallback func(iteration, total int, bestGoodness float64)

// RandomSearchConfig holds the parameters of the randomised plane search.
type RandomSearchConfig struct {
	MaxIterations     int        // Upper bound on candidate planes; never converted to a time budget
	GoodnessThreshold float64    // Stop early once the best goodness reaches this
	Thickness         float64    // Voxels farther than this from a plane are outside its slab
	RNG               *rand.Rand // Random source for voxel triplets
	Progress          ProgressCallback
}

// DefaultRandomSearchConfig returns the stock search parameters.
func DefaultRandomSearchConfig() RandomSearchConfig {
	return RandomSearchConfig{
		MaxIterations:     10,
		GoodnessThreshold: 0.5,
		Thickness:         1.0,
		RNG:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RandomSearch is a RANSAC-style plane search over an uncertainty volume.
type RandomSearch struct {
	cfg RandomSearchConfig

	dims        [3]int
	uncertainty []float64
	total       float64
	mask        []float64

	history []float64
}

// NewRandomSearch reads the whole volume once and prepares the search.
func NewRandomSearch(g volume.Accessor, cfg RandomSearchConfig) (*RandomSearch, error) {
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("max iterations must be non-negative, got %d", cfg.MaxIterations)
	}
	if cfg.Thickness < 0 {
		return nil, fmt.Errorf("plane thickness must be non-negative, got %f", cfg.Thickness)
	}
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	dims := g.Dims()
	n := dims[0] * dims[1] * dims[2]
	s := &RandomSearch{
		cfg:         cfg,
		dims:        dims,
		uncertainty: make([]float64, n),
		mask:        make([]float64, n),
	}

	idx := 0
	for i := 0; i < dims[0]; i++ {
		for j := 0; j < dims[1]; j++ {
			for k := 0; k < dims[2]; k++ {
				v, err := g.Value(i, j, k)
				if err != nil {
					return nil, fmt.Errorf("reading uncertainty volume: %w", err)
				}
				s.uncertainty[idx] = v
				idx++
			}
		}
	}
	s.total = floats.Sum(s.uncertainty)

	return s, nil
}

// EvaluateGoodness returns the share of the total uncertainty captured by the
// slab around pl. Each voxel within Thickness of the plane is weighted by its
// distance to the plane. An all-zero volume gives NaN.
func (s *RandomSearch) EvaluateGoodness(pl Plane) float64 {
	idx := 0
	for i := 0; i < s.dims[0]; i++ {
		for j := 0; j < s.dims[1]; j++ {
			for k := 0; k < s.dims[2]; k++ {
				d := pl.Distance(r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)})
				if d <= s.cfg.Thickness {
					s.mask[idx] = d
				} else {
					s.mask[idx] = 0
				}
				idx++
			}
		}
	}
	return floats.Dot(s.mask, s.uncertainty) / s.total
}

// CalculateBestScanPlane runs up to MaxIterations candidates, stopping early
// once the threshold is met. Only strictly better candidates replace the best
// one; the first candidate is kept if nothing beats it.
func (s *RandomSearch) CalculateBestScanPlane() (Plane, error) {
	s.history = s.history[:0]

	var best Plane
	var bestGoodness float64
	found := false

	for it := 0; it < s.cfg.MaxIterations && bestGoodness < s.cfg.GoodnessThreshold; it++ {
		candidate := ThroughPoints(s.randomVoxel(), s.randomVoxel(), s.randomVoxel())
		goodness := s.EvaluateGoodness(candidate)

		if !found {
			best, found = candidate, true
		}
		if goodness > bestGoodness {
			best, bestGoodness = candidate, goodness
		}

		s.history = append(s.history, bestGoodness)
		if s.cfg.Progress != nil {
			s.cfg.Progress(it+1, s.cfg.MaxIterations, bestGoodness)
		}
	}

	if !found {
		return Plane{}, ErrNoCandidates
	}
	return best, nil
}

// History returns the best goodness after each iteration of the last search.
func (s *RandomSearch) History() []float64 {
	return append([]float64(nil), s.history...)
}

// BestGoodness returns the best goodness of the last search, or 0.
func (s *RandomSearch) BestGoodness() float64 {
	if len(s.history) == 0 {
		return 0
	}
	return s.history[len(s.history)-1]
}

func (s *RandomSearch) randomVoxel() r3.Vec {
	return r3.Vec{
		X: float64(s.cfg.RNG.Intn(s.dims[0])),
		Y: float64(s.cfg.RNG.Intn(s.dims[1])),
		Z: float64(s.cfg.RNG.Intn(s.dims[2])),
	}
}
