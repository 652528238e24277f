// Package metrics holds the prometheus collectors recorded by the analysis
// pipeline. Collectors live on their own registry so several pipelines (and
// tests) never share state.
package metrics

import (
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "uncertaintymap"

// Ray sources.
const (
	SourceMesh    = "mesh"
	SourceTexture = "texture"
)

// Metrics bundles the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	Rays             *prometheus.CounterVec
	EmptyRays        *prometheus.CounterVec
	Vertices         prometheus.Counter
	PlaneCandidates  prometheus.Counter
	PlaneGoodness    *prometheus.GaugeVec
	StepDuration     *prometheus.HistogramVec
	IntensitySummary *prometheus.GaugeVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Rays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rays_total",
				Help:      "Total number of marched rays",
			},
			[]string{"source"},
		),
		EmptyRays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "empty_rays_total",
				Help:      "Rays that found no non-zero sample",
			},
			[]string{"source"},
		),
		Vertices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vertices_mapped_total",
			Help:      "Mesh vertices coloured by the surface mapper",
		}),
		PlaneCandidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plane_candidates_total",
			Help:      "Candidate planes evaluated by the random search",
		}),
		PlaneGoodness: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "plane_goodness",
				Help:      "Goodness of the chosen plane per fitter",
			},
			[]string{"fitter"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of pipeline steps",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"step"},
		),
		IntensitySummary: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "vertex_intensity",
				Help:      "Summary statistics of the raw per-vertex intensities",
			},
			[]string{"stat"},
		),
	}

	m.registry.MustRegister(
		m.Rays,
		m.EmptyRays,
		m.Vertices,
		m.PlaneCandidates,
		m.PlaneGoodness,
		m.StepDuration,
		m.IntensitySummary,
	)
	return m
}

// Registry exposes the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRay records one finished march. It is safe for concurrent use.
func (m *Metrics) ObserveRay(source string, samples int) {
	m.Rays.WithLabelValues(source).Inc()
	if samples == 0 {
		m.EmptyRays.WithLabelValues(source).Inc()
	}
}

// ObserveStep records the duration of a pipeline step started at start.
func (m *Metrics) ObserveStep(step string, start time.Time) {
	m.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// SetGoodness records a plane goodness. NaN goodness (an empty volume) is
// skipped.
func (m *Metrics) SetGoodness(fitter string, goodness float64) {
	if math.IsNaN(goodness) {
		return
	}
	m.PlaneGoodness.WithLabelValues(fitter).Set(goodness)
}

// WriteTextfile writes the current metric values in the text exposition
// format, for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
