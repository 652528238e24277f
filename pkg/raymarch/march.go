// Package raymarch accumulates grid samples along a ray.
//
// A march runs in two phases. The first walks from the start position in unit
// steps of the direction until it reaches data (a non-zero sample) or leaves
// the grid. The second phase runs two cursors from that point: the tortoise
// moves one step at a time and feeds every non-zero sample into the policy,
// the hare moves 100/percent times faster. When percent is below 100 the march
// stops as soon as the hare leaves the grid or runs out of data, so the
// tortoise only covers the near fraction of the data along the ray, without
// knowing the path length in advance.
package raymarch

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"uncertaintymap/pkg/sampling"
	"uncertaintymap/pkg/volume"
)

// Unsamplable is substituted for a sample whose grid storage could not be
// read. It cannot be told apart from a genuine -1 accumulation; callers that
// care must check the grid before marching.
const Unsamplable = -1.0

// ErrInvalidFraction is returned when percent is outside (0, 100].
var ErrInvalidFraction = errors.New("sampling fraction must be in (0, 100]")

// Result is the outcome of one march.
type Result struct {
	// Value is the finalised accumulator. See Policy for the values produced
	// when Samples is zero.
	Value float64
	// Samples is the number of non-zero samples combined.
	Samples int
}

// March walks the ray start + t*direction through g and aggregates the
// samples with policy. percent bounds the walk to the near fraction of the
// data; 100 marches to the far edge of the grid.
//
// A zero direction vector cannot advance and yields an empty result.
func March(g volume.Accessor, start, direction r3.Vec, policy Policy, percent float64) (Result, error) {
	if !(percent > 0 && percent <= 100) {
		return Result{}, fmt.Errorf("%w: got %v", ErrInvalidFraction, percent)
	}

	dims := g.Dims()
	acc := policy.Initial()
	if direction == (r3.Vec{}) {
		return Result{Value: policy.Finalize(acc, 0)}, nil
	}

	// Seek the first sample carrying data.
	cursor := start
	for volume.IsWithinGrid(dims, cursor) && sample(g, cursor) == 0 {
		cursor = r3.Add(cursor, direction)
	}

	bounded := percent != 100
	hareStep := r3.Scale(100/percent, direction)
	tortoise, hare := cursor, cursor

	samples := 0
	for volume.IsWithinGrid(dims, tortoise) {
		if bounded && (!volume.IsWithinGrid(dims, hare) || sample(g, hare) == 0) {
			break
		}
		if v := sample(g, tortoise); v != 0 {
			acc = policy.Combine(acc, v)
			samples++
		}
		tortoise = r3.Add(tortoise, direction)
		hare = r3.Add(hare, hareStep)
	}

	return Result{Value: policy.Finalize(acc, samples), Samples: samples}, nil
}

// sample interpolates at p, mapping storage failures to Unsamplable.
func sample(g volume.Accessor, p r3.Vec) float64 {
	v, err := sampling.Interpolate(g, p)
	if err != nil {
		var accessErr *volume.AccessError
		if errors.As(err, &accessErr) {
			return Unsamplable
		}
		return 0
	}
	return v
}

// Marcher fixes the grid and march parameters for repeated rays, such as one
// per mesh vertex.
type Marcher struct {
	Grid    volume.Accessor
	Policy  Policy
	Percent float64

	// OnRay, when set, is called after every completed march. It may be
	// called from several goroutines at once.
	OnRay func(Result)
}

// NewMarcher creates a marcher with validated parameters.
func NewMarcher(g volume.Accessor, policy Policy, percent float64) (*Marcher, error) {
	if !(percent > 0 && percent <= 100) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidFraction, percent)
	}
	if _, ok := policyNames[policy]; !ok {
		return nil, fmt.Errorf("unknown accumulation policy %d", int(policy))
	}
	return &Marcher{Grid: g, Policy: policy, Percent: percent}, nil
}

// March fires one ray.
func (m *Marcher) March(start, direction r3.Vec) (Result, error) {
	res, err := March(m.Grid, start, direction, m.Policy, m.Percent)
	if err != nil {
		return res, err
	}
	if m.OnRay != nil {
		m.OnRay(res)
	}
	return res, nil
}
