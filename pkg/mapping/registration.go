package mapping

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"uncertaintymap/pkg/volume"
)

// ErrNoWorldTransform is returned when WorldTransform registration is
// selected without a transform.
var ErrNoWorldTransform = errors.New("world transform registration needs a WorldToIndex transform")

// WorldToIndex converts world coordinates to voxel-index coordinates.
// *volume.Geometry implements it.
type WorldToIndex interface {
	WorldToIndex(p r3.Vec) r3.Vec
}

// registrar maps one mesh-space point to index space.
type registrar func(p r3.Vec) r3.Vec

func newRegistrar(reg Registration, bounds r3.Box, dims [3]int, world WorldToIndex, negate [3]bool) (registrar, error) {
	switch reg {
	case Identity:
		return func(p r3.Vec) r3.Vec { return p }, nil

	case BoundingBoxNormalize:
		return func(p r3.Vec) r3.Vec {
			return r3.Vec{
				X: normalizeAxis(p.X, bounds.Min.X, bounds.Max.X, dims[0]),
				Y: normalizeAxis(p.Y, bounds.Min.Y, bounds.Max.Y, dims[1]),
				Z: normalizeAxis(p.Z, bounds.Min.Z, bounds.Max.Z, dims[2]),
			}
		}, nil

	case WorldTransform:
		if world == nil {
			return nil, ErrNoWorldTransform
		}
		return world.WorldToIndex, nil

	case SphericalProjection:
		return func(p r3.Vec) r3.Vec { return SphericalProject(dims, negateAxes(p, negate)) }, nil
	}
	return nil, fmt.Errorf("unknown registration %d", int(reg))
}

// normalizeAxis maps x from [lo, hi] to [0, dim-1]. A flat axis maps to the
// grid centre.
func normalizeAxis(x, lo, hi float64, dim int) float64 {
	span := hi - lo
	if span == 0 {
		return float64(dim-1) / 2
	}
	return (x - lo) / span * float64(dim-1)
}

func negateAxes(p r3.Vec, negate [3]bool) r3.Vec {
	if negate[0] {
		p.X = -p.X
	}
	if negate[1] {
		p.Y = -p.Y
	}
	if negate[2] {
		p.Z = -p.Z
	}
	return p
}

// SphericalProject casts a ray from the grid centre along dir and returns
// where it meets the grid cuboid, in index space. The ray is intersected with
// the three positive-facing faces; an intersection lying behind the centre is
// reflected through it onto the opposite face. Components along size-1 axes
// are dropped. A zero dir maps to the centre.
func SphericalProject(dims [3]int, dir r3.Vec) r3.Vec {
	c := volume.Center(dims)
	half := [3]float64{c.X, c.Y, c.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	for a := range d {
		if half[a] == 0 {
			d[a] = 0
		}
	}
	dir = r3.Vec{X: d[0], Y: d[1], Z: d[2]}

	const eps = 1e-9
	for a := 0; a < 3; a++ {
		if d[a] == 0 {
			continue
		}
		t := half[a] / d[a]
		q := r3.Scale(t, dir)
		if t < 0 {
			q = r3.Scale(-1, q)
		}
		if math.Abs(q.X) <= half[0]+eps && math.Abs(q.Y) <= half[1]+eps && math.Abs(q.Z) <= half[2]+eps {
			return r3.Add(c, q)
		}
	}
	return c
}
