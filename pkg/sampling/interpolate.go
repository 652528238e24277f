// Package sampling interpolates grid values at continuous voxel-index
// positions.
package sampling

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"uncertaintymap/pkg/volume"
)

// ErrOutside is returned for positions outside the padded grid box.
var ErrOutside = errors.New("position outside grid")

// exactMatch is the distance below which a neighbour is treated as
// coinciding with the query position.
const exactMatch = 1e-4

// Interpolate returns the inverse-distance weighted value of the (up to 8)
// voxels surrounding p. Voxels holding exactly zero carry no data and are
// ignored; if none of the neighbours carries data the result is 0. A neighbour
// closer than 1e-4 wins outright.
//
// Storage failures are returned unchanged so callers can tell them apart
// (see volume.AccessError).
func Interpolate(g volume.Accessor, p r3.Vec) (float64, error) {
	dims := g.Dims()
	if !volume.IsWithinGrid(dims, p) {
		return 0, ErrOutside
	}

	xs, nx := neighbours(p.X)
	ys, ny := neighbours(p.Y)
	zs, nz := neighbours(p.Z)

	var weighted, weights float64
	for _, x := range xs[:nx] {
		i := volume.ContinuousToDiscrete(x, dims[0])
		if i < 0 || i >= dims[0] {
			continue
		}
		for _, y := range ys[:ny] {
			j := volume.ContinuousToDiscrete(y, dims[1])
			if j < 0 || j >= dims[1] {
				continue
			}
			for _, z := range zs[:nz] {
				k := volume.ContinuousToDiscrete(z, dims[2])
				if k < 0 || k >= dims[2] {
					continue
				}

				v, err := g.Value(i, j, k)
				if err != nil {
					return 0, err
				}
				if v == 0 {
					continue
				}

				dist := r3.Norm(r3.Sub(r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)}, p))
				if dist < exactMatch {
					return v, nil
				}
				weighted += v / dist
				weights += 1 / dist
			}
		}
	}

	if weights == 0 {
		return 0, nil
	}
	return weighted / weights, nil
}

// neighbours returns the candidate coordinates on one axis: the integer
// below and above x, or just x when it is integral.
func neighbours(x float64) ([2]float64, int) {
	lo, hi := math.Floor(x), math.Ceil(x)
	if lo == hi {
		return [2]float64{lo}, 1
	}
	return [2]float64{lo, hi}, 2
}
