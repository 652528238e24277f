package volume

import (
	"fmt"
	"math"
)

// CubeUncertainty builds the "cube uncertainty" phantom: every voxel holds
// background except a centred cube of edge cube voxels holding inner.
func CubeUncertainty(dims [3]int, cube int, background, inner float64) (*Grid, error) {
	g, err := NewGrid(dims[0], dims[1], dims[2])
	if err != nil {
		return nil, err
	}
	if cube < 0 || cube > dims[0] || cube > dims[1] || cube > dims[2] {
		return nil, fmt.Errorf("cube edge %d does not fit in grid %v", cube, dims)
	}

	var lo [3]int
	for a := 0; a < 3; a++ {
		lo[a] = (dims[a] - cube) / 2
	}

	for idx := range g.data {
		i, j, k := g.Coords(idx)
		if i >= lo[0] && i < lo[0]+cube && j >= lo[1] && j < lo[1]+cube && k >= lo[2] && k < lo[2]+cube {
			g.data[idx] = inner
		} else {
			g.data[idx] = background
		}
	}
	return g, nil
}

// SphereShell builds a phantom with a solid ball of the given radius around the
// grid centre. Uncertainty grows linearly from core at the centre to rim at
// the surface; voxels outside the ball are background (zero, no data).
func SphereShell(dims [3]int, radius, core, rim float64) (*Grid, error) {
	g, err := NewGrid(dims[0], dims[1], dims[2])
	if err != nil {
		return nil, err
	}
	if radius <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %f", radius)
	}

	c := Center(dims)
	for idx := range g.data {
		i, j, k := g.Coords(idx)
		dx := float64(i) - c.X
		dy := float64(j) - c.Y
		dz := float64(k) - c.Z
		r := math.Sqrt(dx*dx + dy*dy + dz*dz)
		if r <= radius {
			g.data[idx] = core + (rim-core)*r/radius
		}
	}
	return g, nil
}
