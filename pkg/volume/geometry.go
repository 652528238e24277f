package volume

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Geometry describes how a grid sits in world space: the world position of
// voxel (0, 0, 0), the voxel spacing along each index axis and the direction
// cosines of the index axes (columns of a 3x3 matrix).
type Geometry struct {
	Origin  r3.Vec
	Spacing r3.Vec

	direction *mat.Dense
	inverse   *mat.Dense
}

// NewGeometry builds a geometry. A nil direction means the identity matrix;
// otherwise it must hold 9 values in row-major order.
func NewGeometry(origin, spacing r3.Vec, direction []float64) (*Geometry, error) {
	if spacing.X == 0 || spacing.Y == 0 || spacing.Z == 0 {
		return nil, fmt.Errorf("voxel spacing must be non-zero, got %v", spacing)
	}
	if direction == nil {
		direction = []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	}
	if len(direction) != 9 {
		return nil, fmt.Errorf("direction matrix needs 9 values, got %d", len(direction))
	}

	dir := mat.NewDense(3, 3, append([]float64(nil), direction...))
	var inv mat.Dense
	if err := inv.Inverse(dir); err != nil {
		return nil, fmt.Errorf("direction matrix is not invertible: %w", err)
	}

	return &Geometry{
		Origin:    origin,
		Spacing:   spacing,
		direction: dir,
		inverse:   &inv,
	}, nil
}

// WorldToIndex maps a world-space point to continuous voxel-index space.
func (g *Geometry) WorldToIndex(p r3.Vec) r3.Vec {
	d := r3.Sub(p, g.Origin)
	var out mat.VecDense
	out.MulVec(g.inverse, mat.NewVecDense(3, []float64{d.X, d.Y, d.Z}))
	return r3.Vec{
		X: out.AtVec(0) / g.Spacing.X,
		Y: out.AtVec(1) / g.Spacing.Y,
		Z: out.AtVec(2) / g.Spacing.Z,
	}
}

// IndexToWorld is the inverse of WorldToIndex.
func (g *Geometry) IndexToWorld(p r3.Vec) r3.Vec {
	scaled := mat.NewVecDense(3, []float64{p.X * g.Spacing.X, p.Y * g.Spacing.Y, p.Z * g.Spacing.Z})
	var out mat.VecDense
	out.MulVec(g.direction, scaled)
	return r3.Add(g.Origin, r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)})
}
