// Package plane finds scan planes through an uncertainty volume.
//
// Two strategies satisfy Fitter: RandomSearch proposes planes through random
// voxel triplets and keeps the one capturing the most uncertainty, SVDFit
// fits a plane through an explicit point set in closed form.
package plane

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrZeroNormal is returned when constructing a plane from a zero normal.
	ErrZeroNormal = errors.New("plane normal is the zero vector")
	// ErrNoPoints is returned by SVDFit for an empty point set.
	ErrNoPoints = errors.New("no points to fit")
	// ErrNoCandidates is returned by RandomSearch when it was allowed zero
	// iterations and therefore never produced a plane.
	ErrNoCandidates = errors.New("no candidate planes evaluated")
)

// Plane is an origin and a unit normal.
type Plane struct {
	Origin r3.Vec `yaml:"origin"`
	Normal r3.Vec `yaml:"normal"`
}

// Fitter is implemented by every plane-finding strategy.
type Fitter interface {
	CalculateBestScanPlane() (Plane, error)
}

// New creates a plane, normalising normal.
func New(origin, normal r3.Vec) (Plane, error) {
	n := r3.Norm(normal)
	if n == 0 || math.IsNaN(n) {
		return Plane{}, ErrZeroNormal
	}
	return Plane{Origin: origin, Normal: r3.Scale(1/n, normal)}, nil
}

// ThroughPoints returns the plane through p1, p2 and p3 with origin p1 and
// normal (p2-p1) x (p3-p1). Collinear points give a zero normal; such a plane
// is still usable for scoring, where it captures nothing.
func ThroughPoints(p1, p2, p3 r3.Vec) Plane {
	normal := r3.Cross(r3.Sub(p2, p1), r3.Sub(p3, p1))
	if n := r3.Norm(normal); n > 0 {
		normal = r3.Scale(1/n, normal)
	}
	return Plane{Origin: p1, Normal: normal}
}

// Distance returns the perpendicular distance from p to the plane.
func (pl Plane) Distance(p r3.Vec) float64 {
	return math.Abs(r3.Dot(r3.Sub(p, pl.Origin), pl.Normal))
}

// IsDegenerate reports whether the plane has a zero normal.
func (pl Plane) IsDegenerate() bool {
	return pl.Normal == (r3.Vec{})
}

func (pl Plane) String() string {
	return fmt.Sprintf("origin=(%.3f, %.3f, %.3f) normal=(%.4f, %.4f, %.4f)",
		pl.Origin.X, pl.Origin.Y, pl.Origin.Z, pl.Normal.X, pl.Normal.Y, pl.Normal.Z)
}
