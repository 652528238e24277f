package plane

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"uncertaintymap/pkg/volume"
)

// SVDFit fits a plane through a fixed point set.
type SVDFit struct {
	points []r3.Vec
}

// NewSVDFit creates a fitter over points. The slice is not copied.
func NewSVDFit(points []r3.Vec) *SVDFit {
	return &SVDFit{points: points}
}

// CalculateBestScanPlane returns the least-squares plane through the points:
// the origin is their centroid and the normal is the right singular vector of
// the demeaned point matrix with the smallest singular value, oriented so its
// X component is non-negative.
func (f *SVDFit) CalculateBestScanPlane() (Plane, error) {
	n := len(f.points)
	if n == 0 {
		return Plane{}, ErrNoPoints
	}

	var centroid r3.Vec
	for _, p := range f.points {
		centroid = r3.Add(centroid, p)
	}
	centroid = r3.Scale(1/float64(n), centroid)

	demeaned := mat.NewDense(n, 3, nil)
	for i, p := range f.points {
		d := r3.Sub(p, centroid)
		demeaned.SetRow(i, []float64{d.X, d.Y, d.Z})
	}

	var svd mat.SVD
	if ok := svd.Factorize(demeaned, mat.SVDFullV); !ok {
		return Plane{}, errors.New("SVD factorization failed")
	}

	// Singular values come in descending order; with fewer than three points
	// the trailing columns of the full V span the null space.
	var v mat.Dense
	svd.VTo(&v)
	normal := r3.Vec{X: v.At(0, 2), Y: v.At(1, 2), Z: v.At(2, 2)}
	if normal.X < 0 {
		normal = r3.Scale(-1, normal)
	}

	return New(centroid, normal)
}

// WorstPoints returns the voxel centres holding the highest uncertainty.
// fraction in (0, 1] selects that share of the non-zero voxels, at least one
// when any voxel carries data.
func WorstPoints(g volume.Accessor, fraction float64) ([]r3.Vec, error) {
	if !(fraction > 0 && fraction <= 1) {
		return nil, errors.New("worst-point fraction must be in (0, 1]")
	}

	type voxel struct {
		pos r3.Vec
		v   float64
	}

	dims := g.Dims()
	var voxels []voxel
	for i := 0; i < dims[0]; i++ {
		for j := 0; j < dims[1]; j++ {
			for k := 0; k < dims[2]; k++ {
				v, err := g.Value(i, j, k)
				if err != nil {
					return nil, err
				}
				if v != 0 {
					voxels = append(voxels, voxel{pos: r3.Vec{X: float64(i), Y: float64(j), Z: float64(k)}, v: v})
				}
			}
		}
	}
	if len(voxels) == 0 {
		return nil, nil
	}

	sort.SliceStable(voxels, func(a, b int) bool { return voxels[a].v > voxels[b].v })

	count := int(fraction * float64(len(voxels)))
	if count < 1 {
		count = 1
	}
	points := make([]r3.Vec, count)
	for i := range points {
		points[i] = voxels[i].pos
	}
	return points, nil
}
