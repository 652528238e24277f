// Package volume provides the dense scalar grid that every sampling and
// mapping operation reads from.
//
// A grid has dimensions (H, W, D) and stores one float64 per voxel. Positions
// handed to the samplers are continuous voxel-index coordinates; voxel (i, j, k)
// has its centre at (i, j, k) and each voxel extends half a unit to either side,
// so the valid continuous range per axis is [-0.5, dim-0.5].
package volume

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrReleased is wrapped by AccessError when the grid storage was released.
var ErrReleased = errors.New("grid storage released")

// ErrUnsupportedType is wrapped by AccessError when the backing storage is not
// a supported scalar slice.
var ErrUnsupportedType = errors.New("unsupported scalar storage type")

// AccessError reports that the backing storage of a grid could not be read.
type AccessError struct {
	Op  string
	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("volume %s: %v", e.Op, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Accessor is the read-only view consumed by the samplers.
type Accessor interface {
	// Dims returns the grid dimensions (H, W, D).
	Dims() [3]int
	// Value returns the scalar at the discrete index (i, j, k).
	Value(i, j, k int) (float64, error)
}

// Writer is the write-capable view. It is only used to mark debug
// registration points.
type Writer interface {
	Accessor
	Set(i, j, k int, v float64) error
}

// Grid is a dense 3D scalar array in row-major (i, j, k) order.
type Grid struct {
	data []float64
	dims [3]int
}

// NewGrid creates a zero-filled grid with dimensions (h, w, d).
func NewGrid(h, w, d int) (*Grid, error) {
	if h < 1 || w < 1 || d < 1 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%dx%d", h, w, d)
	}
	return &Grid{data: make([]float64, h*w*d), dims: [3]int{h, w, d}}, nil
}

// FromSlice wraps data without copying. len(data) must equal h*w*d.
func FromSlice(data []float64, h, w, d int) (*Grid, error) {
	if h < 1 || w < 1 || d < 1 {
		return nil, fmt.Errorf("invalid grid dimensions %dx%dx%d", h, w, d)
	}
	if len(data) != h*w*d {
		return nil, fmt.Errorf("data length %d does not match dimensions %dx%dx%d", len(data), h, w, d)
	}
	return &Grid{data: data, dims: [3]int{h, w, d}}, nil
}

// FromScalars converts typed image storage into a grid. Storage of any type
// other than the listed scalar slices yields an *AccessError.
func FromScalars(dims [3]int, data any) (*Grid, error) {
	var out []float64
	switch v := data.(type) {
	case []float64:
		out = make([]float64, len(v))
		copy(out, v)
	case []float32:
		out = convert(v)
	case []uint8:
		out = convert(v)
	case []uint16:
		out = convert(v)
	case []int16:
		out = convert(v)
	case []int32:
		out = convert(v)
	default:
		return nil, &AccessError{Op: "convert", Err: fmt.Errorf("%w: %T", ErrUnsupportedType, data)}
	}
	return FromSlice(out, dims[0], dims[1], dims[2])
}

func convert[T float32 | uint8 | uint16 | int16 | int32](src []T) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}
	return out
}

// Dims returns (H, W, D).
func (g *Grid) Dims() [3]int { return g.dims }

// Len returns the number of voxels.
func (g *Grid) Len() int { return g.dims[0] * g.dims[1] * g.dims[2] }

// Index returns the flat offset of (i, j, k). It does not check bounds.
func (g *Grid) Index(i, j, k int) int {
	return (i*g.dims[1]+j)*g.dims[2] + k
}

// Coords is the inverse of Index.
func (g *Grid) Coords(idx int) (i, j, k int) {
	k = idx % g.dims[2]
	idx /= g.dims[2]
	j = idx % g.dims[1]
	i = idx / g.dims[1]
	return i, j, k
}

// InBounds reports whether (i, j, k) is a valid discrete index.
func (g *Grid) InBounds(i, j, k int) bool {
	return i >= 0 && i < g.dims[0] && j >= 0 && j < g.dims[1] && k >= 0 && k < g.dims[2]
}

// Value returns the scalar at (i, j, k).
func (g *Grid) Value(i, j, k int) (float64, error) {
	if g.data == nil {
		return 0, &AccessError{Op: "read", Err: ErrReleased}
	}
	if !g.InBounds(i, j, k) {
		return 0, fmt.Errorf("index (%d, %d, %d) outside grid %v", i, j, k, g.dims)
	}
	return g.data[g.Index(i, j, k)], nil
}

// Set writes v at (i, j, k).
func (g *Grid) Set(i, j, k int, v float64) error {
	if g.data == nil {
		return &AccessError{Op: "write", Err: ErrReleased}
	}
	if !g.InBounds(i, j, k) {
		return fmt.Errorf("index (%d, %d, %d) outside grid %v", i, j, k, g.dims)
	}
	g.data[g.Index(i, j, k)] = v
	return nil
}

// Data returns the backing slice. Callers must not modify it.
func (g *Grid) Data() []float64 { return g.data }

// Clone returns a deep copy. Cloning a released grid yields another released
// grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{dims: g.dims}
	if g.data != nil {
		c.data = make([]float64, len(g.data))
		copy(c.data, g.data)
	}
	return c
}

// Release drops the backing storage. Subsequent reads fail with an
// *AccessError.
func (g *Grid) Release() { g.data = nil }

// IsWithinGrid reports whether the continuous position p lies inside the
// half-voxel padded box [-0.5, dim-0.5] on every axis.
func IsWithinGrid(dims [3]int, p r3.Vec) bool {
	return within(p.X, dims[0]) && within(p.Y, dims[1]) && within(p.Z, dims[2])
}

func within(x float64, dim int) bool {
	return x >= -0.5 && x <= float64(dim)-0.5
}

// ContinuousToDiscrete maps a continuous coordinate on an axis of size dim to
// a voxel index. The padded edges -0.5 and dim-0.5 map to the first and last
// voxel, everything else rounds to the nearest integer (halves away from
// zero). The result can fall outside [0, dim) for inputs outside the padded
// range; callers check bounds.
func ContinuousToDiscrete(x float64, dim int) int {
	switch {
	case x == -0.5:
		return 0
	case x == float64(dim)-0.5:
		return dim - 1
	}
	return int(math.Round(x))
}

// Center returns the continuous position of the grid centre.
func Center(dims [3]int) r3.Vec {
	return r3.Vec{
		X: float64(dims[0]-1) / 2,
		Y: float64(dims[1]-1) / 2,
		Z: float64(dims[2]-1) / 2,
	}
}

// Nearest rounds a continuous position to its voxel index.
func Nearest(dims [3]int, p r3.Vec) (i, j, k int) {
	return ContinuousToDiscrete(p.X, dims[0]),
		ContinuousToDiscrete(p.Y, dims[1]),
		ContinuousToDiscrete(p.Z, dims[2])
}
