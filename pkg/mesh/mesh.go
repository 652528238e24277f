// Package mesh holds the triangle surface that uncertainty is mapped onto.
package mesh

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrMissingNormals is returned when a mesh lacks per-vertex normals.
var ErrMissingNormals = errors.New("mesh has no per-vertex normals")

// Mesh is a triangle mesh with per-vertex attributes.
type Mesh struct {
	// Positions are the vertex coordinates in mesh space.
	Positions []r3.Vec

	// Normals are unit vertex normals, one per position.
	Normals []r3.Vec

	// Triangles index into Positions.
	Triangles [][3]int

	// Colors is the per-vertex colour buffer written by the mapper.
	Colors []color.NRGBA

	// Scalars is optional per-vertex scalar data; the mapper clears it when
	// it writes colours.
	Scalars []float64
}

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int { return len(m.Positions) }

// HasNormals reports whether every vertex has a normal. An empty mesh has
// nothing missing.
func (m *Mesh) HasNormals() bool {
	return len(m.Normals) == len(m.Positions)
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() r3.Box {
	if len(m.Positions) == 0 {
		return r3.Box{}
	}
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range m.Positions {
		lo = r3.Vec{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vec{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	return r3.Box{Min: lo, Max: hi}
}

// Validate checks index ranges and attribute lengths.
func (m *Mesh) Validate() error {
	n := len(m.Positions)
	if m.Normals != nil && len(m.Normals) != n {
		return fmt.Errorf("mesh has %d normals for %d vertices", len(m.Normals), n)
	}
	for t, tri := range m.Triangles {
		for _, idx := range tri {
			if idx < 0 || idx >= n {
				return fmt.Errorf("triangle %d references vertex %d of %d", t, idx, n)
			}
		}
	}
	return nil
}

// ComputeNormals replaces Normals with area-weighted vertex normals built from
// the triangles. Vertices not used by any triangle get a zero normal.
func (m *Mesh) ComputeNormals() error {
	if err := m.Validate(); err != nil {
		return err
	}
	if len(m.Triangles) == 0 {
		return errors.New("mesh has no triangles to derive normals from")
	}

	normals := make([]r3.Vec, len(m.Positions))
	for _, tri := range m.Triangles {
		a, b, c := m.Positions[tri[0]], m.Positions[tri[1]], m.Positions[tri[2]]
		// The cross product length is twice the triangle area.
		face := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		for _, idx := range tri {
			normals[idx] = r3.Add(normals[idx], face)
		}
	}
	for i, n := range normals {
		if l := r3.Norm(n); l > 0 {
			normals[i] = r3.Scale(1/l, n)
		}
	}
	m.Normals = normals
	return nil
}
