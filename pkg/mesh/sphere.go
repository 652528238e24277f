package mesh

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// NewUVSphere builds a latitude/longitude sphere with outward unit normals.
// rings is the number of latitude bands (>= 2) and segments the number of
// longitude slices (>= 3).
func NewUVSphere(center r3.Vec, radius float64, rings, segments int) (*Mesh, error) {
	if rings < 2 || segments < 3 {
		return nil, fmt.Errorf("sphere needs at least 2 rings and 3 segments, got %d and %d", rings, segments)
	}
	if radius <= 0 {
		return nil, fmt.Errorf("sphere radius must be positive, got %f", radius)
	}

	m := &Mesh{}

	// Poles are single vertices; every inner ring has `segments` vertices.
	addVertex := func(dir r3.Vec) {
		m.Positions = append(m.Positions, r3.Add(center, r3.Scale(radius, dir)))
		m.Normals = append(m.Normals, dir)
	}

	addVertex(r3.Vec{Z: 1})
	for r := 1; r < rings; r++ {
		theta := math.Pi * float64(r) / float64(rings)
		for s := 0; s < segments; s++ {
			phi := 2 * math.Pi * float64(s) / float64(segments)
			addVertex(r3.Vec{
				X: math.Sin(theta) * math.Cos(phi),
				Y: math.Sin(theta) * math.Sin(phi),
				Z: math.Cos(theta),
			})
		}
	}
	addVertex(r3.Vec{Z: -1})

	north := 0
	south := len(m.Positions) - 1
	ring := func(r, s int) int { return 1 + (r-1)*segments + s%segments }

	for s := 0; s < segments; s++ {
		m.Triangles = append(m.Triangles, [3]int{north, ring(1, s), ring(1, s+1)})
	}
	for r := 1; r < rings-1; r++ {
		for s := 0; s < segments; s++ {
			a, b := ring(r, s), ring(r, s+1)
			c, d := ring(r+1, s), ring(r+1, s+1)
			m.Triangles = append(m.Triangles, [3]int{a, c, d}, [3]int{a, d, b})
		}
	}
	for s := 0; s < segments; s++ {
		m.Triangles = append(m.Triangles, [3]int{south, ring(rings-1, s+1), ring(rings-1, s)})
	}

	return m, nil
}
