package raymarch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"uncertaintymap/pkg/volume"
)

// createRampGrid creates an (n, 1, 1) grid holding 1, 2, ..., n
func createRampGrid(t *testing.T, n int) *volume.Grid {
	data := make([]float64, n)
	for i := range data {
		data[i] = float64(i + 1)
	}
	g, err := volume.FromSlice(data, n, 1, 1)
	require.NoError(t, err)
	return g
}

var xAxis = r3.Vec{X: 1}

// TestCubeUncertaintyMarch runs the cube phantom end to end
func TestCubeUncertaintyMarch(t *testing.T) {
	g, err := volume.CubeUncertainty([3]int{4, 4, 4}, 2, 100, 1)
	require.NoError(t, err)

	res, err := March(g, r3.Vec{X: -0.5, Y: 1.5, Z: 1.5}, xAxis, Average, 100)
	require.NoError(t, err)

	// Samples at x = -0.5, 0.5, 1.5, 2.5, 3.5 see 100, 50.5, 1, 50.5, 100.
	assert.Equal(t, 5, res.Samples)
	assert.InDelta(t, 60.4, res.Value, 1e-9)
	assert.Greater(t, res.Value, 1.0)
	assert.Less(t, res.Value, 100.0)
}

// TestCubeSizeInfluence verifies that smaller cubes pull the average towards
// the background value
func TestCubeSizeInfluence(t *testing.T) {
	dims := [3]int{8, 8, 8}
	start := r3.Vec{X: -0.5, Y: 3.5, Z: 3.5}

	var previous float64
	for i, cube := range []int{6, 4, 2} {
		g, err := volume.CubeUncertainty(dims, cube, 100, 1)
		require.NoError(t, err)
		res, err := March(g, start, xAxis, Average, 100)
		require.NoError(t, err)

		assert.Greater(t, res.Value, 1.0)
		assert.Less(t, res.Value, 100.0)
		if i > 0 {
			assert.Greater(t, res.Value, previous, "cube %d", cube)
		}
		previous = res.Value
	}
}

// TestAllBackground verifies the empty-ray results of each policy
func TestAllBackground(t *testing.T) {
	g, err := volume.NewGrid(3, 3, 3)
	require.NoError(t, err)
	start := r3.Vec{X: -0.5, Y: 1, Z: 1}

	res, err := March(g, start, xAxis, Average, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Samples)
	assert.True(t, math.IsNaN(res.Value))

	res, err = March(g, start, xAxis, Minimum, 100)
	require.NoError(t, err)
	assert.True(t, math.IsInf(res.Value, 1))

	res, err = March(g, start, xAxis, Maximum, 100)
	require.NoError(t, err)
	assert.True(t, math.IsInf(res.Value, -1))
}

// TestFullMarch verifies that percent=100 walks to the far edge
func TestFullMarch(t *testing.T) {
	g := createRampGrid(t, 10)

	res, err := March(g, r3.Vec{X: -0.5}, xAxis, Maximum, 100)
	require.NoError(t, err)
	assert.Equal(t, 11, res.Samples)
	assert.Equal(t, 10.0, res.Value)

	res, err = March(g, r3.Vec{X: -0.5}, xAxis, Minimum, 100)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Value)
}

// TestBoundedMarch verifies the hare stops the tortoise half way
func TestBoundedMarch(t *testing.T) {
	g := createRampGrid(t, 10)

	res, err := March(g, r3.Vec{X: -0.5}, xAxis, Average, 50)
	require.NoError(t, err)

	// The hare leaves the grid after 6 tortoise steps.
	assert.Equal(t, 6, res.Samples)
	assert.InDelta(t, 18.5/6, res.Value, 1e-12)
}

// TestBoundedMarchStopsAtBackground verifies the hare treats zero samples as
// the end of the data
func TestBoundedMarchStopsAtBackground(t *testing.T) {
	data := []float64{5, 5, 5, 5, 0, 0, 0, 0}
	g, err := volume.FromSlice(data, len(data), 1, 1)
	require.NoError(t, err)

	res, err := March(g, r3.Vec{}, xAxis, Average, 50)
	require.NoError(t, err)

	// Hare at 0, 2, 4: the sample at 4 is background.
	assert.Equal(t, 2, res.Samples)
	assert.Equal(t, 5.0, res.Value)

	full, err := March(g, r3.Vec{}, xAxis, Average, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, full.Samples)
}

// TestSeekEntry verifies leading background is skipped before accumulation
func TestSeekEntry(t *testing.T) {
	data := []float64{0, 0, 0, 7, 7, 9}
	g, err := volume.FromSlice(data, len(data), 1, 1)
	require.NoError(t, err)

	res, err := March(g, r3.Vec{}, xAxis, Minimum, 100)
	require.NoError(t, err)
	assert.Equal(t, 7.0, res.Value)
	assert.Equal(t, 3, res.Samples)
}

// TestInvalidFraction verifies the percent range check
func TestInvalidFraction(t *testing.T) {
	g := createRampGrid(t, 3)
	for _, percent := range []float64{0, -10, 100.5, math.NaN()} {
		_, err := March(g, r3.Vec{}, xAxis, Average, percent)
		assert.ErrorIs(t, err, ErrInvalidFraction, "percent %v", percent)
	}

	_, err := NewMarcher(g, Average, 0)
	assert.ErrorIs(t, err, ErrInvalidFraction)
}

// TestZeroDirection verifies a zero direction terminates immediately
func TestZeroDirection(t *testing.T) {
	g := createRampGrid(t, 3)
	res, err := March(g, r3.Vec{X: 1}, r3.Vec{}, Maximum, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Samples)
	assert.True(t, math.IsInf(res.Value, -1))
}

// TestUnsamplableSentinel verifies released storage degrades to -1 samples
func TestUnsamplableSentinel(t *testing.T) {
	g := createRampGrid(t, 4)
	g.Release()

	res, err := March(g, r3.Vec{}, xAxis, Average, 100)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Samples)
	assert.Equal(t, Unsamplable, res.Value)
}

// TestMarcherHook verifies the marcher reports every ray
func TestMarcherHook(t *testing.T) {
	g := createRampGrid(t, 5)
	m, err := NewMarcher(g, Average, 100)
	require.NoError(t, err)

	var rays int
	m.OnRay = func(Result) { rays++ }
	for i := 0; i < 3; i++ {
		_, err := m.March(r3.Vec{}, xAxis)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, rays)
}

// TestPolicyText verifies policy names round-trip
func TestPolicyText(t *testing.T) {
	for _, p := range []Policy{Average, Minimum, Maximum} {
		text, err := p.MarshalText()
		require.NoError(t, err)

		var back Policy
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, p, back)
	}

	_, err := ParsePolicy("median")
	assert.Error(t, err)

	p, err := ParsePolicy("MAXIMUM")
	require.NoError(t, err)
	assert.Equal(t, Maximum, p)
}
