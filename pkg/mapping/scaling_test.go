package mapping

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNoScaling verifies values are copied and the legend is [0, 1]
func TestNoScaling(t *testing.T) {
	in := []float64{3, -1, 7}
	out, legend := NoScaling.Apply(in)
	assert.Equal(t, in, out)
	assert.Equal(t, Range{Min: 0, Max: 1}, legend)

	out[0] = 99
	assert.Equal(t, 3.0, in[0])
}

// TestLinearScaling verifies the observed extremes map to 0 and 1
func TestLinearScaling(t *testing.T) {
	out, legend := LinearScaling.Apply([]float64{10, 20, 15, math.NaN(), 30})
	assert.Equal(t, Range{Min: 10, Max: 30}, legend)
	assert.Equal(t, 0.0, out[0])
	assert.Equal(t, 0.5, out[1])
	assert.Equal(t, 0.25, out[2])
	assert.True(t, math.IsNaN(out[3]))
	assert.Equal(t, 1.0, out[4])

	flat, legend := LinearScaling.Apply([]float64{4, 4, 4})
	assert.Equal(t, []float64{0, 0, 0}, flat)
	assert.Equal(t, Range{Min: 4, Max: 4}, legend)

	_, legend = LinearScaling.Apply([]float64{math.NaN()})
	assert.False(t, legend.Known())
}

// TestHistogramEqualize verifies range, NaN handling and the unknown legend
func TestHistogramEqualize(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	in := make([]float64, 500)
	for i := range in {
		in[i] = rng.ExpFloat64() * 40
	}
	in[17] = math.NaN()

	out, legend := HistogramEqualize.Apply(in)
	require.Len(t, out, len(in))
	assert.False(t, legend.Known())
	assert.True(t, math.IsNaN(legend.Min))

	for i, v := range out {
		if i == 17 {
			assert.True(t, math.IsNaN(v))
			continue
		}
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0+1e-12)
	}
}

// TestEqualizeSingleTileIsMonotone verifies a single tile preserves order
func TestEqualizeSingleTileIsMonotone(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	in := make([]float64, 300)
	for i := range in {
		in[i] = rng.NormFloat64()
	}

	opts := DefaultEqualizeOptions()
	opts.Tiles = 1
	out := equalizeAdaptive(in, opts)

	for i := range in {
		for j := range in {
			if in[i] < in[j] {
				assert.LessOrEqual(t, out[i], out[j])
			}
		}
	}

	// The largest value always ends at the top of the CDF.
	maxIdx := 0
	for i, v := range in {
		if v > in[maxIdx] {
			maxIdx = i
		}
	}
	assert.InDelta(t, 1.0, out[maxIdx], 1e-12)
}

// TestEqualizeSpreadsClusters verifies equalisation stretches a skewed list
func TestEqualizeSpreadsClusters(t *testing.T) {
	in := make([]float64, 200)
	for i := range in {
		in[i] = 1 + float64(i%10)*0.001
	}
	in[0] = 100

	linear, _ := LinearScaling.Apply(in)
	opts := DefaultEqualizeOptions()
	opts.Tiles = 1
	equalized := equalizeAdaptive(in, opts)

	// Linear scaling squashes the cluster near zero; equalisation spreads it.
	assert.Less(t, linear[1], 0.01)
	assert.Greater(t, equalized[1], 0.01)
}

// TestEqualizeEdgeCases verifies empty and tiny inputs
func TestEqualizeEdgeCases(t *testing.T) {
	assert.Empty(t, equalizeAdaptive(nil, DefaultEqualizeOptions()))

	out := equalizeAdaptive([]float64{2, 2}, DefaultEqualizeOptions())
	require.Len(t, out, 2)
	assert.Equal(t, out[0], out[1])
}

// TestEqualizeSkipsTilesWithoutData verifies values next to an all-NaN tile
// are mapped through the populated tiles only
func TestEqualizeSkipsTilesWithoutData(t *testing.T) {
	nan := math.NaN()
	in := []float64{nan, nan, nan, nan, 1, 2, 3, 4}

	opts := DefaultEqualizeOptions()
	opts.Tiles = 2
	got := equalizeAdaptive(in, opts)

	opts.Tiles = 1
	want := equalizeAdaptive(in[4:], opts)

	for i := 0; i < 4; i++ {
		assert.True(t, math.IsNaN(got[i]), "index %d", i)
	}
	assert.InDeltaSlice(t, want, got[4:], 1e-12)
	assert.InDelta(t, 1.0, got[7], 1e-12)

	allNaN := equalizeAdaptive([]float64{nan, nan}, opts)
	assert.True(t, math.IsNaN(allNaN[0]))
}
