package mapping

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Range is a legend range.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// UnknownRange is reported when the scaling does not preserve a meaningful
// value range. Both bounds are NaN.
func UnknownRange() Range {
	return Range{Min: math.NaN(), Max: math.NaN()}
}

// Known reports whether r carries real bounds.
func (r Range) Known() bool {
	return !math.IsNaN(r.Min) && !math.IsNaN(r.Max)
}

// EqualizeOptions tunes HistogramEqualize.
type EqualizeOptions struct {
	Bins      int     // histogram bins per tile
	ClipLimit float64 // per-bin clip as a fraction of the tile length
	Tiles     int     // number of contiguous tiles the list is split into
}

// DefaultEqualizeOptions returns 256 bins, a 0.01 clip limit and 8 tiles.
func DefaultEqualizeOptions() EqualizeOptions {
	return EqualizeOptions{Bins: 256, ClipLimit: 0.01, Tiles: 8}
}

// Apply rescales values into a new slice and returns the legend range.
// NaN and infinite intensities (rays that found no data) are left as they are
// and ignored when computing ranges.
func (s Scaling) Apply(values []float64) ([]float64, Range) {
	switch s {
	case LinearScaling:
		out, lo, hi := rescale(values)
		return out, Range{Min: lo, Max: hi}
	case HistogramEqualize:
		return equalizeAdaptive(values, DefaultEqualizeOptions()), UnknownRange()
	default:
		return append([]float64(nil), values...), Range{Min: 0, Max: 1}
	}
}

// finiteRange returns the min and max over the finite values, and false when
// there are none.
func finiteRange(values []float64) (lo, hi float64, ok bool) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return 0, 0, false
	}
	return floats.Min(finite), floats.Max(finite), true
}

// rescale maps the finite values linearly from their observed range to
// [0, 1]. A flat input maps to 0.
func rescale(values []float64) (out []float64, lo, hi float64) {
	out = append([]float64(nil), values...)
	lo, hi, ok := finiteRange(values)
	if !ok {
		return out, math.NaN(), math.NaN()
	}
	span := hi - lo
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if span == 0 {
			out[i] = 0
		} else {
			out[i] = (v - lo) / span
		}
	}
	return out, lo, hi
}

// equalizeAdaptive is a one-dimensional contrast-limited adaptive histogram
// equalisation. The list is rescaled to [0, 1] and split into contiguous
// tiles; each tile gets its own clipped histogram and CDF, and every value is
// mapped through the CDFs of the two tiles whose centres enclose it, blended
// linearly by position.
func equalizeAdaptive(values []float64, opts EqualizeOptions) []float64 {
	out, _, _ := rescale(values)
	n := len(out)
	if n == 0 || opts.Bins < 1 {
		return out
	}

	tiles := opts.Tiles
	if tiles < 1 {
		tiles = 1
	}
	if tiles > n {
		tiles = n
	}

	dividers := make([]float64, opts.Bins+1)
	floats.Span(dividers, 0, 1)
	dividers[opts.Bins] = math.Nextafter(1, 2)

	// Tiles without finite data have no CDF and are left out of the blend
	cdfs := make([][]float64, 0, tiles)
	centers := make([]float64, 0, tiles)
	for t := 0; t < tiles; t++ {
		start, end := t*n/tiles, (t+1)*n/tiles
		cdf := tileCDF(out[start:end], dividers, opts.ClipLimit)
		if cdf == nil {
			continue
		}
		centers = append(centers, float64(start+end-1)/2)
		cdfs = append(cdfs, cdf)
	}
	if len(cdfs) == 0 {
		return out
	}
	tiles = len(cdfs)

	mapped := make([]float64, n)
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			mapped[i] = v
			continue
		}
		b := int(v * float64(opts.Bins))
		if b >= opts.Bins {
			b = opts.Bins - 1
		}

		pos := float64(i)
		switch {
		case pos <= centers[0]:
			mapped[i] = cdfs[0][b]
		case pos >= centers[tiles-1]:
			mapped[i] = cdfs[tiles-1][b]
		default:
			t := sort.SearchFloat64s(centers, pos)
			if centers[t] == pos {
				mapped[i] = cdfs[t][b]
				continue
			}
			w := (pos - centers[t-1]) / (centers[t] - centers[t-1])
			mapped[i] = (1-w)*cdfs[t-1][b] + w*cdfs[t][b]
		}
	}
	return mapped
}

// tileCDF builds the clipped, normalised cumulative histogram of one tile,
// or returns nil when the tile holds no finite value.
func tileCDF(tile []float64, dividers []float64, clipLimit float64) []float64 {
	bins := len(dividers) - 1

	finite := make([]float64, 0, len(tile))
	for _, v := range tile {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return nil
	}
	sort.Float64s(finite)

	counts := make([]float64, bins)
	stat.Histogram(counts, dividers, finite, nil)

	limit := math.Max(1, clipLimit*float64(len(finite)))
	var excess float64
	for b, c := range counts {
		if c > limit {
			excess += c - limit
			counts[b] = limit
		}
	}
	floats.AddConst(excess/float64(bins), counts)

	cdf := make([]float64, bins)
	floats.CumSum(cdf, counts)
	floats.Scale(1/cdf[bins-1], cdf)
	return cdf
}
