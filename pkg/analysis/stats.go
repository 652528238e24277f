package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"uncertaintymap/internal/models"
)

// summarize computes statistics over the finite values. NaN and infinite
// intensities come from rays without data and are left out
func summarize(values []float64) models.IntensitySummary {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}

	summary := models.IntensitySummary{Count: len(finite)}
	if len(finite) == 0 {
		return summary
	}

	sort.Float64s(finite)
	summary.Min = floats.Min(finite)
	summary.Max = floats.Max(finite)
	summary.Mean = stat.Mean(finite, nil)
	summary.Median = stat.Quantile(0.5, stat.Empirical, finite, nil)
	if len(finite) > 1 {
		summary.StdDev = stat.StdDev(finite, nil)
	}
	return summary
}

// volumeSummary fills the value statistics of a grid summary
func volumeSummary(data []float64, summary *models.VolumeSummary) {
	for _, v := range data {
		if v != 0 {
			summary.NonZero++
		}
	}
	if len(data) == 0 {
		return
	}
	summary.Min = floats.Min(data)
	summary.Max = floats.Max(data)
	summary.Mean = stat.Mean(data, nil)
}
