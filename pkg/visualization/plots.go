package visualization

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoFiniteValues is returned when a plot has nothing to draw
var ErrNoFiniteValues = errors.New("no finite values to plot")

// PlotSize is the rendered size of histogram and legend plots
var PlotSize = struct{ Width, Height vg.Length }{6 * vg.Inch, 4 * vg.Inch}

// SaveHistogram plots the distribution of the finite values with the given
// number of bins. The format follows the file extension (png, svg or pdf)
func SaveHistogram(values []float64, bins int, title, filename string) error {
	finite := make(plotter.Values, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return ErrNoFiniteValues
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Uncertainty"
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(finite, bins)
	if err != nil {
		return fmt.Errorf("building histogram: %w", err)
	}
	p.Add(h)

	if err := p.Save(PlotSize.Width, PlotSize.Height, filename); err != nil {
		return fmt.Errorf("saving histogram: %w", err)
	}
	return nil
}

// SaveLegend draws the colour ramp as a horizontal colour bar spanning
// [low, high]. An unknown range (NaN bounds) is drawn as the unit range and
// labelled as relative
func SaveLegend(cm palette.ColorMap, low, high float64, filename string) error {
	label := "Uncertainty"
	if math.IsNaN(low) || math.IsNaN(high) {
		low, high = 0, 1
		label = "Relative uncertainty (equalized)"
	}
	if high <= low {
		// A flat range still needs a drawable bar.
		high = low + 1
	}
	cm.SetMax(high)
	cm.SetMin(low)

	p := plot.New()
	p.Title.Text = "Legend"
	p.X.Label.Text = label
	p.HideY()
	p.Add(&plotter.ColorBar{ColorMap: cm})

	if err := p.Save(PlotSize.Width, PlotSize.Height/4, filename); err != nil {
		return fmt.Errorf("saving legend: %w", err)
	}
	return nil
}
