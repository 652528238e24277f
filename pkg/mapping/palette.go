package mapping

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// NaNColor is used for intensities that carry no value (rays without data).
var NaNColor = color.NRGBA{}

// ColorMap returns the palette as a luminance ramp over [0, 1].
func (p Palette) ColorMap() (palette.ColorMap, error) {
	black := color.NRGBA{A: 255}
	var controls []color.Color
	switch p {
	case Grayscale:
		controls = []color.Color{black, color.NRGBA{R: 255, G: 255, B: 255, A: 255}}
	case RedBlack:
		controls = []color.Color{black, color.NRGBA{R: 255, A: 255}}
	default:
		return nil, fmt.Errorf("unknown palette %d", int(p))
	}

	cm, err := moreland.NewLuminance(controls)
	if err != nil {
		return nil, fmt.Errorf("building %s palette: %w", p, err)
	}
	cm.SetMax(1)
	cm.SetMin(0)
	return cm, nil
}

// colorizer maps scaled intensities to colours.
type colorizer struct {
	cm palette.ColorMap
}

func newColorizer(p Palette) (*colorizer, error) {
	cm, err := p.ColorMap()
	if err != nil {
		return nil, err
	}
	return &colorizer{cm: cm}, nil
}

// At clamps v into [0, 1] and looks it up. NaN and infinite values, which
// empty rays produce under every accumulation policy, map to NaNColor.
func (c *colorizer) At(v float64) color.NRGBA {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NaNColor
	}
	v = math.Max(0, math.Min(1, v))
	col, err := c.cm.At(v)
	if err != nil {
		return NaNColor
	}
	return color.NRGBAModel.Convert(col).(color.NRGBA)
}

// Legend returns the colours at both ends of the ramp.
func (c *colorizer) Legend() [2]color.NRGBA {
	return [2]color.NRGBA{c.At(0), c.At(1)}
}
