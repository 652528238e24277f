package mapping

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"uncertaintymap/pkg/raymarch"
	"uncertaintymap/pkg/volume"
)

// TextureOptions configures SphericalTexture.
type TextureOptions struct {
	Width, Height    int
	Accumulation     raymarch.Policy
	SamplingFraction float64
	Scaling          Scaling
	Palette          Palette
	NegateAxes       [3]bool
	Workers          int
	Progress         ProgressCallback
	OnRay            func(raymarch.Result)
}

// DefaultTextureOptions returns a 256x128 texture with the mapper defaults.
func DefaultTextureOptions() TextureOptions {
	return TextureOptions{
		Width:            256,
		Height:           128,
		Accumulation:     raymarch.Average,
		SamplingFraction: 100,
		Scaling:          LinearScaling,
		Palette:          Grayscale,
	}
}

// Texture is an equirectangular map of the volume as seen from its surface.
type Texture struct {
	Width, Height int
	Values        []float64 // raw march results, row-major
	Scaled        []float64
	Image         *image.NRGBA
	Legend        Range
}

// SphericalTexture builds an equirectangular texture of g. Texel (x, y)
// corresponds to longitude 2π(x+0.5)/Width and colatitude π(y+0.5)/Height;
// its direction is projected onto the grid cuboid with SphericalProject and a
// ray is marched from there towards the centre.
func SphericalTexture(g volume.Accessor, opts TextureOptions) (*Texture, error) {
	if opts.Width < 1 || opts.Height < 1 {
		return nil, fmt.Errorf("invalid texture size %dx%d", opts.Width, opts.Height)
	}
	marcher, err := raymarch.NewMarcher(g, opts.Accumulation, opts.SamplingFraction)
	if err != nil {
		return nil, err
	}
	marcher.OnRay = opts.OnRay

	colors, err := newColorizer(opts.Palette)
	if err != nil {
		return nil, err
	}

	dims := g.Dims()
	n := opts.Width * opts.Height
	tex := &Texture{
		Width:  opts.Width,
		Height: opts.Height,
		Values: make([]float64, n),
	}

	progress := &progressReporter{total: n, callback: opts.Progress}
	parallelFor(n, opts.Workers, func(start, end int) {
		for idx := start; idx < end; idx++ {
			x, y := idx%opts.Width, idx/opts.Width
			phi := 2 * math.Pi * (float64(x) + 0.5) / float64(opts.Width)
			theta := math.Pi * (float64(y) + 0.5) / float64(opts.Height)
			dir := r3.Vec{
				X: math.Sin(theta) * math.Cos(phi),
				Y: math.Sin(theta) * math.Sin(phi),
				Z: math.Cos(theta),
			}

			surface := SphericalProject(dims, negateAxes(dir, opts.NegateAxes))
			var inward r3.Vec
			if toCenter := r3.Sub(volume.Center(dims), surface); toCenter != (r3.Vec{}) {
				inward = r3.Unit(toCenter)
			}

			// The fraction was validated by NewMarcher, so March cannot fail.
			ray, _ := marcher.March(surface, inward)
			tex.Values[idx] = ray.Value
		}
		progress.add(end - start)
	})

	tex.Scaled, tex.Legend = opts.Scaling.Apply(tex.Values)
	tex.Image = image.NewNRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	for idx, v := range tex.Scaled {
		tex.Image.SetNRGBA(idx%opts.Width, idx/opts.Width, colors.At(v))
	}
	return tex, nil
}
