// Package visualization turns uncertainty grids, textures and intensity lists
// into image files for inspection.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"uncertaintymap/pkg/volume"
)

// Viewer extracts 2D slices and sub-volumes from an uncertainty grid. Slice
// intensities are windowed linearly from [low, high] onto the full gray range
type Viewer struct {
	// grid holds the uncertainty volume
	grid *volume.Grid

	// window bounds used to normalise slice intensities
	low, high float64
}

// NewViewer creates a viewer whose window spans the grid's value range
func NewViewer(g *volume.Grid) *Viewer {
	low, high := math.Inf(1), math.Inf(-1)
	for _, v := range g.Data() {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}
	if math.IsInf(low, 1) {
		low, high = 0, 1
	}
	return &Viewer{grid: g, low: low, high: high}
}

// SetWindow overrides the intensity window
func (v *Viewer) SetWindow(low, high float64) error {
	if !(high > low) {
		return fmt.Errorf("window high %f must exceed low %f", high, low)
	}
	v.low, v.high = low, high
	return nil
}

// Window returns the intensity window
func (v *Viewer) Window() (low, high float64) {
	return v.low, v.high
}

// Axis resolves an axis name to a grid axis: "i", "j", "k" or their
// aliases "x", "y", "z"
func Axis(name string) (int, error) {
	switch strings.ToLower(name) {
	case "i", "x":
		return 0, nil
	case "j", "y":
		return 1, nil
	case "k", "z":
		return 2, nil
	}
	return 0, fmt.Errorf("invalid axis: %s (must be i, j, k or x, y, z)", name)
}

func (v *Viewer) gray(value float64) color.Gray16 {
	if v.high <= v.low {
		return color.Gray16{}
	}
	scaled := (value - v.low) / (v.high - v.low)
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, scaled*65535)))}
}

// ExtractSlice extracts the 2D slice of the grid perpendicular to axis at
// position. The image rows and columns follow the remaining two axes in grid
// order
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	a, err := Axis(axis)
	if err != nil {
		return nil, err
	}
	dims := v.grid.Dims()
	if position < 0 || position >= dims[a] {
		return nil, fmt.Errorf("position %d outside [0, %d) along axis %s", position, dims[a], axis)
	}

	// rows and columns are the two axes other than a
	var rowAxis, colAxis int
	switch a {
	case 0:
		rowAxis, colAxis = 1, 2
	case 1:
		rowAxis, colAxis = 0, 2
	default:
		rowAxis, colAxis = 0, 1
	}

	img := image.NewGray16(image.Rect(0, 0, dims[colAxis], dims[rowAxis]))
	var idx [3]int
	idx[a] = position
	for r := 0; r < dims[rowAxis]; r++ {
		for c := 0; c < dims[colAxis]; c++ {
			idx[rowAxis], idx[colAxis] = r, c
			value, err := v.grid.Value(idx[0], idx[1], idx[2])
			if err != nil {
				return nil, err
			}
			img.SetGray16(c, r, v.gray(value))
		}
	}
	return img, nil
}

// ExtractRegion copies the sub-volume starting at start with the given size
// into a new grid
func (v *Viewer) ExtractRegion(start, size [3]int) (*volume.Grid, error) {
	dims := v.grid.Dims()
	for a := 0; a < 3; a++ {
		if start[a] < 0 {
			return nil, fmt.Errorf("start coordinates must be non-negative")
		}
		if size[a] <= 0 {
			return nil, fmt.Errorf("size dimensions must be positive")
		}
		if start[a]+size[a] > dims[a] {
			return nil, fmt.Errorf("region extends beyond volume boundaries")
		}
	}

	region, err := volume.NewGrid(size[0], size[1], size[2])
	if err != nil {
		return nil, err
	}
	for i := 0; i < size[0]; i++ {
		for j := 0; j < size[1]; j++ {
			for k := 0; k < size[2]; k++ {
				value, err := v.grid.Value(start[0]+i, start[1]+j, start[2]+k)
				if err != nil {
					return nil, err
				}
				if err := region.Set(i, j, k, value); err != nil {
					return nil, err
				}
			}
		}
	}
	return region, nil
}

// SaveImage writes img as PNG or JPEG depending on the file extension
func SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	case ".png":
		err = png.Encode(file, img)
	default:
		return fmt.Errorf("unsupported image extension %q", filepath.Ext(filename))
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filename, err)
	}
	return file.Close()
}

// SaveSlice saves an extracted slice
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	return SaveImage(img, filename)
}

// SaveSliceSequence extracts and saves every slice along the specified axis
// as PNG files
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	a, err := Axis(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.grid.Dims()[a]; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// SaveMiddleSlices writes the middle slice along each axis and returns the
// written paths
func (v *Viewer) SaveMiddleSlices(outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	dims := v.grid.Dims()
	var paths []string
	for a, name := range []string{"i", "j", "k"} {
		img, err := v.ExtractSlice(name, dims[a]/2)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(outputDir, fmt.Sprintf("slice_%s_middle.png", name))
		if err := v.SaveSlice(img, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
