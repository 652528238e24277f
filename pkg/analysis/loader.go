package analysis

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"uncertaintymap/internal/models"
	"uncertaintymap/pkg/volume"
)

// loadSlices reads every PNG or JPEG image in dir, ordered by the number
// embedded in the filename.
//
// Ordering by the embedded number rather than lexically keeps slice_2 before
// slice_10
func loadSlices(dir string) ([]models.Slice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var imageFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			imageFiles = append(imageFiles, entry.Name())
		}
	}

	if len(imageFiles) == 0 {
		return nil, fmt.Errorf("no PNG or JPEG images found in %s", dir)
	}

	sort.SliceStable(imageFiles, func(i, j int) bool {
		return extractNumber(imageFiles[i]) < extractNumber(imageFiles[j])
	})

	slices := make([]models.Slice, 0, len(imageFiles))
	var bounds image.Rectangle
	for i, filename := range imageFiles {
		img, err := loadImage(filepath.Join(dir, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", filename, err)
		}

		// All slices must share the first slice's size
		if i == 0 {
			bounds = img.Bounds()
		} else if img.Bounds().Size() != bounds.Size() {
			return nil, fmt.Errorf("slice %s is %v, expected %v", filename, img.Bounds().Size(), bounds.Size())
		}

		slices = append(slices, models.Slice{Image: img, Index: i, Filename: filename})
	}

	return slices, nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}

	if digits.Len() > 0 {
		num, err := strconv.Atoi(digits.String())
		if err == nil {
			return num
		}
	}
	return 0
}

// loadImage decodes any registered image format
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}

	return img, nil
}

// imageToGray converts an image to 16-bit luminance, row-major
func imageToGray(img image.Image) []uint16 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	result := make([]uint16, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			result[y*width+x] = gray.Y
		}
	}

	return result
}

// slicesToGrid stacks the slices into a grid. The slice index is the first
// axis, image rows the second and image columns the third, so a voxel (i, j, k)
// is pixel (k, j) of slice i. Black pixels carry no data
func slicesToGrid(slices []models.Slice) (*volume.Grid, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("no slices to stack")
	}

	bounds := slices[0].Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	size := width * height

	data := make([]uint16, 0, size*len(slices))
	for _, s := range slices {
		if s.Image.Bounds().Size() != bounds.Size() {
			return nil, fmt.Errorf("slice %d has size %v, expected %v", s.Index, s.Image.Bounds().Size(), bounds.Size())
		}
		data = append(data, imageToGray(s.Image)...)
	}

	return volume.FromScalars([3]int{len(slices), height, width}, data)
}
