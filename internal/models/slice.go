package models

import (
	"image"
)

// Slice is one 2D image of an uncertainty stack read from disk
type Slice struct {
	// Image is the decoded slice
	Image image.Image

	// Index is the position of this slice in the sorted sequence, which is
	// the first grid axis
	Index int

	// Filename is the original filename of the slice
	Filename string
}
