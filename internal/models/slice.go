// Package models defines the shared data types passed between the
// correction workflow stages.
package models

import (
	"image"
)

// Slice represents a single MRI slice with metadata
type Slice struct {
	// Image is the actual slice image data
	Image image.Image

	// Index is the position of this slice in the sorted stack
	Index int

	// Filename is the original filename of the slice, without its
	// directory. Corrected outputs are named after it.
	Filename string
}
