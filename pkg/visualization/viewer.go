// Package visualization provides multiplanar reslicing of a corrected
// intensity volume, so the result of a correction run can be inspected
// along any anatomical plane.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

// Viewer extracts 2D views from a 3D intensity volume.
//
// The volume is laid out the way the correction workflow assembles it:
// data[(y*width+x)*depth+z], with z indexing the original slice stack.
type Viewer struct {
	// volumeData holds the 3D volume intensities
	volumeData []float64

	// dimensions of the volume
	width  int
	height int
	depth  int
}

// NewViewer creates a new volume viewer
func NewViewer(volumeData []float64, width, height, depth int) *Viewer {
	return &Viewer{
		volumeData: volumeData,
		width:      width,
		height:     height,
		depth:      depth,
	}
}

// ExtractSlice extracts a 2D slice from the 3D volume along the
// specified axis: "x" gives a sagittal (YZ) view, "y" a coronal (XZ)
// view and "z" an axial (XY) view matching an original input slice.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img image.Gray16

	switch axis {
	case "x", "X":
		// Sagittal view across the slice stack
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}

		img = *image.NewGray16(image.Rect(0, 0, v.depth, v.height))
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				idx := (y*v.width+position)*v.depth + z
				if idx < len(v.volumeData) {
					value := uint16(math.Max(0, math.Min(65535, v.volumeData[idx]*65535)))
					img.SetGray16(z, y, color.Gray16{Y: value})
				}
			}
		}

	case "y", "Y":
		// Coronal view across the slice stack
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}

		img = *image.NewGray16(image.Rect(0, 0, v.width, v.depth))
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				idx := (position*v.width+x)*v.depth + z
				if idx < len(v.volumeData) {
					value := uint16(math.Max(0, math.Min(65535, v.volumeData[idx]*65535)))
					img.SetGray16(x, z, color.Gray16{Y: value})
				}
			}
		}

	case "z", "Z":
		// Axial view, one of the original slices
		if position >= v.depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}

		img = *image.NewGray16(image.Rect(0, 0, v.width, v.height))
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				idx := (y*v.width+x)*v.depth + position
				if idx < len(v.volumeData) {
					value := uint16(math.Max(0, math.Min(65535, v.volumeData[idx]*65535)))
					img.SetGray16(x, y, color.Gray16{Y: value})
				}
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return &img, nil
}

// ExtractRegion extracts a 3D subregion from the volume. The returned
// region uses the same layout as the volume itself:
// region[(y*sizeX+x)*sizeZ+z].
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) ([]float64, error) {
	// Validate parameters
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}

	if startX+sizeX > v.width || startY+sizeY > v.height || startZ+sizeZ > v.depth {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := make([]float64, sizeX*sizeY*sizeZ)

	for y := 0; y < sizeY; y++ {
		for x := 0; x < sizeX; x++ {
			for z := 0; z < sizeZ; z++ {
				srcIdx := ((startY+y)*v.width+(startX+x))*v.depth + (startZ + z)
				dstIdx := (y*sizeX+x)*sizeZ + z

				if srcIdx < len(v.volumeData) && dstIdx < len(region) {
					region[dstIdx] = v.volumeData[srcIdx]
				}
			}
		}
	}

	return region, nil
}

// SaveSlice saves an extracted slice as a PNG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSliceSequence extracts and saves a sequence of slices along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.width
	case "y", "Y":
		maxPos = v.height
	case "z", "Z":
		maxPos = v.depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
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
