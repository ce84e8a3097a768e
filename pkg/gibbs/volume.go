package gibbs

import "fmt"

// Volume holds a dense stack of image intensities in row-major order
// (last axis fastest). Rank 2 data is a single image [X, Y], rank 3 a
// stack of images [X, Y, Z] and rank 4 a stack of multi-channel images
// [X, Y, Z, G] whose last axis indexes gradient directions or channels
// rather than a spatial dimension.
type Volume struct {
	// Data contains the intensities.
	Data []float64

	// Shape lists the extent of every axis. Its length is the rank.
	Shape []int
}

// NewVolume wraps data in a Volume after checking that the shape is
// positive and describes the data length.
//
// Parameters:
//   - data: intensities in row-major order
//   - shape: extent of each axis, between 2 and 4 entries for use with Remove
//
// Returns:
//   - The volume, or an error when shape and data disagree
func NewVolume(data []float64, shape ...int) (*Volume, error) {
	n := 1
	for _, s := range shape {
		if s <= 0 {
			return nil, fmt.Errorf("volume axis sizes must be positive, got %v", shape)
		}
		n *= s
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %v describes %d samples but data holds %d", shape, n, len(data))
	}
	return &Volume{Data: data, Shape: append([]int(nil), shape...)}, nil
}

// Rank returns the number of axes.
func (v *Volume) Rank() int {
	return len(v.Shape)
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return &Volume{Data: data, Shape: append([]int(nil), v.Shape...)}
}

// swapAxis2 exchanges the given axis with axis 2 and returns the
// permuted copy. For rank 4 volumes the trailing channel axis stays in
// place. Swapping axis 2 with itself returns the volume unchanged. The
// permutation is its own inverse.
func swapAxis2(v *Volume, axis int) *Volume {
	if axis == 2 || v.Rank() < 3 {
		return v
	}

	out := make([]float64, len(v.Data))
	switch {
	case v.Rank() == 3 && axis == 0:
		a, b, c := v.Shape[0], v.Shape[1], v.Shape[2]
		for i := 0; i < a; i++ {
			for j := 0; j < b; j++ {
				for k := 0; k < c; k++ {
					out[(k*b+j)*a+i] = v.Data[(i*b+j)*c+k]
				}
			}
		}
		return &Volume{Data: out, Shape: []int{c, b, a}}

	case v.Rank() == 3 && axis == 1:
		a, b, c := v.Shape[0], v.Shape[1], v.Shape[2]
		for i := 0; i < a; i++ {
			for j := 0; j < b; j++ {
				for k := 0; k < c; k++ {
					out[(i*c+k)*b+j] = v.Data[(i*b+j)*c+k]
				}
			}
		}
		return &Volume{Data: out, Shape: []int{a, c, b}}

	case v.Rank() == 4 && axis == 0:
		a, b, c, g := v.Shape[0], v.Shape[1], v.Shape[2], v.Shape[3]
		for i := 0; i < a; i++ {
			for j := 0; j < b; j++ {
				for k := 0; k < c; k++ {
					for l := 0; l < g; l++ {
						out[((k*b+j)*a+i)*g+l] = v.Data[((i*b+j)*c+k)*g+l]
					}
				}
			}
		}
		return &Volume{Data: out, Shape: []int{c, b, a, g}}

	case v.Rank() == 4 && axis == 1:
		a, b, c, g := v.Shape[0], v.Shape[1], v.Shape[2], v.Shape[3]
		for i := 0; i < a; i++ {
			for j := 0; j < b; j++ {
				for k := 0; k < c; k++ {
					for l := 0; l < g; l++ {
						out[((i*c+k)*b+j)*g+l] = v.Data[((i*b+j)*c+k)*g+l]
					}
				}
			}
		}
		return &Volume{Data: out, Shape: []int{a, c, b, g}}
	}
	return v
}

// extractSlice copies slice vi out of a volume whose trailing axes have
// been collapsed into nSlices interleaved planes, yielding a contiguous
// rows×cols grid. Collapsing [X, Y, Z, G] to [X, Y, Z*G] is free in
// row-major order, so rank 3 and rank 4 volumes share this layout.
func extractSlice(data []float64, rows, cols, nSlices, vi int) [][]float64 {
	img := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		base := i * cols * nSlices
		for j := 0; j < cols; j++ {
			row[j] = data[base+j*nSlices+vi]
		}
		img[i] = row
	}
	return img
}

// storeSlice writes a rows×cols grid back into slice vi of the
// flattened volume layout used by extractSlice.
func storeSlice(data []float64, rows, cols, nSlices, vi int, img [][]float64) {
	for i := 0; i < rows; i++ {
		base := i * cols * nSlices
		for j := 0; j < cols; j++ {
			data[base+j*nSlices+vi] = img[i][j]
		}
	}
}
