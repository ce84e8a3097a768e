// Package interpolation provides point-sampling primitives over dense
// scalar and vector fields stored as flat row-major slices. Linear
// samplers treat everything beyond the field as a zero background, so
// values fade out smoothly across the border; nearest-neighbor samplers
// snap to the closest voxel and return zero once no voxel is closest.
//
// Every sampler also reports whether the queried point lies inside the
// closed box spanned by the voxel centers, [0, n-1] along each axis.
// The flag is independent of the value: points in the one-voxel margin
// around the box still sample meaningful values but are flagged
// outside.
package interpolation

import "math"

// Bilinear samples a 2D scalar field at fractional coordinates.
//
// Parameters:
//   - field: row-major rows×cols scalar field
//   - rows, cols: field extents
//   - r, c: sampling coordinates in voxel units
//
// Returns:
//   - The interpolated value, zero-background outside the field
//   - Whether (r, c) lies inside the [0, rows-1]×[0, cols-1] box
func Bilinear(field []float64, rows, cols int, r, c float64) (float64, bool) {
	if r <= -1 || c <= -1 || r >= float64(rows) || c >= float64(cols) {
		return 0, false
	}

	ii := int(math.Floor(r))
	jj := int(math.Floor(c))
	alpha := r - float64(ii)
	beta := c - float64(jj)

	var v float64
	if ii >= 0 && jj >= 0 {
		v += (1 - alpha) * (1 - beta) * field[ii*cols+jj]
	}
	if ii >= 0 && jj+1 < cols {
		v += (1 - alpha) * beta * field[ii*cols+jj+1]
	}
	if ii+1 < rows && jj >= 0 {
		v += alpha * (1 - beta) * field[(ii+1)*cols+jj]
	}
	if ii+1 < rows && jj+1 < cols {
		v += alpha * beta * field[(ii+1)*cols+jj+1]
	}
	return v, inside2(r, c, rows, cols)
}

// Trilinear samples a 3D scalar field at fractional coordinates. The
// field is laid out slice by slice, each slice row-major.
//
// Parameters:
//   - field: row-major slices×rows×cols scalar field
//   - slices, rows, cols: field extents
//   - s, r, c: sampling coordinates in voxel units
//
// Returns:
//   - The interpolated value, zero-background outside the field
//   - Whether the point lies inside the box spanned by voxel centers
func Trilinear(field []float64, slices, rows, cols int, s, r, c float64) (float64, bool) {
	if s <= -1 || r <= -1 || c <= -1 ||
		s >= float64(slices) || r >= float64(rows) || c >= float64(cols) {
		return 0, false
	}

	kk := int(math.Floor(s))
	ii := int(math.Floor(r))
	jj := int(math.Floor(c))
	gamma := s - float64(kk)
	alpha := r - float64(ii)
	beta := c - float64(jj)

	var v float64
	for ds := 0; ds <= 1; ds++ {
		ws := 1 - gamma
		if ds == 1 {
			ws = gamma
		}
		for dr := 0; dr <= 1; dr++ {
			wr := 1 - alpha
			if dr == 1 {
				wr = alpha
			}
			for dc := 0; dc <= 1; dc++ {
				wc := 1 - beta
				if dc == 1 {
					wc = beta
				}
				ks, is, js := kk+ds, ii+dr, jj+dc
				if ks < 0 || is < 0 || js < 0 || ks >= slices || is >= rows || js >= cols {
					continue
				}
				v += ws * wr * wc * field[(ks*rows+is)*cols+js]
			}
		}
	}
	return v, inside3(s, r, c, slices, rows, cols)
}

// Nearest2D samples a 2D scalar field at the voxel nearest to the
// coordinates, rounding half away from the origin, so offsets of
// exactly .5 snap upward. Points farther than half a voxel from every
// center sample zero.
func Nearest2D(field []float64, rows, cols int, r, c float64) (float64, bool) {
	if r < -0.5 || c < -0.5 || r >= float64(rows)-0.5 || c >= float64(cols)-0.5 {
		return 0, inside2(r, c, rows, cols)
	}
	ii := int(math.Floor(r + 0.5))
	jj := int(math.Floor(c + 0.5))
	return field[ii*cols+jj], inside2(r, c, rows, cols)
}

// Nearest3D samples a 3D scalar field at the voxel nearest to the
// coordinates, with the same rounding as Nearest2D.
func Nearest3D(field []float64, slices, rows, cols int, s, r, c float64) (float64, bool) {
	if s < -0.5 || r < -0.5 || c < -0.5 ||
		s >= float64(slices)-0.5 || r >= float64(rows)-0.5 || c >= float64(cols)-0.5 {
		return 0, inside3(s, r, c, slices, rows, cols)
	}
	kk := int(math.Floor(s + 0.5))
	ii := int(math.Floor(r + 0.5))
	jj := int(math.Floor(c + 0.5))
	return field[(kk*rows+ii)*cols+jj], inside3(s, r, c, slices, rows, cols)
}

// BilinearVector samples a 2D vector field at fractional coordinates,
// interpolating every channel with the same weights. The field stores
// channels contiguously per voxel and out must hold channels values.
//
// Returns whether the point lies inside the box spanned by voxel
// centers, like Bilinear.
func BilinearVector(field []float64, rows, cols, channels int, r, c float64, out []float64) bool {
	for k := 0; k < channels; k++ {
		out[k] = 0
	}
	if r <= -1 || c <= -1 || r >= float64(rows) || c >= float64(cols) {
		return false
	}

	ii := int(math.Floor(r))
	jj := int(math.Floor(c))
	alpha := r - float64(ii)
	beta := c - float64(jj)

	if ii >= 0 && jj >= 0 {
		w := (1 - alpha) * (1 - beta)
		base := (ii*cols + jj) * channels
		for k := 0; k < channels; k++ {
			out[k] += w * field[base+k]
		}
	}
	if ii >= 0 && jj+1 < cols {
		w := (1 - alpha) * beta
		base := (ii*cols + jj + 1) * channels
		for k := 0; k < channels; k++ {
			out[k] += w * field[base+k]
		}
	}
	if ii+1 < rows && jj >= 0 {
		w := alpha * (1 - beta)
		base := ((ii+1)*cols + jj) * channels
		for k := 0; k < channels; k++ {
			out[k] += w * field[base+k]
		}
	}
	if ii+1 < rows && jj+1 < cols {
		w := alpha * beta
		base := ((ii+1)*cols + jj + 1) * channels
		for k := 0; k < channels; k++ {
			out[k] += w * field[base+k]
		}
	}
	return inside2(r, c, rows, cols)
}

// TrilinearVector samples a 3D vector field at fractional coordinates,
// interpolating every channel with the same weights. out must hold
// channels values.
func TrilinearVector(field []float64, slices, rows, cols, channels int, s, r, c float64, out []float64) bool {
	for k := 0; k < channels; k++ {
		out[k] = 0
	}
	if s <= -1 || r <= -1 || c <= -1 ||
		s >= float64(slices) || r >= float64(rows) || c >= float64(cols) {
		return false
	}

	kk := int(math.Floor(s))
	ii := int(math.Floor(r))
	jj := int(math.Floor(c))
	gamma := s - float64(kk)
	alpha := r - float64(ii)
	beta := c - float64(jj)

	for ds := 0; ds <= 1; ds++ {
		ws := 1 - gamma
		if ds == 1 {
			ws = gamma
		}
		for dr := 0; dr <= 1; dr++ {
			wr := 1 - alpha
			if dr == 1 {
				wr = alpha
			}
			for dc := 0; dc <= 1; dc++ {
				wc := 1 - beta
				if dc == 1 {
					wc = beta
				}
				ks, is, js := kk+ds, ii+dr, jj+dc
				if ks < 0 || is < 0 || js < 0 || ks >= slices || is >= rows || js >= cols {
					continue
				}
				w := ws * wr * wc
				base := ((ks*rows+is)*cols + js) * channels
				for k := 0; k < channels; k++ {
					out[k] += w * field[base+k]
				}
			}
		}
	}
	return inside3(s, r, c, slices, rows, cols)
}

func inside2(r, c float64, rows, cols int) bool {
	return r >= 0 && c >= 0 && r <= float64(rows-1) && c <= float64(cols-1)
}

func inside3(s, r, c float64, slices, rows, cols int) bool {
	return s >= 0 && r >= 0 && c >= 0 &&
		s <= float64(slices-1) && r <= float64(rows-1) && c <= float64(cols-1)
}
