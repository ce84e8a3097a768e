package gibbs

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// This file holds the frequency-domain plumbing shared by the line
// corrector and the slice combiner. The transforms themselves come from
// go-dsp, which handles arbitrary (not just power-of-two) dimensions
// and normalizes the inverse, so abs(ifft2(fft2(x))) round-trips to x.

// fftShift2D reorders a spectrum so the zero-frequency bin moves to the
// center of the grid. Every element at (i, j) travels to
// ((i+rows/2)%rows, (j+cols/2)%cols); for odd dimensions the extra
// element stays with the lower half, so applying the shift twice is not
// the identity there, matching the usual fftshift convention.
func fftShift2D(src [][]complex128) [][]complex128 {
	rows := len(src)
	cols := len(src[0])
	dst := make([][]complex128, rows)
	for i := range dst {
		dst[i] = make([]complex128, cols)
	}
	for i := 0; i < rows; i++ {
		ii := (i + rows/2) % rows
		for j := 0; j < cols; j++ {
			dst[ii][(j+cols/2)%cols] = src[i][j]
		}
	}
	return dst
}

// forwardShifted computes the centered spectrum of a real image.
func forwardShifted(img [][]float64) [][]complex128 {
	return fftShift2D(fft.FFT2Real(img))
}

// magnitude2D takes the modulus of every sample, turning a complex
// spatial buffer back into real intensities.
func magnitude2D(src [][]complex128) [][]float64 {
	out := make([][]float64, len(src))
	for i := range src {
		row := make([]float64, len(src[i]))
		for j, c := range src[i] {
			row[j] = cmplx.Abs(c)
		}
		out[i] = row
	}
	return out
}

// makeGrid allocates a zeroed rows×cols grid.
func makeGrid(rows, cols int) [][]float64 {
	g := make([][]float64, rows)
	for i := range g {
		g[i] = make([]float64, cols)
	}
	return g
}

// makeComplexGrid allocates a zeroed rows×cols complex grid.
func makeComplexGrid(rows, cols int) [][]complex128 {
	g := make([][]complex128, rows)
	for i := range g {
		g[i] = make([]complex128, cols)
	}
	return g
}

// cloneGrid returns a deep copy of a grid.
func cloneGrid(src [][]float64) [][]float64 {
	dst := make([][]float64, len(src))
	for i := range src {
		row := make([]float64, len(src[i]))
		copy(row, src[i])
		dst[i] = row
	}
	return dst
}

// transposeGrid returns the transpose of a grid.
func transposeGrid(src [][]float64) [][]float64 {
	rows := len(src)
	cols := len(src[0])
	dst := make([][]float64, cols)
	for j := 0; j < cols; j++ {
		row := make([]float64, rows)
		for i := 0; i < rows; i++ {
			row[i] = src[i][j]
		}
		dst[j] = row
	}
	return dst
}

// wrap maps an index onto [0, n) with periodic boundaries, handling
// negative values.
func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
