package gibbs

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// taperWeights builds the pair of complementary masks used to blend two
// axis-corrected spectra into one image. Both masks are laid out for
// centered spectra, so low frequencies sit in the middle of the grid.
//
// In the interior the masks taper with raised cosines over per-axis
// frequencies spanning [-pi, pi]: where variation along axis 0 is slow
// the axis-1 correction is trusted (g1 large) and vice versa. Border
// bins are pinned instead of tapered. The first and last columns take
// the axis-1 correction outright, the first and last rows the axis-0
// correction, and the four corners split evenly. g0+g1 = 1 everywhere.
func taperWeights(rows, cols int) (g0, g1 [][]float64) {
	g0 = makeGrid(rows, cols)
	g1 = makeGrid(rows, cols)

	k0 := floats.Span(make([]float64, rows), -math.Pi, math.Pi)
	k1 := floats.Span(make([]float64, cols), -math.Pi, math.Pi)

	// Interior bins exclude the ±pi endpoints, so the denominator
	// stays positive.
	for i := 1; i < rows-1; i++ {
		cos0 := 1 + math.Cos(k0[i])
		for j := 1; j < cols-1; j++ {
			cos1 := 1 + math.Cos(k1[j])
			g1[i][j] = cos0 / (cos0 + cos1)
			g0[i][j] = cos1 / (cos0 + cos1)
		}
	}

	for i := 1; i < rows-1; i++ {
		g1[i][0] = 1
		g1[i][cols-1] = 1
	}
	for j := 1; j < cols-1; j++ {
		g0[0][j] = 1
		g0[rows-1][j] = 1
	}
	for _, c := range [4][2]int{{0, 0}, {0, cols - 1}, {rows - 1, 0}, {rows - 1, cols - 1}} {
		g0[c[0]][c[1]] = 0.5
		g1[c[0]][c[1]] = 0.5
	}

	return g0, g1
}

var weightCache = struct {
	sync.Mutex
	masks map[[2]int]*weightPair
}{masks: make(map[[2]int]*weightPair)}

type weightPair struct {
	g0, g1 [][]float64
}

// weightsFor returns the blending masks for a slice shape, computing
// them on first use and serving the cached pair afterwards. Every slice
// of a volume shares one shape, so a correction run computes the masks
// exactly once and the workers read them concurrently without copying.
func weightsFor(rows, cols int) (g0, g1 [][]float64) {
	key := [2]int{rows, cols}

	weightCache.Lock()
	defer weightCache.Unlock()
	if p, ok := weightCache.masks[key]; ok {
		return p.g0, p.g1
	}
	g0, g1 = taperWeights(rows, cols)
	weightCache.masks[key] = &weightPair{g0: g0, g1: g1}
	return g0, g1
}
