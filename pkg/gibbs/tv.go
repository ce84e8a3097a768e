package gibbs

import "math"

// localTV scores the local total variation of every pixel along one
// axis, looking separately at the window of neighbors ahead of the
// pixel and the window behind it.
//
// ptv[i][j] accumulates the absolute differences between consecutive
// samples over the next window neighbors along the axis and ntv[i][j]
// over the previous window neighbors. The axis is treated as periodic:
// the data comes from a finite Fourier expansion, so samples past one
// edge continue at the opposite edge.
//
// Parameters:
//   - img: 2D intensity grid
//   - axis: 0 to score down the rows, 1 to score along them
//   - window: number of neighbor differences accumulated per direction
//
// Returns:
//   - ptv, ntv: grids of non-negative variation scores shaped like img
func localTV(img [][]float64, axis, window int) (ptv, ntv [][]float64) {
	rows := len(img)
	cols := len(img[0])
	ptv = makeGrid(rows, cols)
	ntv = makeGrid(rows, cols)

	if axis == 1 {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				var p, n float64
				for w := 0; w < window; w++ {
					p += math.Abs(img[i][wrap(j+w, cols)] - img[i][wrap(j+w+1, cols)])
					n += math.Abs(img[i][wrap(j-w, cols)] - img[i][wrap(j-w-1, cols)])
				}
				ptv[i][j] = p
				ntv[i][j] = n
			}
		}
		return ptv, ntv
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var p, n float64
			for w := 0; w < window; w++ {
				p += math.Abs(img[wrap(i+w, rows)][j] - img[wrap(i+w+1, rows)][j])
				n += math.Abs(img[wrap(i-w, rows)][j] - img[wrap(i-w-1, rows)][j])
			}
			ptv[i][j] = p
			ntv[i][j] = n
		}
	}
	return ptv, ntv
}
