package gibbs

import (
	"math"
	"math/rand"
	"testing"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// TestLocalTVConstantImage verifies that a constant image has zero
// local total variation in both directions along both axes.
func TestLocalTVConstantImage(t *testing.T) {
	img := makeGrid(6, 9)
	for i := range img {
		for j := range img[i] {
			img[i][j] = 7.5
		}
	}

	for _, axis := range []int{0, 1} {
		ptv, ntv := localTV(img, axis, 3)
		for i := range ptv {
			for j := range ptv[i] {
				if ptv[i][j] != 0 || ntv[i][j] != 0 {
					t.Errorf("Expected zero TV on constant image at (%d,%d) axis %d, got ptv=%g ntv=%g",
						i, j, axis, ptv[i][j], ntv[i][j])
				}
			}
		}
	}
}

// TestLocalTVHandComputed verifies the directional TV scores against
// hand-computed values, including the periodic wrap at the edges.
func TestLocalTVHandComputed(t *testing.T) {
	line := []float64{1, 2, 4, 0}
	img := [][]float64{line}

	ptv, ntv := localTV(img, 1, 1)
	wantP := []float64{1, 2, 4, 1}
	wantN := []float64{1, 1, 2, 4}
	for j := range line {
		if ptv[0][j] != wantP[j] {
			t.Errorf("Expected ptv[%d]=%g with window 1, got %g", j, wantP[j], ptv[0][j])
		}
		if ntv[0][j] != wantN[j] {
			t.Errorf("Expected ntv[%d]=%g with window 1, got %g", j, wantN[j], ntv[0][j])
		}
	}

	ptv, ntv = localTV(img, 1, 2)
	wantP = []float64{3, 6, 5, 2}
	wantN = []float64{5, 2, 3, 6}
	for j := range line {
		if ptv[0][j] != wantP[j] {
			t.Errorf("Expected ptv[%d]=%g with window 2, got %g", j, wantP[j], ptv[0][j])
		}
		if ntv[0][j] != wantN[j] {
			t.Errorf("Expected ntv[%d]=%g with window 2, got %g", j, wantN[j], ntv[0][j])
		}
	}

	// The same data down a single column must give the same scores
	// along axis 0.
	col := transposeGrid(img)
	ptv, ntv = localTV(col, 0, 2)
	wantP = []float64{3, 6, 5, 2}
	wantN = []float64{5, 2, 3, 6}
	for i := range line {
		if ptv[i][0] != wantP[i] {
			t.Errorf("Expected ptv[%d]=%g along axis 0, got %g", i, wantP[i], ptv[i][0])
		}
		if ntv[i][0] != wantN[i] {
			t.Errorf("Expected ntv[%d]=%g along axis 0, got %g", i, wantN[i], ntv[i][0])
		}
	}
}

// TestLocalTVNonNegative verifies that TV scores are never negative on
// arbitrary data.
func TestLocalTVNonNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	img := makeGrid(8, 5)
	for i := range img {
		for j := range img[i] {
			img[i][j] = rng.NormFloat64()
		}
	}

	for _, axis := range []int{0, 1} {
		ptv, ntv := localTV(img, axis, 4)
		for i := range ptv {
			for j := range ptv[i] {
				if ptv[i][j] < 0 || ntv[i][j] < 0 {
					t.Errorf("Expected non-negative TV at (%d,%d) axis %d, got ptv=%g ntv=%g",
						i, j, axis, ptv[i][j], ntv[i][j])
				}
			}
		}
	}
}

// TestTaperWeights verifies that the blending masks are complementary
// everywhere and pinned on the borders, including non-square shapes.
func TestTaperWeights(t *testing.T) {
	rows, cols := 6, 8
	g0, g1 := taperWeights(rows, cols)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum := g0[i][j] + g1[i][j]
			if math.Abs(sum-1) > 1e-12 {
				t.Errorf("Expected g0+g1=1 at (%d,%d), got %g", i, j, sum)
			}
			if g0[i][j] < 0 || g0[i][j] > 1 || g1[i][j] < 0 || g1[i][j] > 1 {
				t.Errorf("Expected weights in [0,1] at (%d,%d), got g0=%g g1=%g", i, j, g0[i][j], g1[i][j])
			}
		}
	}

	// Left and right columns take the axis-1 correction outright.
	for i := 1; i < rows-1; i++ {
		if g1[i][0] != 1 || g1[i][cols-1] != 1 {
			t.Errorf("Expected g1=1 on side columns of row %d, got %g and %g", i, g1[i][0], g1[i][cols-1])
		}
	}
	// Top and bottom rows take the axis-0 correction outright.
	for j := 1; j < cols-1; j++ {
		if g0[0][j] != 1 || g0[rows-1][j] != 1 {
			t.Errorf("Expected g0=1 on top and bottom of column %d, got %g and %g", j, g0[0][j], g0[rows-1][j])
		}
	}
	// Corners split evenly.
	for _, c := range [4][2]int{{0, 0}, {0, cols - 1}, {rows - 1, 0}, {rows - 1, cols - 1}} {
		if g0[c[0]][c[1]] != 0.5 || g1[c[0]][c[1]] != 0.5 {
			t.Errorf("Expected corner (%d,%d) weights 0.5, got g0=%g g1=%g",
				c[0], c[1], g0[c[0]][c[1]], g1[c[0]][c[1]])
		}
	}
}

// TestTaperWeightsCenter verifies that the exact center of an
// odd-sized square mask trusts both axes equally.
func TestTaperWeightsCenter(t *testing.T) {
	g0, g1 := taperWeights(9, 9)
	if math.Abs(g0[4][4]-0.5) > 1e-12 || math.Abs(g1[4][4]-0.5) > 1e-12 {
		t.Errorf("Expected 0.5 at the center, got g0=%g g1=%g", g0[4][4], g1[4][4])
	}
}

// TestFFTShift verifies the quadrant swap for even and odd dimensions.
func TestFFTShift(t *testing.T) {
	src := makeComplexGrid(4, 4)
	src[0][0] = 1
	dst := fftShift2D(src)
	if dst[2][2] != 1 {
		t.Errorf("Expected DC bin at (2,2) after shifting a 4x4 grid, got %v", dst[2][2])
	}

	src = makeComplexGrid(3, 5)
	src[0][0] = 1
	src[2][4] = 2
	dst = fftShift2D(src)
	if dst[1][2] != 1 {
		t.Errorf("Expected DC bin at (1,2) after shifting a 3x5 grid, got %v", dst[1][2])
	}
	if dst[0][1] != 2 {
		t.Errorf("Expected bin (2,4) to land at (0,1), got %v", dst[0][1])
	}
}

// TestSwapAxisRoundTrip verifies that bringing an axis to position 2
// and back restores the original volume, and that elements land where
// the permutation says they should.
func TestSwapAxisRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	data := make([]float64, 2*3*4)
	for i := range data {
		data[i] = rng.Float64()
	}
	vol := &Volume{Data: data, Shape: []int{2, 3, 4}}

	for axis := 0; axis < 2; axis++ {
		swapped := swapAxis2(vol, axis)
		back := swapAxis2(swapped, axis)
		if len(back.Data) != len(vol.Data) {
			t.Fatalf("Expected %d samples after round trip, got %d", len(vol.Data), len(back.Data))
		}
		for i := range vol.Data {
			if back.Data[i] != vol.Data[i] {
				t.Fatalf("Round trip through axis %d changed sample %d", axis, i)
			}
		}
	}

	// Spot-check the axis 0 mapping: element (1,2,3) must move to (3,2,1).
	swapped := swapAxis2(vol, 0)
	got := swapped.Data[(3*3+2)*2+1]
	want := vol.Data[(1*3+2)*4+3]
	if got != want {
		t.Errorf("Expected element (1,2,3) at (3,2,1) after swapping, got %g want %g", got, want)
	}

	// Rank 4 keeps the channel axis in place.
	data4 := make([]float64, 2*3*4*5)
	for i := range data4 {
		data4[i] = rng.Float64()
	}
	vol4 := &Volume{Data: data4, Shape: []int{2, 3, 4, 5}}
	swapped = swapAxis2(vol4, 1)
	back := swapAxis2(swapped, 1)
	for i := range vol4.Data {
		if back.Data[i] != vol4.Data[i] {
			t.Fatalf("Rank 4 round trip through axis 1 changed sample %d", i)
		}
	}
	got = swapped.Data[((1*4+3)*3+2)*5+4]
	want = vol4.Data[((1*3+2)*4+3)*5+4]
	if got != want {
		t.Errorf("Expected element (1,2,3,4) at (1,3,2,4) after swapping, got %g want %g", got, want)
	}
}

// TestRemoveConstantImage verifies that an image without edges passes
// through the corrector essentially unchanged.
func TestRemoveConstantImage(t *testing.T) {
	data := make([]float64, 8*8)
	for i := range data {
		data[i] = 3
	}
	vol, err := NewVolume(data, 8, 8)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}

	out, err := Remove(vol, nil)
	if err != nil {
		t.Fatalf("Failed to correct constant image: %v", err)
	}
	for i, v := range out.Data {
		if math.Abs(v-3) > 1e-9 {
			t.Errorf("Expected constant value 3 at sample %d, got %g", i, v)
		}
	}
}

// TestRemoveSmoothImage verifies that a non-negative band-limited
// image free of ringing is approximately preserved.
func TestRemoveSmoothImage(t *testing.T) {
	const n = 32
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = 1.5 + math.Sin(2*math.Pi*float64(j)/n)
		}
	}
	vol, err := NewVolume(data, n, n)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}

	out, err := Remove(vol, nil)
	if err != nil {
		t.Fatalf("Failed to correct smooth image: %v", err)
	}

	var maxDiff, sumDiff float64
	for i := range out.Data {
		d := math.Abs(out.Data[i] - vol.Data[i])
		if d > maxDiff {
			maxDiff = d
		}
		sumDiff += d
	}
	if maxDiff > 0.05 {
		t.Errorf("Expected smooth image to be nearly preserved, max deviation %g", maxDiff)
	}
	if sumDiff/float64(len(out.Data)) > 0.02 {
		t.Errorf("Expected small mean deviation on smooth image, got %g", sumDiff/float64(len(out.Data)))
	}
}

// totalTV sums the absolute differences between horizontally and
// vertically adjacent pixels, without wrapping. Used to compare ringing
// levels before and after correction.
func totalTV(data []float64, rows, cols int) float64 {
	var tv float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j+1 < cols {
				tv += math.Abs(data[i*cols+j] - data[i*cols+j+1])
			}
			if i+1 < rows {
				tv += math.Abs(data[i*cols+j] - data[(i+1)*cols+j])
			}
		}
	}
	return tv
}

// ringingPhantom builds a square phantom and reconstructs it from a
// truncated Fourier expansion, producing the oscillating overshoot the
// corrector is meant to suppress.
func ringingPhantom(n, keep int) []float64 {
	img := makeGrid(n, n)
	for i := n / 4; i < 3*n/4; i++ {
		for j := n / 4; j < 3*n/4; j++ {
			img[i][j] = 1
		}
	}

	spec := fftShift2D(fft.FFT2Real(img))
	lo := n/2 - keep/2
	hi := lo + keep
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i < lo || i >= hi || j < lo || j >= hi {
				spec[i][j] = 0
			}
		}
	}
	truncated := magnitude2D(fft.IFFT2(fftShift2D(spec)))

	data := make([]float64, 0, n*n)
	for i := 0; i < n; i++ {
		data = append(data, truncated[i]...)
	}
	return data
}

// TestRemoveReducesRinging verifies that correcting a ringing phantom
// strictly lowers its total variation.
func TestRemoveReducesRinging(t *testing.T) {
	const n = 64
	data := ringingPhantom(n, n/2)
	vol, err := NewVolume(data, n, n)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}

	before := totalTV(vol.Data, n, n)
	out, err := Remove(vol, nil)
	if err != nil {
		t.Fatalf("Failed to correct phantom: %v", err)
	}
	after := totalTV(out.Data, n, n)

	if after >= before {
		t.Errorf("Expected corrected TV below %g, got %g", before, after)
	}
	for i, v := range out.Data {
		if v < 0 {
			t.Errorf("Expected non-negative magnitudes, sample %d is %g", i, v)
		}
	}
}

// TestRemoveShapes verifies that volumes of every supported rank come
// back with their shape intact, that the input volume is untouched and
// that progress is reported once per slice.
func TestRemoveShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	shapes := [][]int{
		{8, 8},
		{8, 6, 3},
		{6, 8, 2, 2},
	}

	for _, shape := range shapes {
		n := 1
		for _, s := range shape {
			n *= s
		}
		data := make([]float64, n)
		for i := range data {
			data[i] = rng.Float64()
		}
		vol, err := NewVolume(data, shape...)
		if err != nil {
			t.Fatalf("Failed to create volume %v: %v", shape, err)
		}
		original := vol.Clone()

		var calls, lastDone, lastTotal int
		params := DefaultParams()
		params.ShiftSteps = 10
		params.Progress = func(done, total int) {
			calls++
			if done != calls {
				t.Errorf("Expected progress in completion order, call %d reported done=%d", calls, done)
			}
			lastDone, lastTotal = done, total
		}

		out, err := Remove(vol, params)
		if err != nil {
			t.Fatalf("Failed to correct volume %v: %v", shape, err)
		}

		if len(out.Shape) != len(shape) {
			t.Fatalf("Expected rank %d, got %d", len(shape), len(out.Shape))
		}
		for i := range shape {
			if out.Shape[i] != shape[i] {
				t.Errorf("Expected shape %v, got %v", shape, out.Shape)
				break
			}
		}
		for i := range vol.Data {
			if vol.Data[i] != original.Data[i] {
				t.Fatalf("Input volume %v was modified at sample %d", shape, i)
			}
		}

		wantSlices := 1
		for _, s := range shape[2:] {
			wantSlices *= s
		}
		if calls != wantSlices {
			t.Errorf("Expected %d progress calls for shape %v, got %d", wantSlices, shape, calls)
		}
		if lastDone != wantSlices || lastTotal != wantSlices {
			t.Errorf("Expected final progress (%d,%d), got (%d,%d)", wantSlices, wantSlices, lastDone, lastTotal)
		}
	}
}

// TestRemoveInvalidInputs verifies the documented rejection of
// unsupported axes, ranks and parameter values before any processing
// happens.
func TestRemoveInvalidInputs(t *testing.T) {
	good := make([]float64, 4*4)
	vol, err := NewVolume(good, 4, 4)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}

	axis3 := DefaultParams()
	axis3.SliceAxis = 3
	if _, err := Remove(vol, axis3); err == nil {
		t.Error("Expected error for slice axis 3, got nil")
	}

	negAxis := DefaultParams()
	negAxis.SliceAxis = -1
	if _, err := Remove(vol, negAxis); err == nil {
		t.Error("Expected error for negative slice axis, got nil")
	}

	rank1 := &Volume{Data: make([]float64, 5), Shape: []int{5}}
	if _, err := Remove(rank1, nil); err == nil {
		t.Error("Expected error for rank 1 data, got nil")
	}

	rank5 := &Volume{Data: make([]float64, 32), Shape: []int{2, 2, 2, 2, 2}}
	if _, err := Remove(rank5, nil); err == nil {
		t.Error("Expected error for rank 5 data, got nil")
	}

	if _, err := Remove(nil, nil); err == nil {
		t.Error("Expected error for nil volume, got nil")
	}

	mismatched := &Volume{Data: make([]float64, 10), Shape: []int{4, 4}}
	if _, err := Remove(mismatched, nil); err == nil {
		t.Error("Expected error for shape/data mismatch, got nil")
	}

	tiny := &Volume{Data: make([]float64, 4), Shape: []int{1, 4}}
	if _, err := Remove(tiny, nil); err == nil {
		t.Error("Expected error for single-row slices, got nil")
	}

	badWindow := DefaultParams()
	badWindow.NPoints = 0
	if _, err := Remove(vol, badWindow); err == nil {
		t.Error("Expected error for zero TV window, got nil")
	}

	badSteps := DefaultParams()
	badSteps.ShiftSteps = 1
	if _, err := Remove(vol, badSteps); err == nil {
		t.Error("Expected error for a single shift step, got nil")
	}

	badRange := DefaultParams()
	badRange.MinShift = 0
	if _, err := Remove(vol, badRange); err == nil {
		t.Error("Expected error for zero minimum shift, got nil")
	}

	inverted := DefaultParams()
	inverted.MinShift = 0.9
	inverted.MaxShift = 0.02
	if _, err := Remove(vol, inverted); err == nil {
		t.Error("Expected error for inverted shift range, got nil")
	}
}

// TestRemoveSliceAxisEquivalence verifies that correcting along a
// nonstandard slice axis matches permuting the volume, correcting along
// axis 2 and permuting back.
func TestRemoveSliceAxisEquivalence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping slice axis equivalence test in short mode")
	}

	rng := rand.New(rand.NewSource(5))
	data := make([]float64, 3*8*8)
	for i := range data {
		data[i] = rng.Float64()
	}

	params := DefaultParams()
	params.ShiftSteps = 12

	for axis := 0; axis < 2; axis++ {
		shape := []int{8, 8, 8}
		shape[axis] = 3
		n := shape[0] * shape[1] * shape[2]
		vol := &Volume{Data: data[:n], Shape: shape}

		p := *params
		p.SliceAxis = axis
		direct, err := Remove(vol, &p)
		if err != nil {
			t.Fatalf("Failed to correct along axis %d: %v", axis, err)
		}

		p2 := *params
		p2.SliceAxis = 2
		permuted, err := Remove(swapAxis2(vol, axis), &p2)
		if err != nil {
			t.Fatalf("Failed to correct permuted volume: %v", err)
		}
		manual := swapAxis2(permuted, axis)

		for i := range direct.Data {
			if direct.Data[i] != manual.Data[i] {
				t.Fatalf("Axis %d correction disagrees with the permuted run at sample %d", axis, i)
			}
		}
		for i := range direct.Shape {
			if direct.Shape[i] != shape[i] {
				t.Fatalf("Expected shape %v for axis %d, got %v", shape, axis, direct.Shape)
			}
		}
	}
}

// TestRemoveChannelEquivalence verifies that a rank 4 volume is
// corrected exactly like its slices taken one channel at a time.
func TestRemoveChannelEquivalence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping channel equivalence test in short mode")
	}

	rng := rand.New(rand.NewSource(9))
	const x, y, z, g = 8, 8, 2, 3
	data := make([]float64, x*y*z*g)
	for i := range data {
		data[i] = rng.Float64()
	}
	vol := &Volume{Data: data, Shape: []int{x, y, z, g}}

	params := DefaultParams()
	params.ShiftSteps = 12

	full, err := Remove(vol, params)
	if err != nil {
		t.Fatalf("Failed to correct rank 4 volume: %v", err)
	}

	for zi := 0; zi < z; zi++ {
		for gi := 0; gi < g; gi++ {
			slice := make([]float64, x*y)
			for i := 0; i < x; i++ {
				for j := 0; j < y; j++ {
					slice[i*y+j] = data[((i*y+j)*z+zi)*g+gi]
				}
			}
			sliceVol := &Volume{Data: slice, Shape: []int{x, y}}
			p := *params
			out, err := Remove(sliceVol, &p)
			if err != nil {
				t.Fatalf("Failed to correct slice (%d,%d): %v", zi, gi, err)
			}
			for i := 0; i < x; i++ {
				for j := 0; j < y; j++ {
					got := full.Data[((i*y+j)*z+zi)*g+gi]
					if got != out.Data[i*y+j] {
						t.Fatalf("Channel (%d,%d) disagrees with standalone correction at (%d,%d)", zi, gi, i, j)
					}
				}
			}
		}
	}
}

// TestRemoveWorkerCountInvariance verifies that the number of workers
// never changes the corrected values.
func TestRemoveWorkerCountInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	data := make([]float64, 8*8*4)
	for i := range data {
		data[i] = rng.Float64()
	}
	vol := &Volume{Data: data, Shape: []int{8, 8, 4}}

	serial := DefaultParams()
	serial.ShiftSteps = 10
	serial.NumWorkers = 1
	one, err := Remove(vol, serial)
	if err != nil {
		t.Fatalf("Failed with one worker: %v", err)
	}

	parallel := DefaultParams()
	parallel.ShiftSteps = 10
	parallel.NumWorkers = 8
	many, err := Remove(vol, parallel)
	if err != nil {
		t.Fatalf("Failed with eight workers: %v", err)
	}

	for i := range one.Data {
		if one.Data[i] != many.Data[i] {
			t.Fatalf("Worker count changed the result at sample %d", i)
		}
	}
}

// TestNewVolumeValidation verifies shape checking on construction.
func TestNewVolumeValidation(t *testing.T) {
	if _, err := NewVolume(make([]float64, 12), 3, 4); err != nil {
		t.Errorf("Expected 3x4 volume to build, got %v", err)
	}
	if _, err := NewVolume(make([]float64, 12), 3, 5); err == nil {
		t.Error("Expected error for mismatched shape, got nil")
	}
	if _, err := NewVolume(make([]float64, 0), 0, 4); err == nil {
		t.Error("Expected error for zero axis, got nil")
	}
	if _, err := NewVolume(make([]float64, 12), -3, -4); err == nil {
		t.Error("Expected error for negative axes, got nil")
	}
}

// BenchmarkCorrectSlice benchmarks the two-axis correction of a single slice
func BenchmarkCorrectSlice(b *testing.B) {
	const n = 64
	data := ringingPhantom(n, n/2)
	img := makeGrid(n, n)
	for i := 0; i < n; i++ {
		copy(img[i], data[i*n:(i+1)*n])
	}

	shifts := make([]float64, 45)
	floats.Span(shifts, 0.02, 0.9)
	g0, g1 := weightsFor(n, n)

	// Reset timer before the actual benchmark
	b.ResetTimer()

	// Run the benchmark
	for i := 0; i < b.N; i++ {
		correctSlice(img, 3, shifts, g0, g1)
	}
}

// BenchmarkLocalTV benchmarks the windowed total variation scoring
func BenchmarkLocalTV(b *testing.B) {
	const n = 64
	data := ringingPhantom(n, n/2)
	img := makeGrid(n, n)
	for i := 0; i < n; i++ {
		copy(img[i], data[i*n:(i+1)*n])
	}

	// Reset timer before the actual benchmark
	b.ResetTimer()

	// Run the benchmark
	for i := 0; i < b.N; i++ {
		localTV(img, 1, 3)
	}
}
