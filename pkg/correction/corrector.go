// Package correction drives the end-to-end Gibbs ringing removal
// workflow: loading a directory of MRI slice images, assembling them
// into an intensity volume, correcting the volume in parallel and
// writing the corrected slices back to disk together with quality
// metrics describing what the correction changed.
package correction

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	// Registers the TIFF decoder for image.Decode; MRI exports often
	// arrive as TIFF stacks.
	_ "golang.org/x/image/tiff"

	"mrigibbs/internal/models"
	"mrigibbs/pkg/gibbs"
)

// CorrectionMetrics holds the quality measures computed after a
// correction run. They compare the corrected volume against the input
// volume, quantifying how much ringing was removed and how well real
// structure survived.
type CorrectionMetrics struct {
	// TVBefore is the total in-plane variation of the input volume.
	// Ringing oscillations inflate this number.
	TVBefore float64

	// TVAfter is the total in-plane variation of the corrected volume.
	TVAfter float64

	// TVReductionPct is the relative drop in total variation, in
	// percent. Higher values indicate more oscillation energy removed.
	TVReductionPct float64

	// RMSE (Root Mean Square Error) measures the average magnitude of
	// the per-voxel changes the correction made. Large values on clean
	// input suggest over-correction.
	RMSE float64

	// SSIM (Structural Similarity Index) measures the perceived
	// similarity between input and corrected volumes, considering
	// luminance, contrast, and structure. Values range from -1 to 1,
	// with 1 indicating the volumes look identical.
	SSIM float64

	// EntropyDiff is the difference in information content (entropy)
	// between the input and corrected volumes. Lower values indicate
	// better information preservation.
	EntropyDiff float64

	// EdgePreserved measures how well edges and boundaries are
	// maintained by the correction. Values range from 0 to 1, with 1
	// indicating perfect edge preservation.
	EdgePreserved float64
}

// Params holds the correction workflow parameters. These parameters
// control the input/output and processing configuration.
type Params struct {
	// InputDir is the directory containing 2D MRI slice images.
	// PNG, JPEG and TIFF files are loaded; filenames are sorted by
	// their numeric part to maintain proper slice order.
	InputDir string

	// OutputDir is the directory where corrected slices will be saved.
	OutputDir string

	// NumCores specifies how many CPU cores to use for parallel
	// processing. Zero or negative selects all available cores.
	NumCores int

	// SliceAxis selects the volume axis treated as the slice axis
	// during correction. The volume is assembled with the image stack
	// along axis 2, so 2 corrects the loaded images one by one.
	SliceAxis int

	// NPoints is the neighborhood size used when scoring local total
	// variation. Zero selects the corrector's default.
	NPoints int

	// MinShift, MaxShift and ShiftSteps override the trial shift grid.
	// Zero values select the corrector's defaults.
	MinShift   float64
	MaxShift   float64
	ShiftSteps int

	// SaveDiffMaps determines whether per-slice difference maps are
	// written next to the corrected slices. The maps show where the
	// correction changed the image, normalized to the largest change.
	SaveDiffMaps bool

	// DiffMapsDir is the directory difference maps are written to.
	// Only used when SaveDiffMaps is true.
	DiffMapsDir string

	// OutputFormat selects the corrected slice image format, "png"
	// (default) or "jpeg".
	OutputFormat string

	// Verbose enables informational prints beyond the step headers.
	Verbose bool
}

// Corrector handles the Gibbs ringing removal workflow.
//
// The correction process consists of several steps:
// 1. Loading and sorting input slices
// 2. Assembling the slices into an intensity volume
// 3. Removing Gibbs ringing slice by slice in parallel
// 4. Calculating correction quality metrics
// 5. Saving corrected slices and optional difference maps
type Corrector struct {
	// params stores the workflow configuration
	params *Params

	// slices holds the loaded MRI slices in stack order
	slices []models.Slice

	// width and height store the dimensions of the input slices
	width  int
	height int

	// volume and corrected hold the assembled input intensities and
	// the correction result
	volume    *gibbs.Volume
	corrected *gibbs.Volume

	// metrics stores the quality assessment after correction
	metrics CorrectionMetrics

	// startTime anchors the progress reporting
	startTime time.Time
}

// NewCorrector creates a new corrector instance with the provided
// parameters. This is the entry point for starting the correction
// workflow.
//
// Parameters:
//   - params: Configuration parameters for the correction process
//
// Returns:
//   - A new Corrector instance initialized with the provided parameters
func NewCorrector(params *Params) *Corrector {
	return &Corrector{
		params: params,
		slices: make([]models.Slice, 0),
	}
}

// Process runs the complete correction pipeline
func (c *Corrector) Process() error {
	c.startTime = time.Now()

	// Step 1: Load and sort input slices
	fmt.Println("Step 1: Loading input slices...")
	if err := c.loadSlices(); err != nil {
		return fmt.Errorf("failed to load slices: %v", err)
	}

	// Step 2: Assemble the intensity volume
	fmt.Println("Step 2: Assembling the intensity volume...")
	if err := c.buildVolume(); err != nil {
		return fmt.Errorf("failed to assemble volume: %v", err)
	}

	// Step 3: Remove Gibbs ringing
	fmt.Println("Step 3: Removing Gibbs ringing...")
	if err := c.correctVolume(); err != nil {
		return fmt.Errorf("failed to correct volume: %v", err)
	}

	// Step 4: Calculate correction metrics
	fmt.Println("Step 4: Calculating correction metrics...")
	c.calculateMetrics()

	// Step 5: Save corrected slices
	fmt.Println("Step 5: Saving corrected slices...")
	if err := c.saveResults(); err != nil {
		return fmt.Errorf("failed to save corrected slices: %v", err)
	}

	return nil
}

// loadSlices loads and sorts the input MRI slices from the configured
// directory. Files are filtered to the supported image extensions and
// sorted by the numeric part of their filenames, which maintains the
// anatomical order of the stack.
//
// Returns:
//   - nil if successful, or an error if file reading or decoding fails
func (c *Corrector) loadSlices() error {
	entries, err := os.ReadDir(c.params.InputDir)
	if err != nil {
		return err
	}

	// Filter for supported image files
	var imageFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
			imageFiles = append(imageFiles, entry.Name())
		}
	}

	if len(imageFiles) == 0 {
		return fmt.Errorf("no slice images found in input directory")
	}

	// Sort files by the number embedded in their names to ensure
	// correct slice order
	sort.Slice(imageFiles, func(i, j int) bool {
		return extractNumber(imageFiles[i]) < extractNumber(imageFiles[j])
	})

	for _, filename := range imageFiles {
		img, err := loadImage(filepath.Join(c.params.InputDir, filename))
		if err != nil {
			return fmt.Errorf("failed to load image %s: %v", filename, err)
		}

		bounds := img.Bounds()
		if len(c.slices) == 0 {
			c.width = bounds.Dx()
			c.height = bounds.Dy()
		} else if bounds.Dx() != c.width || bounds.Dy() != c.height {
			return fmt.Errorf("slice %s has dimensions %dx%d, expected %dx%d",
				filename, bounds.Dx(), bounds.Dy(), c.width, c.height)
		}

		c.slices = append(c.slices, models.Slice{
			Image:    img,
			Index:    len(c.slices),
			Filename: filename,
		})
	}

	if c.params.Verbose {
		fmt.Printf("Loaded %d slices with dimensions %dx%d\n", len(c.slices), c.width, c.height)
	}

	return nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, ch := range base {
		if ch >= '0' && ch <= '9' {
			numStr += string(ch)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}

// buildVolume converts the loaded slices into a single intensity
// volume with the stack along axis 2. Conversion runs in parallel with
// each core owning a contiguous range of slices.
func (c *Corrector) buildVolume() error {
	width, height := c.width, c.height
	depth := len(c.slices)
	data := make([]float64, width*height*depth)

	numCores := c.params.NumCores
	if numCores <= 0 {
		numCores = runtime.NumCPU()
	}

	var wg sync.WaitGroup
	slicesPerCore := (depth + numCores - 1) / numCores
	for core := 0; core < numCores; core++ {
		wg.Add(1)
		go func(coreID int) {
			defer wg.Done()

			startSlice := coreID * slicesPerCore
			endSlice := (coreID + 1) * slicesPerCore
			if endSlice > depth {
				endSlice = depth
			}
			if startSlice >= depth {
				return
			}

			for z := startSlice; z < endSlice; z++ {
				sliceData := imageToFloat(c.slices[z].Image)
				for y := 0; y < height; y++ {
					for x := 0; x < width; x++ {
						data[(y*width+x)*depth+z] = sliceData[y*width+x]
					}
				}
			}
		}(core)
	}
	wg.Wait()

	vol, err := gibbs.NewVolume(data, height, width, depth)
	if err != nil {
		return err
	}
	c.volume = vol

	if c.params.Verbose {
		fmt.Printf("Volume assembled: %dx%dx%d voxels\n", height, width, depth)
	}
	return nil
}

// correctVolume runs the ringing removal over the assembled volume,
// reporting per-slice progress.
func (c *Corrector) correctVolume() error {
	gp := gibbs.DefaultParams()
	gp.SliceAxis = c.params.SliceAxis
	if c.params.NPoints > 0 {
		gp.NPoints = c.params.NPoints
	}
	if c.params.MinShift > 0 {
		gp.MinShift = c.params.MinShift
	}
	if c.params.MaxShift > 0 {
		gp.MaxShift = c.params.MaxShift
	}
	if c.params.ShiftSteps > 0 {
		gp.ShiftSteps = c.params.ShiftSteps
	}
	if c.params.NumCores > 0 {
		gp.NumWorkers = c.params.NumCores
	}
	gp.Progress = func(done, total int) {
		c.reportProgress(done, total, "")
	}

	corrected, err := gibbs.Remove(c.volume, gp)
	if err != nil {
		return err
	}
	c.corrected = corrected
	return nil
}

// calculateMetrics compares the corrected volume against the input.
func (c *Corrector) calculateMetrics() {
	original := c.volume.Data
	corrected := c.corrected.Data
	rows, cols, depth := c.volume.Shape[0], c.volume.Shape[1], c.volume.Shape[2]

	c.metrics.TVBefore = volumeTotalVariation(original, rows, cols, depth)
	c.metrics.TVAfter = volumeTotalVariation(corrected, rows, cols, depth)
	if c.metrics.TVBefore > 0 {
		c.metrics.TVReductionPct = (1 - c.metrics.TVAfter/c.metrics.TVBefore) * 100
	}

	c.metrics.RMSE = calculateRMSE(original, corrected)
	c.metrics.SSIM = calculateSSIM(original, corrected)
	c.metrics.EntropyDiff = calculateEntropyDifference(original, corrected)
	c.metrics.EdgePreserved = calculateEdgePreservation(original, corrected, rows, cols, depth)
}

// volumeTotalVariation sums the absolute differences between adjacent
// in-plane voxels over every slice of the stack.
func volumeTotalVariation(data []float64, rows, cols, depth int) float64 {
	var tv float64
	for z := 0; z < depth; z++ {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				idx := (i*cols+j)*depth + z
				if j+1 < cols {
					tv += math.Abs(data[idx] - data[(i*cols+j+1)*depth+z])
				}
				if i+1 < rows {
					tv += math.Abs(data[idx] - data[((i+1)*cols+j)*depth+z])
				}
			}
		}
	}
	return tv
}

// calculateRMSE computes the root mean square error between the input
// and corrected intensities
func calculateRMSE(original, corrected []float64) float64 {
	n := len(original)
	if n != len(corrected) || n == 0 {
		return 0
	}

	mse := 0.0
	for i := 0; i < n; i++ {
		diff := original[i] - corrected[i]
		mse += diff * diff
	}
	mse /= float64(n)

	return math.Sqrt(mse)
}

// calculateSSIM computes the Structural Similarity Index
func calculateSSIM(original, corrected []float64) float64 {
	// Constants for SSIM calculation
	const L = 1.0 // Dynamic range of the normalized intensities
	const k1 = 0.01
	const k2 = 0.03

	c1 := (k1 * L) * (k1 * L)
	c2 := (k2 * L) * (k2 * L)

	n := len(original)
	if n != len(corrected) || n == 0 {
		return 0
	}

	muX := stat.Mean(original, nil)
	muY := stat.Mean(corrected, nil)

	sigmaX := stat.Variance(original, nil)
	sigmaY := stat.Variance(corrected, nil)
	sigmaXY := stat.Covariance(original, corrected, nil)

	num := (2*muX*muY + c1) * (2*sigmaXY + c2)
	den := (muX*muX + muY*muY + c1) * (sigmaX + sigmaY + c2)

	if den > 0 {
		return num / den
	}
	return 0
}

// calculateEntropyDifference computes the entropy difference between
// the input and corrected intensities
func calculateEntropyDifference(original, corrected []float64) float64 {
	n := len(original)
	if n != len(corrected) || n == 0 {
		return 0
	}

	entropyOrig := calculateEntropy(original)
	entropyCorr := calculateEntropy(corrected)

	return math.Abs(entropyOrig - entropyCorr)
}

// calculateEntropy computes the Shannon entropy of data
func calculateEntropy(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}

	min, max := floats.Min(data), floats.Max(data)

	// If all values are the same, entropy is 0
	if max <= min {
		return 0
	}

	// Create histogram with 256 bins
	const numBins = 256
	hist := make([]float64, numBins)
	binWidth := (max - min) / float64(numBins)

	for _, v := range data {
		binIdx := int((v - min) / binWidth)
		if binIdx >= numBins {
			binIdx = numBins - 1
		} else if binIdx < 0 {
			binIdx = 0
		}
		hist[binIdx]++
	}

	entropy := 0.0
	for _, count := range hist {
		if count > 0 {
			p := count / float64(n)
			entropy -= p * math.Log2(p)
		}
	}

	return entropy
}

// calculateEdgePreservation computes the correlation between the
// in-plane gradient magnitudes of the input and corrected volumes.
// True edges dominate both maps while ringing contributes scattered
// gradient energy, so a correction that removes oscillations without
// blurring boundaries scores close to 1.
func calculateEdgePreservation(original, corrected []float64, rows, cols, depth int) float64 {
	gradOrig := gradientMagnitudes(original, rows, cols, depth)
	gradCorr := gradientMagnitudes(corrected, rows, cols, depth)

	return stat.Correlation(gradOrig, gradCorr, nil)
}

// gradientMagnitudes computes the per-voxel in-plane gradient magnitude
// with forward differences.
func gradientMagnitudes(data []float64, rows, cols, depth int) []float64 {
	out := make([]float64, len(data))
	for z := 0; z < depth; z++ {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				idx := (i*cols+j)*depth + z
				var gx, gy float64
				if j+1 < cols {
					gx = data[(i*cols+j+1)*depth+z] - data[idx]
				}
				if i+1 < rows {
					gy = data[((i+1)*cols+j)*depth+z] - data[idx]
				}
				out[idx] = math.Hypot(gx, gy)
			}
		}
	}
	return out
}

// saveResults writes the corrected slices, and optionally the
// per-slice difference maps, to the configured directories.
func (c *Corrector) saveResults() error {
	if err := os.MkdirAll(c.params.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	diffDir := c.params.DiffMapsDir
	if c.params.SaveDiffMaps {
		if diffDir == "" {
			diffDir = filepath.Join(c.params.OutputDir, "diff_maps")
		}
		if err := os.MkdirAll(diffDir, 0755); err != nil {
			return fmt.Errorf("failed to create difference map directory: %v", err)
		}
	}

	rows, cols, depth := c.volume.Shape[0], c.volume.Shape[1], c.volume.Shape[2]

	// Difference maps share one normalization so slices stay
	// comparable to each other.
	var diffData []float64
	var maxDiff float64
	if c.params.SaveDiffMaps {
		diffData = make([]float64, len(c.corrected.Data))
		for i := range diffData {
			diffData[i] = math.Abs(c.corrected.Data[i] - c.volume.Data[i])
		}
		maxDiff = floats.Max(diffData)
	}

	ext := "png"
	if isJPEG(c.params.OutputFormat) {
		ext = "jpg"
	}

	slice := make([]float64, rows*cols)
	for z := 0; z < depth; z++ {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				slice[i*cols+j] = c.corrected.Data[(i*cols+j)*depth+z]
			}
		}

		// Corrected outputs keep the source filename so slices stay
		// traceable to their inputs
		base := strings.TrimSuffix(c.slices[z].Filename, filepath.Ext(c.slices[z].Filename))
		name := fmt.Sprintf("%s.%s", base, ext)
		img := floatToImage(slice, cols, rows)
		if err := saveImage(filepath.Join(c.params.OutputDir, name), img, c.params.OutputFormat); err != nil {
			return fmt.Errorf("failed to save slice %d: %v", z, err)
		}

		if c.params.SaveDiffMaps {
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					d := diffData[(i*cols+j)*depth+z]
					if maxDiff > 0 {
						d /= maxDiff
					}
					slice[i*cols+j] = d
				}
			}
			diffImg := floatToImage(slice, cols, rows)
			diffName := fmt.Sprintf("diff_%s.%s", base, ext)
			if err := saveImage(filepath.Join(diffDir, diffName), diffImg, c.params.OutputFormat); err != nil {
				return fmt.Errorf("failed to save difference map %d: %v", z, err)
			}
		}
	}

	if c.params.Verbose {
		fmt.Printf("Saved %d corrected slices to %s\n", depth, c.params.OutputDir)
	}
	return nil
}

// GetMetrics returns the correction quality metrics
func (c *Corrector) GetMetrics() CorrectionMetrics {
	return c.metrics
}

// GetVolumeData returns the corrected volume data and its dimensions
// (width, height, depth). This method is used to access the volume for
// visualization. Samples are laid out with the slice index fastest:
// data[(y*width+x)*depth+z].
func (c *Corrector) GetVolumeData() ([]float64, int, int, int) {
	if c.corrected == nil {
		return nil, 0, 0, 0
	}
	return c.corrected.Data, c.width, c.height, len(c.slices)
}

// reportProgress prints a progress bar with timing estimates for the
// slice correction step.
func (c *Corrector) reportProgress(completed, total int, message string) {
	if message != "" && total == 0 {
		// This is just an informational message, not a progress update
		fmt.Println(message)
		return
	}
	if total <= 0 {
		return
	}

	percentage := float64(completed) / float64(total) * 100

	// Create a visual progress bar
	width := 40 // Width of the progress bar
	numBars := int(percentage / 100 * float64(width))

	progressBar := "["
	for i := 0; i < width; i++ {
		if i < numBars {
			progressBar += "█" // Solid block for completed portions
		} else if i == numBars {
			progressBar += "▓" // Lighter block for current position
		} else {
			progressBar += "░" // Light block for remaining portions
		}
	}
	progressBar += "]"

	// Calculate elapsed time and estimated time remaining
	elapsedStr := ""
	remainingStr := ""
	if completed > 0 && !c.startTime.IsZero() {
		elapsed := time.Since(c.startTime)
		elapsedStr = fmt.Sprintf("%.1fs", elapsed.Seconds())

		if completed < total {
			timePerUnit := elapsed.Seconds() / float64(completed)
			remaining := timePerUnit * float64(total-completed)

			if remaining < 60 {
				remainingStr = fmt.Sprintf("%.1fs", remaining)
			} else if remaining < 3600 {
				remainingStr = fmt.Sprintf("%.1fm", remaining/60)
			} else {
				remainingStr = fmt.Sprintf("%.1fh", remaining/3600)
			}
		} else {
			remainingStr = "0s"
		}
	}

	statusInfo := ""
	if message != "" {
		statusInfo = " | " + message
	}

	if elapsedStr != "" && remainingStr != "" {
		fmt.Printf("\r%s %.1f%% (%d/%d) [%s elapsed | %s remaining%s]",
			progressBar, percentage, completed, total, elapsedStr, remainingStr, statusInfo)
	} else {
		fmt.Printf("\r%s %.1f%% (%d/%d)%s", progressBar, percentage, completed, total, statusInfo)
	}

	if completed >= total {
		fmt.Println()
	}
}

// Helper functions

// loadImage loads an image from a file using the registered decoders
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

// imageToFloat converts a single image to a float array
func imageToFloat(img image.Image) []float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	result := make([]float64, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// Convert 16-bit color to float64 (0-1 range)
			result[y*width+x] = float64(r) / 65535.0
		}
	}

	return result
}

// floatToImage converts a float array back to a 16-bit grayscale image
func floatToImage(data []float64, width, height int) image.Image {
	img := image.NewGray16(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if idx < len(data) {
				// Convert 0-1 range to 16-bit grayscale, clamping
				// values pushed out of range by the correction
				value := uint16(math.Max(0, math.Min(65535, data[idx]*65535.0)))
				img.Set(x, y, color.Gray16{Y: value})
			}
		}
	}

	return img
}

// isJPEG reports whether the configured output format selects JPEG
func isJPEG(format string) bool {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return true
	}
	return false
}

// saveImage writes an image in the configured format, defaulting to PNG
func saveImage(path string, img image.Image, format string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %v", err)
	}
	defer file.Close()

	if isJPEG(format) {
		if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 90}); err != nil {
			return fmt.Errorf("failed to encode image: %v", err)
		}
		return nil
	}

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode image: %v", err)
	}
	return nil
}
