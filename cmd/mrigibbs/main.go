package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"mrigibbs/pkg/config"
	"mrigibbs/pkg/correction"
	"mrigibbs/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing 2D MRI slice images")
	outputDir := flag.String("output", "corrected_slices", "Directory for corrected slices")
	configPath := flag.String("config", "", "Path to YAML configuration file (optional)")
	initConfig := flag.String("init-config", "", "Write a default configuration file to the given path and exit")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: from config, all available)")
	sliceAxis := flag.Int("axis", 2, "Volume axis treated as the slice axis (0, 1 or 2)")
	nPoints := flag.Int("npoints", 0, "Neighborhood size for total variation scoring (default: from config)")
	minShift := flag.Float64("min-shift", 0, "Smallest trial subvoxel shift (default: from config)")
	maxShift := flag.Float64("max-shift", 0, "Largest trial subvoxel shift (default: from config)")
	shiftSteps := flag.Int("shift-steps", 0, "Number of trial shifts per direction (default: from config)")
	saveDiffMaps := flag.Bool("save-diff", false, "Save per-slice difference maps")
	diffMapsDir := flag.String("diff-dir", "", "Directory for difference maps (default: <output>/diff_maps)")
	outputFormat := flag.String("format", "", "Output image format: png or jpeg (default: from config)")
	extractSlices := flag.Bool("extract-slices", false, "Extract and save corrected views along all axes")
	slicesDir := flag.String("slices-dir", "corrected_views", "Directory to save extracted views")
	flag.Parse()

	// Write a default configuration and exit if requested
	if *initConfig != "" {
		if err := config.CreateDefaultConfigFile(*initConfig); err != nil {
			log.Fatalf("Failed to write default configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *initConfig)
		return
	}

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	// Load the configuration file, then let explicitly set flags win
	// over its values
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["cores"] {
		cfg.Processing.NumCores = *numCores
	}
	if set["axis"] {
		cfg.Processing.SliceAxis = *sliceAxis
	}
	if set["npoints"] {
		cfg.Processing.NPoints = *nPoints
	}
	if set["min-shift"] {
		cfg.Processing.MinShift = *minShift
	}
	if set["max-shift"] {
		cfg.Processing.MaxShift = *maxShift
	}
	if set["shift-steps"] {
		cfg.Processing.ShiftSteps = *shiftSteps
	}
	if set["save-diff"] {
		cfg.Output.SaveDiffMaps = *saveDiffMaps
	}
	if set["diff-dir"] {
		cfg.Output.DiffMapsDir = *diffMapsDir
	}
	if set["format"] {
		cfg.Output.Format = *outputFormat
	}

	fmt.Println("================================")
	fmt.Println("GIBBS RINGING REMOVAL FOR MRI SLICES BY LOCAL SUBVOXEL SHIFTS")
	fmt.Println("Based on the method by Kellner et al.")
	fmt.Println("================================")

	// Initialize correction parameters
	params := &correction.Params{
		InputDir:     *inputDir,
		OutputDir:    *outputDir,
		NumCores:     cfg.Processing.NumCores,
		SliceAxis:    cfg.Processing.SliceAxis,
		NPoints:      cfg.Processing.NPoints,
		MinShift:     cfg.Processing.MinShift,
		MaxShift:     cfg.Processing.MaxShift,
		ShiftSteps:   cfg.Processing.ShiftSteps,
		SaveDiffMaps: cfg.Output.SaveDiffMaps,
		DiffMapsDir:  cfg.Output.DiffMapsDir,
		OutputFormat: cfg.Output.Format,
		Verbose:      cfg.Output.Verbose,
	}

	// Create corrector instance
	corrector := correction.NewCorrector(params)

	// Run the correction pipeline
	fmt.Println("Starting Gibbs ringing removal with parallel processing...")
	startTime := time.Now()
	if err := corrector.Process(); err != nil {
		log.Fatalf("Correction failed: %v", err)
	}
	processingTime := time.Since(startTime)

	// Get and display the correction metrics
	metrics := corrector.GetMetrics()
	fmt.Printf("\nCorrection completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Corrected slices saved to: %s\n\n", *outputDir)

	fmt.Printf("Correction Metrics:\n")
	fmt.Printf("===================\n")
	fmt.Printf("Total Variation before: %.4f\n", metrics.TVBefore)
	fmt.Printf("Total Variation after: %.4f\n", metrics.TVAfter)
	fmt.Printf("Total Variation reduction: %.2f%%\n", metrics.TVReductionPct)
	fmt.Printf("Root Mean Square Error (RMSE): %.6f\n", metrics.RMSE)
	fmt.Printf("Structural Similarity Index (SSIM): %.3f\n", metrics.SSIM)
	fmt.Printf("Entropy Difference: %.3f\n", metrics.EntropyDiff)
	fmt.Printf("Edge Preservation Ratio: %.3f\n", metrics.EdgePreserved)

	coresUsed := params.NumCores
	if coresUsed <= 0 {
		coresUsed = runtime.NumCPU()
	}
	fmt.Println("\nParallel processing performance:")
	fmt.Printf("- Used %d cores for processing\n", coresUsed)
	fmt.Printf("- Total processing time: %.2f seconds\n", processingTime.Seconds())

	// Extract and save multiplanar views if requested
	if *extractSlices {
		fmt.Println("\nExtracting corrected views along all axes...")

		// Get the corrected volume data
		volumeData, width, height, depth := corrector.GetVolumeData()

		// Create viewer
		viewer := visualization.NewViewer(volumeData, width, height, depth)

		// Extract and save slices along each axis
		for _, axis := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(*slicesDir, axis)
			fmt.Printf("Saving %s-axis views to: %s\n", axis, axisDir)

			if err := viewer.SaveSliceSequence(axis, axisDir); err != nil {
				log.Printf("Warning: Failed to save %s-axis views: %v", axis, err)
			}
		}

		fmt.Println("View extraction completed!")
	}

	if params.SaveDiffMaps {
		diffDir := params.DiffMapsDir
		if diffDir == "" {
			diffDir = filepath.Join(*outputDir, "diff_maps")
		}
		fmt.Println("\nDifference maps saved to:")
		fmt.Printf("%s\n", diffDir)
	}
}
