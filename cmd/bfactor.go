package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/emtools/motionfit/internal/bfactor"
	"github.com/emtools/motionfit/internal/store"
)

var (
	bfacProfiles      string
	bfacOut           string
	bfacRunID         string
	bfacPerMicrograph bool
	bfacMinB          float64
	bfacMaxB          float64
	bfacMinScale      float64
	bfacSteps         int
	bfacDepth         int
)

var bfactorCmd = &cobra.Command{
	Use:   "bfactor",
	Short: "Fit B-factors and scale factors from radial profile files",
	Long: `Fits an exponential amplitude-decay model (B-factor and scale) to the
radially averaged signal profiles produced by the preprocessing pipeline,
one JSON profile file per micrograph. Results are persisted as one fit
table per micrograph under a run directory.`,
	RunE: runBFactor,
}

func init() {
	bfactorCmd.Flags().StringVar(&bfacProfiles, "profiles", "", "Directory of per-micrograph radial profile files (required)")
	bfactorCmd.Flags().StringVar(&bfacOut, "out", "bfactors", "Output directory for fit tables")
	bfactorCmd.Flags().StringVar(&bfacRunID, "run-id", "", "Run ID to write under (default: new random ID)")
	bfactorCmd.Flags().BoolVar(&bfacPerMicrograph, "per-micrograph", false, "Estimate B-factors per micrograph instead of per particle")
	bfactorCmd.Flags().Float64Var(&bfacMinB, "min-b", -30, "Minimal allowed B-factor [Angstrom^2]")
	bfactorCmd.Flags().Float64Var(&bfacMaxB, "max-b", 300, "Maximal allowed B-factor [Angstrom^2]")
	bfactorCmd.Flags().Float64Var(&bfacMinScale, "min-scale", 0.2, "Minimal allowed scale factor (essential for outlier rejection)")
	bfactorCmd.Flags().IntVar(&bfacSteps, "steps", 20, "Grid candidates per refinement level")
	bfactorCmd.Flags().IntVar(&bfacDepth, "depth", 5, "Number of interval refinements")

	bfactorCmd.MarkFlagRequired("profiles")
	rootCmd.AddCommand(bfactorCmd)
}

func runBFactor(cmd *cobra.Command, args []string) error {
	paths, err := filepath.Glob(filepath.Join(bfacProfiles, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to scan profile directory: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no profile files found in %s", bfacProfiles)
	}

	st, err := store.NewFSStore(bfacOut)
	if err != nil {
		return err
	}

	runID := bfacRunID
	if runID == "" {
		runID = store.NewRunID()
	}

	cfg := bfactor.Config{
		PerMicrograph: bfacPerMicrograph,
		MinB:          bfacMinB,
		MaxB:          bfacMaxB,
		MinScale:      bfacMinScale,
		Steps:         bfacSteps,
		Depth:         bfacDepth,
		Threads:       threads,
	}

	slog.Info("fitting B-factors",
		"run", runID, "micrographs", len(paths),
		"per_micrograph", cfg.PerMicrograph, "threads", cfg.Threads)

	start := time.Now()
	fitted := 0
	particles := 0

	for _, path := range paths {
		mp, err := bfactor.LoadProfiles(path)
		if err != nil {
			slog.Warn("skipping unreadable profile file", "path", path, "error", err)
			continue
		}

		fits := bfactor.FitProfiles(mp, cfg)

		table := &store.FitTable{
			RunID:         runID,
			Micrograph:    mp.Micrograph,
			PixelSize:     mp.PixelSize,
			BoxSize:       mp.BoxSize,
			PerMicrograph: cfg.PerMicrograph,
			CreatedAt:     time.Now().UTC(),
			Fits:          fits,
		}

		if err := st.SaveFitTable(runID, table); err != nil {
			return fmt.Errorf("saving fit table for %s: %w", mp.Micrograph, err)
		}

		fitted++
		particles += len(fits)
	}

	if fitted == 0 {
		return fmt.Errorf("no profile files could be processed")
	}

	elapsed := time.Since(start)

	slog.Info("B-factor fitting complete",
		"run", runID, "micrographs", fitted, "particles", particles, "elapsed", elapsed)

	fmt.Printf("Wrote %d fit tables (%d particles) to %s, run %s\n",
		fitted, particles, bfacOut, runID)

	return nil
}
