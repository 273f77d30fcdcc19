package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	logLevel string
	threads  int
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "motionfit",
	Short: "Motion hyperparameter and B-factor estimation for cryo-EM movies",
	Long: `Motionfit estimates the per-dataset smoothness hyperparameters of
particle motion trajectories and per-particle amplitude decay (B-factor
and scale) from observed vs. predicted Fourier-space signal.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVar(&threads, "threads", 1, "Number of worker threads")
}
