package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emtools/motionfit/internal/config"
	"github.com/emtools/motionfit/internal/motion"
	"github.com/emtools/motionfit/internal/search"
)

var (
	estConfigPath string
	estParams2    bool
	estParams3    bool
	estKCut       float64
	estKCutA      float64
	estKEval      float64
	estKEvalA     float64
	estMinP       int
	estSVel       float64
	estSDiv       float64
	estSAcc       float64
	estInStep     float64
	estConv       float64
	estIters      int
	estRange      int
	estSeed       int64
	estMethod     string
	estPop        int
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Validate an estimation run and select its micrographs",
	Long: `Validates the hyperparameter-estimation configuration and performs the
deterministic micrograph sampling: the manifest is shuffled with the
configured seed and micrographs are accepted greedily until the particle
floor is met. The selection and the resolved settings are reported.

The estimation itself runs embedded in the alignment pipeline, which wires
its trajectory solver into the search API; this command covers the
validation and sampling surface.`,
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().StringVar(&estConfigPath, "config", "", "Run configuration with the micrograph manifest (required)")
	estimateCmd.Flags().BoolVar(&estParams2, "params2", false, "Estimate 2 parameters (s_vel, s_div)")
	estimateCmd.Flags().BoolVar(&estParams3, "params3", false, "Estimate 3 parameters (s_vel, s_div, s_acc)")
	estimateCmd.Flags().Float64Var(&estKCut, "k-cut", -1, "Freq. cutoff for parameter estimation [pixels]")
	estimateCmd.Flags().Float64Var(&estKCutA, "k-cut-a", -1, "Freq. cutoff for parameter estimation [Angstrom]")
	estimateCmd.Flags().Float64Var(&estKEval, "k-eval", -1, "Threshold freq. for parameter evaluation [pixels]")
	estimateCmd.Flags().Float64Var(&estKEvalA, "k-eval-a", -1, "Threshold freq. for parameter evaluation [Angstrom]")
	estimateCmd.Flags().IntVar(&estMinP, "min-p", 1000, "Minimum number of particles on which to estimate")
	estimateCmd.Flags().Float64Var(&estSVel, "s-vel", 0.6, "Initial s_vel")
	estimateCmd.Flags().Float64Var(&estSDiv, "s-div", 3000, "Initial s_div")
	estimateCmd.Flags().Float64Var(&estSAcc, "s-acc", 5, "Initial s_acc")
	estimateCmd.Flags().Float64Var(&estInStep, "in-step", 100, "Initial step size in s_div")
	estimateCmd.Flags().Float64Var(&estConv, "conv", 10, "Abort when simplex diameter falls below this")
	estimateCmd.Flags().IntVar(&estIters, "par-iters", 50, "Max. number of iterations")
	estimateCmd.Flags().IntVar(&estRange, "mot-range", 50, "Limit allowed motion range [px]")
	estimateCmd.Flags().Int64Var(&estSeed, "seed", 23, "Random seed for micrograph selection")
	estimateCmd.Flags().StringVar(&estMethod, "optimizer", search.MethodNelderMead, "Optimization method (nelder-mead, mayfly)")
	estimateCmd.Flags().IntVar(&estPop, "pop", 30, "Population size for the mayfly method")

	estimateCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.Load(estConfigPath)
	if err != nil {
		return err
	}

	cfg := estimationConfig(cmd, fileCfg.Estimation)
	cfg.Threads = threads

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid estimation configuration: %w", err)
	}

	mgs := make([]motion.Micrograph, len(fileCfg.Micrographs))
	for i, mg := range fileCfg.Micrographs {
		mgs[i] = motion.Micrograph{Index: i, Name: mg.Name, Particles: mg.Particles}
	}

	selected, total := search.SampleMicrographs(mgs, cfg.MinParticles, cfg.Seed)

	fmt.Printf("micrographs randomly selected for parameter optimization (seed %d):\n", cfg.Seed)
	for _, mg := range selected {
		fmt.Printf("  %4d: %s (%d particles)\n", mg.Index, mg.Name, mg.Particles)
	}
	fmt.Printf("\n%d particles found in %d micrographs\n", total, len(selected))

	if total < cfg.MinParticles {
		fmt.Printf("warning: this dataset does not contain %d particles in micrographs with at least 2 particles\n",
			cfg.MinParticles)
	}

	return nil
}

// estimationConfig layers the defaults, the config file and any explicitly
// set flags, in that order.
func estimationConfig(cmd *cobra.Command, file *config.Estimation) search.Config {
	cfg := search.DefaultConfig()

	if file != nil {
		cfg.Estim2 = file.Params2
		cfg.Estim3 = file.Params3
		if file.KCut != 0 {
			cfg.KCutoff = file.KCut
		}
		if file.KCutAngst != 0 {
			cfg.KCutoffAngst = file.KCutAngst
		}
		if file.KEval != 0 {
			cfg.KEval = file.KEval
		}
		if file.KEvalA != 0 {
			cfg.KEvalAngst = file.KEvalA
		}
		if file.MinParticles != 0 {
			cfg.MinParticles = file.MinParticles
		}
		if file.SVel0 != 0 {
			cfg.SigVel = file.SVel0
		}
		if file.SDiv0 != 0 {
			cfg.SigDiv = file.SDiv0
		}
		if file.SAcc0 != 0 {
			cfg.SigAcc = file.SAcc0
		}
		if file.InStep != 0 {
			cfg.InitialStep = file.InStep
		}
		if file.Conv != 0 {
			cfg.Conv = file.Conv
		}
		if file.MaxIters != 0 {
			cfg.MaxIters = file.MaxIters
		}
		if file.MotRange != 0 {
			cfg.MaxRange = file.MotRange
		}
		if file.Seed != 0 {
			cfg.Seed = file.Seed
		}
		if file.Optimizer != "" {
			cfg.Method = file.Optimizer
		}
		if file.PopSize != 0 {
			cfg.PopSize = file.PopSize
		}
	}

	flags := cmd.Flags()
	if flags.Changed("params2") {
		cfg.Estim2 = estParams2
	}
	if flags.Changed("params3") {
		cfg.Estim3 = estParams3
	}
	if flags.Changed("k-cut") {
		cfg.KCutoff = estKCut
	}
	if flags.Changed("k-cut-a") {
		cfg.KCutoffAngst = estKCutA
	}
	if flags.Changed("k-eval") {
		cfg.KEval = estKEval
	}
	if flags.Changed("k-eval-a") {
		cfg.KEvalAngst = estKEvalA
	}
	if flags.Changed("min-p") {
		cfg.MinParticles = estMinP
	}
	if flags.Changed("s-vel") {
		cfg.SigVel = estSVel
	}
	if flags.Changed("s-div") {
		cfg.SigDiv = estSDiv
	}
	if flags.Changed("s-acc") {
		cfg.SigAcc = estSAcc
	}
	if flags.Changed("in-step") {
		cfg.InitialStep = estInStep
	}
	if flags.Changed("conv") {
		cfg.Conv = estConv
	}
	if flags.Changed("par-iters") {
		cfg.MaxIters = estIters
	}
	if flags.Changed("mot-range") {
		cfg.MaxRange = estRange
	}
	if flags.Changed("seed") {
		cfg.Seed = estSeed
	}
	if flags.Changed("optimizer") {
		cfg.Method = estMethod
	}
	if flags.Changed("pop") {
		cfg.PopSize = estPop
	}

	return cfg
}
