package search

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/emtools/motionfit/internal/align"
	"github.com/emtools/motionfit/internal/fourier"
	"github.com/emtools/motionfit/internal/motion"
	"github.com/emtools/motionfit/internal/opt"
)

type state int

const (
	stateConfigured state = iota
	statePrepared
	stateOptimized
)

// Deps are the external collaborators the coordinator drives.
type Deps struct {
	Solver      motion.Solver
	Reference   motion.Reference
	ObsModel    motion.ObservationModel
	Micrographs []motion.Micrograph
	BoxSize     int
}

// Result is the estimated hyperparameter set. SigAcc is -1 when the fit
// disabled the acceleration prior.
type Result struct {
	SigVel float64
	SigDiv float64
	SigAcc float64
	Score  float64
}

// Coordinator owns one estimation run: validated configuration, the
// sampled micrograph subset, the alignment-data cache and the optimizer
// drive. States advance Configured -> Prepared -> Optimized; evaluation
// before preparation is an error.
type Coordinator struct {
	cfg  Config
	deps Deps

	s    int
	fc   int
	kOut int

	kCutoff      float64 // pixels
	kCutoffAngst float64
	kEval        float64 // pixels
	kEvalAngst   float64

	sampled        []motion.Micrograph
	totalParticles int

	set   *align.Set
	state state
}

// NewCoordinator validates the configuration, resolves frequency units,
// and performs the deterministic micrograph sampling. Conflicting unit or
// mode settings fail here, before any micrograph data is touched.
func NewCoordinator(cfg Config, deps Deps) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if deps.Solver == nil || !deps.Solver.Ready() {
		return nil, ErrSolverNotReady
	}

	if cfg.Threads < 1 {
		cfg.Threads = 1
	}

	c := &Coordinator{
		cfg:  cfg,
		deps: deps,
		s:    deps.BoxSize,
		fc:   deps.Solver.FrameCount(),
		kOut: deps.Reference.KOut(),

		kCutoff:      cfg.KCutoff,
		kCutoffAngst: cfg.KCutoffAngst,
		kEval:        cfg.KEval,
		kEvalAngst:   cfg.KEvalAngst,
	}

	obs := deps.ObsModel

	if c.kCutoffAngst > 0 && c.kCutoff <= 0 {
		c.kCutoff = obs.AngToPix(c.kCutoffAngst, c.s)
	} else if c.kCutoff > 0 {
		c.kCutoffAngst = obs.PixToAng(c.kCutoff, c.s)
	}

	switch {
	case c.kEvalAngst > 0 && c.kEval <= 0:
		c.kEval = obs.AngToPix(c.kEvalAngst, c.s)
	case c.kEval > 0:
		c.kEvalAngst = obs.PixToAng(c.kEval, c.s)
	default:
		// unset: evaluate from the alignment cutoff upward
		c.kEval = c.kCutoff
		c.kEvalAngst = c.kCutoffAngst
	}

	slog.Info("frequency bands resolved",
		"k_cutoff_px", c.kCutoff, "k_cutoff_angst", c.kCutoffAngst,
		"k_eval_px", c.kEval, "k_eval_angst", c.kEvalAngst,
		"k_out_px", c.kOut)

	c.sampled, c.totalParticles = SampleMicrographs(deps.Micrographs, cfg.MinParticles, cfg.Seed)

	for _, mg := range c.sampled {
		slog.Info("micrograph selected for parameter optimization",
			"index", mg.Index, "name", mg.Name, "particles", mg.Particles)
	}
	slog.Info("micrograph sample complete",
		"micrographs", len(c.sampled), "particles", c.totalParticles)

	if c.totalParticles < cfg.MinParticles {
		slog.Warn("dataset does not contain enough particles in micrographs with at least 2 particles",
			"found", c.totalParticles, "wanted", cfg.MinParticles)
	}

	return c, nil
}

// Sampled returns the selected micrographs in sampling order.
func (c *Coordinator) Sampled() []motion.Micrograph { return c.sampled }

// SampledParticles returns the particle total of the sample.
func (c *Coordinator) SampledParticles() int { return c.totalParticles }

// Frequencies returns the resolved alignment and evaluation frequencies,
// each in pixels and Angstrom.
func (c *Coordinator) Frequencies() (kCutPx, kCutAngst, kEvalPx, kEvalAngst float64) {
	return c.kCutoff, c.kCutoffAngst, c.kEval, c.kEvalAngst
}

// Prepare populates the alignment-data cache: band-limited alignment
// weights, cross-correlation maps (cropped to the motion range), reduced
// observed and predicted spectra, and one baseline trajectory fit per
// micrograph to seed later re-optimizations. A micrograph that fails to
// load is logged and skipped; the run continues on the rest.
func (c *Coordinator) Prepare() error {
	if c.state >= statePrepared {
		return nil
	}

	slog.Info("preparing alignment data", "micrographs", len(c.sampled))

	solver := c.deps.Solver

	dmg := solver.DamageWeights()
	alignWeights := make([]*fourier.Weights, c.fc)
	for f := 0; f < c.fc; f++ {
		alignWeights[f] = bandEnvelope(dmg[f], c.kCutoff-1, c.kCutoff+1)
	}

	counts := make([]int, len(c.sampled))
	for g, mg := range c.sampled {
		counts[g] = mg.Particles
	}

	c.set = align.NewSet(counts, c.fc, c.s, int(c.kEval)+2, c.kOut)

	for f := 0; f < c.fc; f++ {
		c.set.Damage[f] = c.set.AccelerateWeights(dmg[f])
	}

	nVel := solver.NormalizeSigVel(c.cfg.SigVel)
	nDiv := solver.NormalizeSigDiv(c.cfg.SigDiv)
	nAcc := solver.NormalizeSigAcc(c.cfg.SigAcc)

	pctot := 0

	for g, mg := range c.sampled {
		data, err := solver.Prep(mg, alignWeights)
		if err != nil {
			slog.Warn("unable to load micrograph, skipping",
				"index", mg.Index, "name", mg.Name, "error", err)
			continue
		}

		pc := mg.Particles
		pctot += pc

		slog.Info("micrograph prepared",
			"micrograph", g+1, "of", len(c.sampled),
			"particles", pc, "total", pctot)

		copy(c.set.Positions[g], data.Positions)
		copy(c.set.GlobComp[g], data.GlobComp)
		for p := 0; p < pc; p++ {
			copy(c.set.InitialTracks[g][p], data.InitialTracks[p])
		}

		// Each worker writes disjoint particle slots of the cache.
		threads := c.cfg.Threads
		if threads > pc {
			threads = pc
		}
		errs := make([]error, threads)

		var wg sync.WaitGroup
		for t := 0; t < threads; t++ {
			wg.Add(1)
			go func(t int) {
				defer wg.Done()
				for p := t; p < pc; p += threads {
					for f := 0; f < c.fc; f++ {
						c.set.CopyCC(g, p, f, data.CC[p][f], c.cfg.MaxRange)
						c.set.Obs[g][p][f] = c.set.Accelerate(data.Obs[p][f])
					}

					pred, err := c.deps.Reference.Predict(mg, p)
					if err != nil {
						errs[t] = fmt.Errorf("predicting particle %d: %w", p, err)
						return
					}
					c.set.Pred[g][p] = c.set.Accelerate(pred)
				}
			}(t)
		}
		wg.Wait()

		skip := false
		for _, err := range errs {
			if err != nil {
				slog.Warn("unable to prepare micrograph, skipping",
					"index", mg.Index, "name", mg.Name, "error", err)
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		tracks := solver.Optimize(
			c.set.CCs[g], c.set.InitialTracks[g],
			nVel, nAcc, nDiv,
			c.set.Positions[g], c.set.GlobComp[g])

		for p := 0; p < pc; p++ {
			copy(c.set.InitialTracks[g][p], tracks[p])
		}

		c.set.Populated[g] = true
	}

	// The staging movie data can be tens of gigabytes; hand freed pages
	// back to the OS before the long optimization phase.
	debug.FreeOSMemory()

	c.state = statePrepared

	slog.Info("alignment data prepared")

	return nil
}

// EvaluateParams scores a batch of hyperparameter candidates. For every
// populated micrograph and every candidate, the trajectory solver re-fits
// against the cached cross-correlation data and the resulting tracks are
// scored against the cached spectra. The per-candidate score is
// num/sqrt(w1*w2), 0 when the weight product is not positive.
func (c *Coordinator) EvaluateParams(sigVals []Sigma) ([]float64, error) {
	if c.state < statePrepared {
		return nil, ErrNotPrepared
	}

	solver := c.deps.Solver

	n := len(sigVals)
	svPx := make([]float64, n)
	sdPx := make([]float64, n)
	saPx := make([]float64, n)
	for i, s := range sigVals {
		svPx[i] = solver.NormalizeSigVel(s.Vel)
		sdPx[i] = solver.NormalizeSigDiv(s.Div)
		saPx[i] = solver.NormalizeSigAcc(s.Acc)
	}

	acc := make([]align.Score, n)

	for g := range c.sampled {
		if !c.set.Populated[g] {
			continue
		}

		for i := 0; i < n; i++ {
			tracks := solver.Optimize(
				c.set.CCs[g], c.set.InitialTracks[g],
				svPx[i], saPx[i], sdPx[i],
				c.set.Positions[g], c.set.GlobComp[g])

			acc[i].Add(c.set.UpdateTSC(tracks, g, c.cfg.Threads))
		}
	}

	scores := make([]float64, n)
	for i := range acc {
		scores[i] = acc[i].Value()
	}

	return scores, nil
}

// Run drives the configured 2- or 3-parameter search and reports the
// rounded optimum. Returns nil when no estimation mode is requested.
func (c *Coordinator) Run() (*Result, error) {
	if !c.cfg.Estim2 && !c.cfg.Estim3 {
		return nil, nil
	}

	if c.state < statePrepared {
		if err := c.Prepare(); err != nil {
			return nil, err
		}
	}

	var (
		vel, div, accSig float64
		score            float64
	)

	if c.cfg.Estim2 {
		problem := &twoParamProblem{coord: c, sigAcc: c.cfg.SigAcc}
		initial := motionToProblem2(c.cfg.SigVel, c.cfg.SigDiv)

		res, err := c.newOptimizer(initial).Minimize(problem.cost, initial)
		if err != nil {
			return nil, err
		}

		vel, div = problemToMotion2(res.X)
		accSig = c.cfg.SigAcc
		score = -res.Cost
	} else {
		problem := &threeParamProblem{coord: c}
		initial := motionToProblem3(Sigma{Vel: c.cfg.SigVel, Div: c.cfg.SigDiv, Acc: c.cfg.SigAcc})

		res, err := c.newOptimizer(initial).Minimize(problem.cost, initial)
		if err != nil {
			return nil, err
		}

		s := problemToMotion3(res.X)
		vel, div, accSig = s.Vel, s.Div, s.Acc
		score = -res.Cost
	}

	// Round to conv/2, the resolution floor of the simplex, in problem
	// units, then convert back to physical sigmas.
	out := Result{
		SigVel: roundHalfConv(vel*velScale, c.cfg.Conv) / velScale,
		SigDiv: roundHalfConv(div*divScale, c.cfg.Conv) / divScale,
		SigAcc: roundHalfConv(accSig*accScale, c.cfg.Conv) / accScale,
		Score:  score,
	}

	if c.cfg.Estim2 {
		out.SigAcc = c.cfg.SigAcc
	}
	if accSig <= 0 {
		out.SigAcc = -1
	}

	c.state = stateOptimized

	slog.Info("parameter estimation complete",
		"s_vel", out.SigVel, "s_div", out.SigDiv, "s_acc", out.SigAcc, "score", out.Score)

	fmt.Printf("\ngood parameters: --s_vel %g --s_div %g --s_acc %g\n\n",
		out.SigVel, out.SigDiv, out.SigAcc)

	return &out, nil
}

func (c *Coordinator) newOptimizer(initial []float64) opt.Optimizer {
	switch c.cfg.Method {
	case MethodMayfly:
		upper := 0.0
		for _, v := range initial {
			if v > upper {
				upper = v
			}
		}
		upper *= 4
		if upper <= 0 {
			upper = 1
		}
		return opt.NewMayfly(c.cfg.MaxIters, c.cfg.PopSize, c.cfg.Seed, 0, upper)
	default:
		return opt.NewNelderMead(c.cfg.InitialStep, c.cfg.Conv, c.cfg.MaxIters)
	}
}

func (c *Coordinator) logEvaluation(s Sigma, score float64) {
	slog.Debug("hyperparameters evaluated",
		"s_vel", s.Vel, "s_div", s.Div, "s_acc", s.Acc, "score", score)
}

// roundHalfConv rounds a problem-space value to the nearest half-multiple
// of the convergence tolerance, truncating toward zero like the reference
// implementation.
func roundHalfConv(nrm, conv float64) float64 {
	return conv * 0.5 * float64(int(2.0*nrm/conv+0.5))
}
