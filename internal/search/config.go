// Package search estimates the motion-smoothness hyperparameters of a
// dataset. A coordinator samples micrographs, caches alignment data once,
// and drives a derivative-free optimizer whose cost function re-runs the
// trajectory solver against the cache.
package search

import "errors"

// Optimization methods selectable for the hyperparameter search.
const (
	MethodNelderMead = "nelder-mead"
	MethodMayfly     = "mayfly"
)

// Configuration conflicts are fatal before any micrograph is touched.
var (
	ErrBothCutoffUnits = errors.New("cutoff frequency can only be given in pixels or Angstrom, not both")
	ErrBothEvalUnits   = errors.New("evaluation frequency can only be given in pixels or Angstrom, not both")
	ErrBothModes       = errors.New("only 2 or 3 parameters can be estimated, not both")
	ErrCutoffRequired  = errors.New("parameter estimation requires a frequency cutoff")
	ErrUnknownMethod   = errors.New("unknown optimization method")

	// ErrNotPrepared is returned when evaluation is attempted before the
	// alignment cache has been built.
	ErrNotPrepared = errors.New("parameter estimator used before alignment data was prepared")

	// ErrSolverNotReady is returned when the trajectory solver has not
	// been initialized by the host pipeline.
	ErrSolverNotReady = errors.New("parameter estimator initialized before the trajectory solver")
)

// Config is the estimation configuration. Frequencies <= 0 are unset; the
// defaults mirror the reference pipeline's option defaults.
type Config struct {
	Estim2 bool // estimate sigma_vel and sigma_div, sigma_acc fixed
	Estim3 bool // estimate all three sigmas

	KCutoff      float64 // alignment cutoff [pixels]
	KCutoffAngst float64 // alignment cutoff [Angstrom]
	KEval        float64 // evaluation threshold [pixels]
	KEvalAngst   float64 // evaluation threshold [Angstrom]

	MinParticles int

	SigVel float64 // initial sigma_vel
	SigDiv float64 // initial sigma_div
	SigAcc float64 // initial sigma_acc

	InitialStep float64 // initial simplex step, in problem units
	Conv        float64 // convergence tolerance (simplex resolution floor)
	MaxIters    int

	MaxRange int // allowed motion range [pixels], 0 = unlimited
	Seed     int64

	Threads int
	Method  string // MethodNelderMead (default) or MethodMayfly
	PopSize int    // population size for the mayfly method
}

// DefaultConfig returns the reference pipeline's defaults.
func DefaultConfig() Config {
	return Config{
		KCutoff:      -1,
		KCutoffAngst: -1,
		KEval:        -1,
		KEvalAngst:   -1,
		MinParticles: 1000,
		SigVel:       0.6,
		SigDiv:       3000,
		SigAcc:       5,
		InitialStep:  100,
		Conv:         10,
		MaxIters:     50,
		MaxRange:     50,
		Seed:         23,
		Threads:      1,
		Method:       MethodNelderMead,
		PopSize:      30,
	}
}

// Validate rejects conflicting or incomplete configurations. It never
// touches micrograph data, so conflicts surface before any sampling.
func (c *Config) Validate() error {
	if c.KCutoff > 0 && c.KCutoffAngst > 0 {
		return ErrBothCutoffUnits
	}
	if c.KEval > 0 && c.KEvalAngst > 0 {
		return ErrBothEvalUnits
	}
	if c.Estim2 && c.Estim3 {
		return ErrBothModes
	}
	if (c.Estim2 || c.Estim3) && c.KCutoff <= 0 && c.KCutoffAngst <= 0 {
		return ErrCutoffRequired
	}

	switch c.Method {
	case "", MethodNelderMead, MethodMayfly:
	default:
		return ErrUnknownMethod
	}

	return nil
}
