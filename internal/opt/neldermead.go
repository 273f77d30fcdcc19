package opt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// NelderMead adapts gonum's downhill-simplex method to the Optimizer
// interface. InitialStep sets the size of the starting simplex in problem
// units; Tolerance is the convergence threshold on the simplex extent in
// parameter space; MaxIters bounds the number of major iterations.
type NelderMead struct {
	InitialStep float64
	Tolerance   float64
	MaxIters    int
}

// NewNelderMead creates a Nelder-Mead adapter with the given step size,
// convergence tolerance and iteration limit.
func NewNelderMead(initialStep, tolerance float64, maxIters int) *NelderMead {
	return &NelderMead{
		InitialStep: initialStep,
		Tolerance:   tolerance,
		MaxIters:    maxIters,
	}
}

// Minimize runs the simplex search from the given initial point.
func (nm *NelderMead) Minimize(cost func([]float64) float64, initial []float64) (Result, error) {
	problem := optimize.Problem{Func: cost}

	method := &optimize.NelderMead{
		SimplexSize: nm.InitialStep,
	}

	settings := &optimize.Settings{
		MajorIterations: nm.MaxIters,
		Converger:       &stepConverge{tol: nm.Tolerance},
	}

	x0 := append([]float64(nil), initial...)

	res, err := optimize.Minimize(problem, x0, settings, method)
	if res == nil {
		return Result{}, fmt.Errorf("nelder-mead optimization failed: %w", err)
	}

	// Hitting the iteration limit is a regular termination per the
	// contract, not a failure.
	return Result{X: res.X, Cost: res.F}, nil
}

// stepConverge terminates when the incumbent has stopped moving in
// parameter space: a dimension-scaled run of major iterations with every
// coordinate step below tol. Moves that improve the incumbent displace it
// by at least the current simplex scale, and the simplex keeps shrinking
// while the incumbent stands still, so a long enough run of sub-tol steps
// means the simplex diameter has fallen to tol. Converging on the
// objective instead would stall long walks through shallow valleys, where
// per-step improvements are tiny while the simplex is still travelling.
type stepConverge struct {
	tol float64

	window int
	prev   []float64
	still  int
}

func (c *stepConverge) Init(dim int) {
	// The simplex can update worst vertices for several iterations
	// without touching the best one; demand roughly ten such rounds per
	// dimension before declaring the incumbent stationary.
	c.window = 10 * dim
	c.prev = make([]float64, dim)
	for i := range c.prev {
		c.prev[i] = math.Inf(1)
	}
	c.still = 0
}

func (c *stepConverge) Converged(loc *optimize.Location) optimize.Status {
	moved := 0.0
	for i, x := range loc.X {
		if d := math.Abs(x - c.prev[i]); d > moved {
			moved = d
		}
	}
	copy(c.prev, loc.X)

	if moved >= c.tol {
		c.still = 0
		return optimize.NotTerminated
	}

	c.still++
	if c.still >= c.window {
		return optimize.StepConvergence
	}
	return optimize.NotTerminated
}
