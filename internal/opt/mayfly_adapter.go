package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// Mayfly adapts the external mayfly library. It is a population-based
// global search, useful when the score surface has local optima the
// simplex would get stuck in; it needs explicit bounds and a seed instead
// of an initial point.
type Mayfly struct {
	MaxIters int
	PopSize  int
	Seed     int64
	Lower    float64
	Upper    float64
}

// NewMayfly creates a mayfly optimizer adapter. lower and upper bound every
// dimension (the library uses scalar bounds).
func NewMayfly(maxIters, popSize int, seed int64, lower, upper float64) *Mayfly {
	return &Mayfly{
		MaxIters: maxIters,
		PopSize:  popSize,
		Seed:     seed,
		Lower:    lower,
		Upper:    upper,
	}
}

// Minimize runs the mayfly optimization. The initial point only fixes the
// dimensionality; the population is sampled from the configured bounds.
func (m *Mayfly) Minimize(cost func([]float64) float64, initial []float64) (Result, error) {
	config := mayfly.NewDefaultConfig()

	config.ObjectiveFunc = cost
	config.ProblemSize = len(initial)
	config.MaxIterations = m.MaxIters
	config.NPop = m.PopSize
	config.LowerBound = m.Lower
	config.UpperBound = m.Upper

	// Local generator so repeated runs in one process stay independent.
	config.Rand = rand.New(rand.NewSource(m.Seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return Result{}, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	return Result{
		X:    result.GlobalBest.Position,
		Cost: result.GlobalBest.Cost,
	}, nil
}
