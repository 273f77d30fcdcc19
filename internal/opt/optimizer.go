// Package opt provides the derivative-free minimizers driving the
// hyperparameter search. The search core never implements a minimizer
// itself; it talks to this interface and the adapters delegate to external
// optimization libraries.
package opt

// Result holds the final point and cost of an optimization run.
type Result struct {
	X    []float64
	Cost float64
}

// Optimizer minimizes a scalar cost function over R^n, starting from an
// initial point. Implementations guarantee a monotonically non-increasing
// best cost across iterations, terminate on their convergence criterion or
// iteration limit (whichever first), and are deterministic given a
// deterministic cost function and fixed configuration.
type Optimizer interface {
	Minimize(cost func([]float64) float64, initial []float64) (Result, error)
}
