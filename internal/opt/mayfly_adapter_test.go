package opt

import (
	"math"
	"testing"
)

// Sphere function: f(x) = sum(x_i^2), minimum at origin
func sphere(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func TestMayflyAdapterOnSphere(t *testing.T) {
	// popSize must be >=20 for mayfly v0.1.0
	optimizer := NewMayfly(100, 20, 42, -10, 10)

	res, err := optimizer.Minimize(sphere, make([]float64, 3))
	if err != nil {
		t.Fatalf("Minimize: %v", err)
	}

	if len(res.X) != 3 {
		t.Fatalf("Expected 3 parameters, got %d", len(res.X))
	}

	// Should converge close to zero
	if res.Cost > 0.1 {
		t.Errorf("Expected cost near 0, got %f", res.Cost)
	}

	for i, v := range res.X {
		if math.Abs(v) > 1.0 {
			t.Errorf("Parameter %d = %f, expected near 0", i, v)
		}
	}
}

func TestMayflyAdapterDeterministic(t *testing.T) {
	run := func() Result {
		optimizer := NewMayfly(50, 20, 123, -5, 5)
		res, err := optimizer.Minimize(sphere, make([]float64, 2))
		if err != nil {
			t.Fatalf("Minimize: %v", err)
		}
		return res
	}

	first := run()
	second := run()

	if first.Cost != second.Cost {
		t.Errorf("Non-deterministic: cost1=%f, cost2=%f", first.Cost, second.Cost)
	}
	for i := range first.X {
		if first.X[i] != second.X[i] {
			t.Errorf("Non-deterministic parameter %d: %f vs %f", i, first.X[i], second.X[i])
		}
	}
}
