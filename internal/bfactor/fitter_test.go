package bfactor

import (
	"math"
	"testing"
)

func TestFitDecayScaleStaysWithinBounds(t *testing.T) {
	cases := []struct {
		name     string
		b0, b1   float64
		minScale float64
		steps    int
		depth    int
	}{
		{"narrow interval", 0, 0.5, 0.2, 20, 5},
		{"wide interval", -0.1, 2, 0.2, 20, 5},
		{"single level", 0, 2, 0.2, 5, 0},
		{"deep refinement", 0, 2, 0.05, 7, 8},
	}

	power := []float64{10, 9, 8, 6, 4, 2, 1, 0.5}
	cross := []float64{9, 7, 5, 3, 1.5, 0.7, 0.2, 0.05}

	for _, tc := range cases {
		res := FitDecayScale(power, cross, tc.b0, tc.b1, tc.minScale, tc.steps, tc.depth)

		if res.Decay < tc.b0 || res.Decay > tc.b1 {
			t.Errorf("%s: decay %f outside [%f, %f]", tc.name, res.Decay, tc.b0, tc.b1)
		}
		if res.Scale < tc.minScale {
			t.Errorf("%s: scale %f below minimum %f", tc.name, res.Scale, tc.minScale)
		}
	}
}

func TestFitDecayScaleRecoversKnownDecay(t *testing.T) {
	// Synthesize cross = scale * exp(-B r^2 / 4) * power with known B and scale.
	const (
		trueB     = 0.8
		trueScale = 0.9
		sh        = 16
	)

	power := make([]float64, sh)
	cross := make([]float64, sh)
	for r := 0; r < sh; r++ {
		power[r] = 5.0
		cross[r] = trueScale * math.Exp(-trueB*float64(r*r)/4.0) * power[r]
	}

	res := FitDecayScale(power, cross, 0, 2, 0.2, 20, 5)

	if math.Abs(res.Decay-trueB) > 0.01 {
		t.Errorf("decay = %f, want %f within 0.01", res.Decay, trueB)
	}
	if math.Abs(res.Scale-trueScale) > 0.01 {
		t.Errorf("scale = %f, want %f within 0.01", res.Scale, trueScale)
	}
}

func TestFitDecayScaleDecayingRatio(t *testing.T) {
	// Perfect match at radius 0, decaying cross/power ratio: the fitted
	// model should reproduce the decay with a scale near 1 at radius 0.
	power := []float64{10, 10, 10, 10}
	cross := []float64{10, 8, 5, 2}

	res := FitDecayScale(power, cross, 0, 2, 0.2, 5, 3)

	if res.Decay <= 0 || res.Decay >= 2 {
		t.Errorf("decay = %f, want interior of [0, 2]", res.Decay)
	}
	if math.Abs(res.Scale-1.0) > 0.3 {
		t.Errorf("scale = %f, want near 1.0", res.Scale)
	}

	// The model at radius 1 should sit between the observed ratios at
	// radii 0 and 2.
	model1 := res.Scale * math.Exp(-res.Decay/4.0)
	if model1 < 0.5 || model1 > 1.0 {
		t.Errorf("model at radius 1 = %f, want within (0.5, 1.0)", model1)
	}
}

func TestFitDecayScaleMonotoneRefinement(t *testing.T) {
	power := []float64{10, 10, 10, 10, 10, 10}
	cross := []float64{10, 8.5, 6, 3.5, 1.8, 0.8}

	prev := math.MaxFloat64
	for depth := 0; depth <= 5; depth++ {
		_, residual := fitDecayScale(power, cross, 0, 2, 0.2, 5, depth)
		if residual > prev {
			t.Errorf("depth %d: residual %f worse than depth %d: %f", depth, residual, depth-1, prev)
		}
		prev = residual
	}
}

func TestFitDecayScaleFlatSignal(t *testing.T) {
	// Degenerate input: no predicted power at all. The epsilon divisor
	// keeps the closed-form scale finite and the clamp takes over.
	power := make([]float64, 8)
	cross := make([]float64, 8)

	res := FitDecayScale(power, cross, 0, 2, 0.2, 10, 3)

	if math.IsNaN(res.Decay) || math.IsNaN(res.Scale) {
		t.Fatalf("degenerate input produced NaN: %+v", res)
	}
	if res.Scale != 0.2 {
		t.Errorf("scale = %f, want clamp value 0.2", res.Scale)
	}
	if res.Decay < 0 || res.Decay > 2 {
		t.Errorf("decay = %f outside [0, 2]", res.Decay)
	}
}
