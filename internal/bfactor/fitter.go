// Package bfactor fits a single-exponential amplitude decay model to
// radially averaged Fourier signal. The decay rate (B-factor) and a scale
// factor are estimated jointly: a coarse-to-fine grid search scans the
// decay axis while the optimal scale for each candidate decay has a closed
// form.
package bfactor

import "math"

// eps guards the closed-form scale division against flat predicted signal.
const eps = 1e-10

// Result is a fitted (decay, scale) pair. Decay is in dimensionless
// per-pixel units; multiply by (S*pixelSize)^2 for Angstrom^2.
type Result struct {
	Decay float64
	Scale float64
}

// FitDecayScale searches decay rates in [b0, b1] for the pair minimizing
// the weighted least-squares residual between scale*exp(-B*r^2/4) and the
// observed cross/power ratio. power and cross are same-length radial
// profiles. The search runs steps equally spaced candidates per level and
// refines depth more times, each time narrowing the interval to one grid
// spacing on either side of the best candidate (clamped to [b0, b1]).
//
// The returned decay always lies in [b0, b1] and the scale is clamped
// below at minScale. Degenerate input (flat power) yields a near-zero
// scale rather than an error.
func FitDecayScale(power, cross []float64, b0, b1, minScale float64, steps, depth int) Result {
	res, _ := fitDecayScale(power, cross, b0, b1, minScale, steps, depth)
	return res
}

// fitDecayScale also returns the (unnormalized) residual of the best fit.
// The residual drops the constant term sum(cross^2/power), so it is only a
// monotone stand-in for the true SSE and never leaves this package.
func fitDecayScale(power, cross []float64, b0, b1, minScale float64, steps, depth int) (Result, float64) {
	if steps < 2 {
		steps = 2
	}

	sh := len(power)
	env := make([]float64, sh)

	best := Result{Decay: b0, Scale: 1.0}
	minErr := math.MaxFloat64

	lo, hi := b0, b1

	// Bounded refinement, iterative on purpose: depth is small and the
	// narrowed interval always contains the incumbent, so the best
	// residual can only improve from one level to the next.
	for level := 0; ; level++ {
		for st := 0; st < steps; st++ {
			b := lo + float64(st)*(hi-lo)/float64(steps-1)

			for r := 0; r < sh; r++ {
				env[r] = math.Exp(-b * float64(r*r) / 4.0)
			}

			// Closed-form optimal scale for this decay candidate.
			var num, denom float64
			for r := 0; r < sh; r++ {
				num += cross[r] * env[r]
				denom += power[r] * env[r] * env[r]
			}

			a := num / eps
			if denom > eps {
				a = num / denom
			}
			if a < minScale {
				a = minScale
			}

			var sum float64
			for r := 0; r < sh; r++ {
				sum += power[r]*a*a*env[r]*env[r] - 2.0*a*env[r]*cross[r]
			}

			if sum < minErr {
				minErr = sum
				best = Result{Decay: b, Scale: a}
			}
		}

		if level >= depth {
			break
		}

		h := (hi - lo) / float64(steps-1)
		lo = best.Decay - h
		hi = best.Decay + h

		if lo < b0 {
			lo = b0
		}
		if hi > b1 {
			hi = b1
		}
	}

	return best, minErr
}
