// Package radial builds radially binned sums of Fourier-domain signal
// statistics. The B-factor refiner fits an exponential decay model against
// these profiles instead of against the full 2D spectra.
package radial

import (
	"math"

	"github.com/emtools/motionfit/internal/fourier"
)

// Accumulator collects, per integer spatial-frequency radius, the weighted
// predicted-signal power and the weighted observed/predicted cross term.
// One accumulator per worker; partial results are combined with Merge.
type Accumulator struct {
	Power []float64
	Cross []float64
}

// NewAccumulator creates an accumulator with sh radial bins (sh = S/2+1 for
// an SxS transform).
func NewAccumulator(sh int) *Accumulator {
	return &Accumulator{
		Power: make([]float64, sh),
		Cross: make([]float64, sh),
	}
}

// Accumulate adds one observed/predicted image pair. For every half-plane
// pixel within the radial range:
//
//	power[r] += w * |pred|^2
//	cross[r] += w * (pred.re*obs.re + pred.im*obs.im)
//
// A nil weight image counts every pixel with weight 1.
func (a *Accumulator) Accumulate(obs, pred *fourier.HalfPlane, w *fourier.Weights) {
	s := pred.S
	sh := pred.SH()

	for y := 0; y < s; y++ {
		yy := fourier.SignedY(y, s)

		for x := 0; x < sh; x++ {
			r := int(math.Sqrt(float64(x*x+yy*yy)) + 0.5)
			if r >= sh {
				continue
			}

			i := y*sh + x

			pr := float64(pred.Re[i])
			pi := float64(pred.Im[i])
			or := float64(obs.Re[i])
			oi := float64(obs.Im[i])

			wp := 1.0
			if w != nil {
				wp = float64(w.W[i])
			}

			a.Power[r] += wp * (pr*pr + pi*pi)
			a.Cross[r] += wp * (pr*or + pi*oi)
		}
	}
}

// Merge adds another accumulator's bins into this one. Both must have the
// same number of bins.
func (a *Accumulator) Merge(other *Accumulator) {
	for r := range a.Power {
		a.Power[r] += other.Power[r]
		a.Cross[r] += other.Cross[r]
	}
}
