package search

import (
	"math"

	"github.com/emtools/motionfit/internal/fourier"
)

// bandEnvelope multiplies a weight image by a low-pass edge that passes
// frequencies below k0 untouched and suppresses everything above k1, with
// a raised-cosine rolloff in between. Alignment only considers
// frequencies up to the configured cutoff; the soft edge avoids ringing.
func bandEnvelope(w *fourier.Weights, k0, k1 float64) *fourier.Weights {
	s := w.S
	sh := w.SH()

	out := fourier.NewWeights(s)

	for y := 0; y < s; y++ {
		yy := fourier.SignedY(y, s)

		for x := 0; x < sh; x++ {
			r := math.Sqrt(float64(x*x + yy*yy))

			var env float64
			switch {
			case r <= k0:
				env = 1
			case r >= k1:
				env = 0
			default:
				t := (r - k0) / (k1 - k0)
				env = 0.5 * (1 + math.Cos(math.Pi*t))
			}

			i := y*sh + x
			out.W[i] = w.W[i] * float32(env)
		}
	}

	return out
}
