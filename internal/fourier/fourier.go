// Package fourier holds the reduced-precision Fourier-domain image types
// shared by the radial accumulator, the alignment cache and the B-factor
// refiner. Spectra are stored as Hermitian half-planes of an SxS transform:
// width S/2+1, height S, with the second half of the rows holding negative
// frequencies.
package fourier

// HalfPlane is the non-redundant half of a 2D Fourier transform, stored as
// separate float32 real and imaginary planes in row-major order.
type HalfPlane struct {
	S  int // full (square) spatial size of the transform
	Re []float32
	Im []float32
}

// NewHalfPlane allocates a zeroed half-plane for an SxS transform.
func NewHalfPlane(s int) *HalfPlane {
	sh := s/2 + 1
	return &HalfPlane{
		S:  s,
		Re: make([]float32, s*sh),
		Im: make([]float32, s*sh),
	}
}

// SH returns the stored width (S/2 + 1).
func (h *HalfPlane) SH() int { return h.S/2 + 1 }

// At returns the complex value at column x, row y.
func (h *HalfPlane) At(x, y int) (re, im float32) {
	i := y*h.SH() + x
	return h.Re[i], h.Im[i]
}

// Set stores a complex value at column x, row y.
func (h *HalfPlane) Set(x, y int, re, im float32) {
	i := y*h.SH() + x
	h.Re[i] = re
	h.Im[i] = im
}

// Weights is a real-valued image with half-plane geometry, used for damage
// weights, frequency masks and CTF images.
type Weights struct {
	S int
	W []float32
}

// NewWeights allocates a zeroed weight image for an SxS transform.
func NewWeights(s int) *Weights {
	sh := s/2 + 1
	return &Weights{S: s, W: make([]float32, s*sh)}
}

// SH returns the stored width (S/2 + 1).
func (w *Weights) SH() int { return w.S/2 + 1 }

// At returns the weight at column x, row y.
func (w *Weights) At(x, y int) float32 { return w.W[y*w.SH()+x] }

// Set stores a weight at column x, row y.
func (w *Weights) Set(x, y int, v float32) { w.W[y*w.SH()+x] = v }

// SignedY maps a stored row index to its signed frequency coordinate.
func SignedY(y, s int) int {
	return (y+s/2)%s - s/2
}
