// Package motion declares the contracts between the parameter-search core
// and the movie-alignment collaborators. Movie I/O, Fourier transforms, the
// trajectory solver's inner algorithm and CTF models all live behind these
// interfaces; the search core only drives them.
package motion

import "github.com/emtools/motionfit/internal/fourier"

// Vec2 is a 2D position or per-frame shift in pixels.
type Vec2 struct {
	X float64
	Y float64
}

// CCMap is one particle/frame cross-correlation map, stored origin-wrapped
// (peak for zero shift in the corners) as float32 for cache economy.
type CCMap struct {
	Side int
	Data []float32
}

// Micrograph identifies one micrograph of the input set. Index refers to
// the position in the full metadata list, Particles is the number of
// picked particles.
type Micrograph struct {
	Index     int
	Name      string
	Particles int
}

// MicrographData is the expensive per-micrograph preparation output:
// cross-correlation maps, observed particle spectra, image-plane positions
// and the initial trajectory estimate.
type MicrographData struct {
	CC            [][]CCMap              // [particle][frame]
	Obs           [][]*fourier.HalfPlane // [particle][frame]
	Positions     []Vec2                 // [particle]
	InitialTracks [][]Vec2               // [particle][frame]
	GlobComp      []Vec2                 // [frame], shared rigid component
}

// Solver is the trajectory solver. Prep is expensive and called once per
// micrograph; Optimize re-fits trajectories cheaply against cached
// cross-correlation data and must be safe to call repeatedly.
type Solver interface {
	// Ready reports whether the solver has been initialized by the host
	// pipeline. Estimation must not start before this is true.
	Ready() bool

	FrameCount() int

	// DamageWeights returns the per-frame frequency-domain damage
	// weighting images.
	DamageWeights() []*fourier.Weights

	// Prep loads one micrograph's movie, computes cross-correlation maps
	// under the given per-frame alignment weights and seeds initial
	// trajectories.
	Prep(mg Micrograph, alignWeights []*fourier.Weights) (*MicrographData, error)

	// Optimize fits per-particle trajectories. Sigma values are in pixel
	// units (see the Normalize methods); sigAccPx <= 0 disables the
	// acceleration prior.
	Optimize(cc [][]CCMap, initialTracks [][]Vec2,
		sigVelPx, sigAccPx, sigDivPx float64,
		positions []Vec2, globComp []Vec2) [][]Vec2

	// NormalizeSigVel converts a physical velocity-smoothness sigma to
	// pixel units. NormalizeSigDiv and NormalizeSigAcc do the same for
	// the divergence and acceleration terms.
	NormalizeSigVel(v float64) float64
	NormalizeSigDiv(v float64) float64
	NormalizeSigAcc(v float64) float64
}

// Reference provides reference-map projections for particles.
type Reference interface {
	// Predict returns the predicted spectrum for one particle.
	Predict(mg Micrograph, particle int) (*fourier.HalfPlane, error)

	// KOut is the outer spatial-frequency radius (in pixels) to which the
	// reference is reliable.
	KOut() int
}

// ObservationModel answers pixel-size and unit-conversion queries.
type ObservationModel interface {
	AngToPix(v float64, s int) float64
	PixToAng(v float64, s int) float64
	PixelSize() float64
}
