// Package align caches the per-micrograph alignment data the hyperparameter
// search re-evaluates many times: cross-correlation maps, observed and
// predicted spectra in a reduced band representation, particle positions
// and initial trajectories. The cache is built once per run; only the
// initial trajectories are mutated afterwards.
package align

import (
	"math"
	"sync"

	"github.com/emtools/motionfit/internal/fourier"
	"github.com/emtools/motionfit/internal/motion"
)

// Accel is a spectrum reduced to the evaluation band: one float32 pair per
// band sample, in band-index order.
type Accel struct {
	Re []float32
	Im []float32
}

// Score is the three-component cross-validation accumulator: the
// observed/predicted correlation numerator and the two normalization
// weights.
type Score struct {
	Num     float64
	WghObs  float64
	WghPred float64
}

// Add accumulates another partial score.
func (s *Score) Add(o Score) {
	s.Num += o.Num
	s.WghObs += o.WghObs
	s.WghPred += o.WghPred
}

// Value is the final cross-validated score: Num / sqrt(WghObs*WghPred),
// or 0 when the weight product is not positive.
func (s Score) Value() float64 {
	wg := s.WghObs * s.WghPred
	if wg > 0 {
		return s.Num / math.Sqrt(wg)
	}
	return 0
}

// Set is the alignment-data cache for the sampled micrographs.
type Set struct {
	S  int // spatial size of the full transforms
	FC int // frame count
	K0 int // inner band radius (inclusive)
	K1 int // outer band radius (exclusive)

	// band sample coordinates in the half-plane, x unsigned, y signed
	bandX []int32
	bandY []int32

	Damage [][]float32 // [frame][band]

	CCs           [][][]motion.CCMap // [mg][particle][frame]
	Obs           [][][]Accel        // [mg][particle][frame]
	Pred          [][]Accel          // [mg][particle]
	Positions     [][]motion.Vec2    // [mg][particle]
	InitialTracks [][][]motion.Vec2  // [mg][particle][frame]
	GlobComp      [][]motion.Vec2    // [mg][frame]

	// Populated marks micrographs whose preparation succeeded; the rest
	// are skipped by every consumer.
	Populated []bool
}

// NewSet allocates a cache for micrographs with the given particle counts.
// The evaluation band covers radii k0 <= r < k1 of SxS transforms with fc
// frames each.
func NewSet(particleCounts []int, fc, s, k0, k1 int) *Set {
	sh := s/2 + 1

	set := &Set{
		S:  s,
		FC: fc,
		K0: k0,
		K1: k1,
	}

	for y := 0; y < s; y++ {
		yy := fourier.SignedY(y, s)
		for x := 0; x < sh; x++ {
			r2 := x*x + yy*yy
			if r2 >= k0*k0 && r2 < k1*k1 {
				set.bandX = append(set.bandX, int32(x))
				set.bandY = append(set.bandY, int32(yy))
			}
		}
	}

	gc := len(particleCounts)
	set.Damage = make([][]float32, fc)
	set.CCs = make([][][]motion.CCMap, gc)
	set.Obs = make([][][]Accel, gc)
	set.Pred = make([][]Accel, gc)
	set.Positions = make([][]motion.Vec2, gc)
	set.InitialTracks = make([][][]motion.Vec2, gc)
	set.GlobComp = make([][]motion.Vec2, gc)
	set.Populated = make([]bool, gc)

	for g, pc := range particleCounts {
		set.CCs[g] = make([][]motion.CCMap, pc)
		set.Obs[g] = make([][]Accel, pc)
		set.Pred[g] = make([]Accel, pc)
		set.Positions[g] = make([]motion.Vec2, pc)
		set.InitialTracks[g] = make([][]motion.Vec2, pc)
		set.GlobComp[g] = make([]motion.Vec2, fc)

		for p := 0; p < pc; p++ {
			set.CCs[g][p] = make([]motion.CCMap, fc)
			set.Obs[g][p] = make([]Accel, fc)
			set.InitialTracks[g][p] = make([]motion.Vec2, fc)
		}
	}

	return set
}

// BandSize returns the number of samples in the evaluation band.
func (s *Set) BandSize() int { return len(s.bandX) }

// Accelerate reduces a full half-plane spectrum to the evaluation band.
func (s *Set) Accelerate(img *fourier.HalfPlane) Accel {
	n := len(s.bandX)
	acc := Accel{
		Re: make([]float32, n),
		Im: make([]float32, n),
	}

	sh := img.SH()
	for b := 0; b < n; b++ {
		x := int(s.bandX[b])
		y := int(s.bandY[b])
		if y < 0 {
			y += s.S
		}
		i := y*sh + x
		acc.Re[b] = img.Re[i]
		acc.Im[b] = img.Im[i]
	}

	return acc
}

// AccelerateWeights reduces a weight image to the evaluation band.
func (s *Set) AccelerateWeights(w *fourier.Weights) []float32 {
	n := len(s.bandX)
	out := make([]float32, n)

	sh := w.SH()
	for b := 0; b < n; b++ {
		x := int(s.bandX[b])
		y := int(s.bandY[b])
		if y < 0 {
			y += s.S
		}
		out[b] = w.W[y*sh+x]
	}

	return out
}

// CopyCC stores one cross-correlation map, cropping it to 2*maxRange per
// side when a motion-range limit is set.
func (s *Set) CopyCC(g, p, f int, cc motion.CCMap, maxRange int) {
	if maxRange > 0 && cc.Side > 2*maxRange {
		cc = cropWrapped(cc, 2*maxRange)
	} else {
		data := make([]float32, len(cc.Data))
		copy(data, cc.Data)
		cc.Data = data
	}
	s.CCs[g][p][f] = cc
}

// cropWrapped extracts the origin-centred side x side region of an
// origin-wrapped map, preserving the wrapped layout.
func cropWrapped(cc motion.CCMap, side int) motion.CCMap {
	out := motion.CCMap{
		Side: side,
		Data: make([]float32, side*side),
	}

	half := side / 2
	for y := 0; y < side; y++ {
		srcY := y
		if y >= half {
			srcY = cc.Side - side + y
		}
		for x := 0; x < side; x++ {
			srcX := x
			if x >= half {
				srcX = cc.Side - side + x
			}
			out.Data[y*side+x] = cc.Data[srcY*cc.Side+srcX]
		}
	}

	return out
}

// UpdateTSC scores one micrograph's trajectories against the cached data.
// Each observation is phase-shifted by its trajectory offset before
// correlation with the prediction; damage weights attenuate every band
// sample. Particles are scored in parallel by a fixed worker pool with
// per-worker partial sums and a sequential reduction.
func (s *Set) UpdateTSC(tracks [][]motion.Vec2, g, threads int) Score {
	pc := len(tracks)
	if threads < 1 {
		threads = 1
	}
	if threads > pc && pc > 0 {
		threads = pc
	}

	partial := make([]Score, threads)

	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()

			var local Score
			n := len(s.bandX)

			for p := t; p < pc; p += threads {
				pred := s.Pred[g][p]

				for f := 0; f < s.FC; f++ {
					obs := s.Obs[g][p][f]
					dmg := s.Damage[f]
					dx := tracks[p][f].X
					dy := tracks[p][f].Y

					for b := 0; b < n; b++ {
						phi := 2 * math.Pi * (float64(s.bandX[b])*dx + float64(s.bandY[b])*dy) / float64(s.S)
						c, sn := math.Cos(phi), math.Sin(phi)

						or := float64(obs.Re[b])
						oi := float64(obs.Im[b])

						// observation rotated by exp(-i*phi)
						ror := or*c + oi*sn
						roi := oi*c - or*sn

						pr := float64(pred.Re[b])
						pi := float64(pred.Im[b])
						d := float64(dmg[b])

						local.Num += d * (pr*ror + pi*roi)
						local.WghObs += d * (or*or + oi*oi)
						local.WghPred += d * (pr*pr + pi*pi)
					}
				}
			}

			partial[t] = local
		}(t)
	}
	wg.Wait()

	var total Score
	for _, p := range partial {
		total.Add(p)
	}
	return total
}
