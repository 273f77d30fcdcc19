package bfactor

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/emtools/motionfit/internal/fourier"
	"github.com/emtools/motionfit/internal/radial"
)

// CTFEvaluator supplies the contrast-transfer image for one particle of the
// micrograph being processed. CTF model evaluation lives upstream; the
// refiner only multiplies predictions by the returned image.
type CTFEvaluator interface {
	Image(particle int) (*fourier.Weights, error)
}

// Config holds the B-factor search settings. MinB and MaxB bound the decay
// in Angstrom^2, MinScale rejects inverted or pathological fits.
type Config struct {
	PerMicrograph bool    // pool all particles of a micrograph into one fit
	MinB          float64 // minimal allowed B-factor [Angstrom^2]
	MaxB          float64 // maximal allowed B-factor [Angstrom^2]
	MinScale      float64 // minimal allowed scale factor
	Steps         int     // grid candidates per refinement level
	Depth         int     // number of interval refinements
	Threads       int
}

// DefaultConfig returns the search settings of the reference pipeline:
// B in [-30, 300] Angstrom^2, scale >= 0.2, 20 steps over 5 levels.
func DefaultConfig() Config {
	return Config{
		MinB:     -30,
		MaxB:     300,
		MinScale: 0.2,
		Steps:    20,
		Depth:    5,
		Threads:  1,
	}
}

// ParticleFit is one fitted row of a per-micrograph result table.
// BFactor is reported in Angstrom^2, offset by -MinB so it is
// non-negative over the whole search range.
type ParticleFit struct {
	Particle int     `json:"particle"`
	BFactor  float64 `json:"bfactor"`
	Scale    float64 `json:"scale"`
}

// Refiner estimates per-particle (or pooled per-micrograph) amplitude
// decay from observed vs. predicted spectra.
type Refiner struct {
	cfg        Config
	s          int
	pixelSize  float64
	freqWeight *fourier.Weights // hollow frequency mask, nil = unweighted
}

// NewRefiner creates a refiner for SxS spectra at the given pixel size.
// freqWeight may be nil.
func NewRefiner(cfg Config, s int, pixelSize float64, freqWeight *fourier.Weights) *Refiner {
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	return &Refiner{cfg: cfg, s: s, pixelSize: pixelSize, freqWeight: freqWeight}
}

// ProcessMicrograph fits decay and scale for every particle of one
// micrograph. obs and pred are parallel slices of observed and predicted
// half-plane spectra; ctf may be nil if predictions are already
// CTF-multiplied. Particles are processed by a fixed worker pool, each
// worker keeping its own accumulator and result buffer until the final
// sequential reduction.
func (rf *Refiner) ProcessMicrograph(obs, pred []*fourier.HalfPlane, ctf CTFEvaluator) ([]ParticleFit, error) {
	if len(obs) != len(pred) {
		return nil, fmt.Errorf("observed/predicted particle count mismatch: %d vs %d", len(obs), len(pred))
	}

	pc := len(obs)
	sh := rf.s/2 + 1

	as := float64(rf.s) * rf.pixelSize
	minBpx := rf.cfg.MinB / (as * as)
	maxBpx := rf.cfg.MaxB / (as * as)

	threads := rf.cfg.Threads
	if threads > pc && pc > 0 {
		threads = pc
	}

	if rf.cfg.PerMicrograph {
		accs := make([]*radial.Accumulator, threads)
		errs := make([]error, threads)

		var wg sync.WaitGroup
		for t := 0; t < threads; t++ {
			wg.Add(1)
			go func(t int) {
				defer wg.Done()
				acc := radial.NewAccumulator(sh)
				for p := t; p < pc; p += threads {
					predImg, err := rf.applyCTF(pred[p], ctf, p)
					if err != nil {
						errs[t] = err
						return
					}
					acc.Accumulate(obs[p], predImg, rf.freqWeight)
				}
				accs[t] = acc
			}(t)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}

		total := accs[0]
		for t := 1; t < threads; t++ {
			total.Merge(accs[t])
		}

		fit := FitDecayScale(total.Power, total.Cross, minBpx, maxBpx, rf.cfg.MinScale, rf.cfg.Steps, rf.cfg.Depth)

		fits := make([]ParticleFit, pc)
		for p := 0; p < pc; p++ {
			fits[p] = ParticleFit{
				Particle: p,
				BFactor:  as*as*fit.Decay - rf.cfg.MinB,
				Scale:    fit.Scale,
			}
		}
		return fits, nil
	}

	perWorker := make([][]ParticleFit, threads)
	errs := make([]error, threads)

	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			for p := t; p < pc; p += threads {
				predImg, err := rf.applyCTF(pred[p], ctf, p)
				if err != nil {
					errs[t] = err
					return
				}

				acc := radial.NewAccumulator(sh)
				acc.Accumulate(obs[p], predImg, rf.freqWeight)

				fit := FitDecayScale(acc.Power, acc.Cross, minBpx, maxBpx, rf.cfg.MinScale, rf.cfg.Steps, rf.cfg.Depth)

				perWorker[t] = append(perWorker[t], ParticleFit{
					Particle: p,
					BFactor:  as*as*fit.Decay - rf.cfg.MinB,
					Scale:    fit.Scale,
				})
			}
		}(t)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	fits := make([]ParticleFit, pc)
	for _, buf := range perWorker {
		for _, f := range buf {
			fits[f.Particle] = f
		}
	}

	slog.Debug("micrograph B-factor fit complete", "particles", pc, "threads", threads)

	return fits, nil
}

// applyCTF multiplies a predicted spectrum by the particle's CTF image.
// Returns the prediction unchanged when no evaluator is configured.
func (rf *Refiner) applyCTF(pred *fourier.HalfPlane, ctf CTFEvaluator, p int) (*fourier.HalfPlane, error) {
	if ctf == nil {
		return pred, nil
	}

	img, err := ctf.Image(p)
	if err != nil {
		return nil, fmt.Errorf("CTF evaluation for particle %d: %w", p, err)
	}

	out := fourier.NewHalfPlane(pred.S)
	for i := range pred.Re {
		out.Re[i] = img.W[i] * pred.Re[i]
		out.Im[i] = img.W[i] * pred.Im[i]
	}
	return out, nil
}
