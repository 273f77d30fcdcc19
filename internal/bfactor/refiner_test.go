package bfactor

import (
	"errors"
	"math"
	"testing"

	"github.com/emtools/motionfit/internal/fourier"
)

// decayPair builds a predicted spectrum and an observation that is the
// prediction attenuated by scale * exp(-bpx r^2 / 4), using the same radius
// binning as the radial accumulator.
func decayPair(s int, bpx, scale float64) (obs, pred *fourier.HalfPlane) {
	sh := s/2 + 1
	obs = fourier.NewHalfPlane(s)
	pred = fourier.NewHalfPlane(s)

	for y := 0; y < s; y++ {
		yy := fourier.SignedY(y, s)
		for x := 0; x < sh; x++ {
			r := int(math.Sqrt(float64(x*x+yy*yy)) + 0.5)
			if r >= sh {
				continue
			}

			re := float32(1.0 + 0.05*float64((x+y)%7))
			im := float32(0.02 * float64((3*x+y)%5))
			pred.Set(x, y, re, im)

			env := float32(scale * math.Exp(-bpx*float64(r*r)/4.0))
			obs.Set(x, y, env*re, env*im)
		}
	}
	return obs, pred
}

type constCTF struct{ v float32 }

func (c constCTF) Image(particle int) (*fourier.Weights, error) {
	w := fourier.NewWeights(32)
	for i := range w.W {
		w.W[i] = c.v
	}
	return w, nil
}

type failingCTF struct{}

func (failingCTF) Image(particle int) (*fourier.Weights, error) {
	return nil, errors.New("no CTF model for micrograph")
}

func TestProcessMicrographRecoversDecay(t *testing.T) {
	const (
		s         = 32
		pixelSize = 1.0
		bPhys     = 100.0 // Angstrom^2
		scale     = 0.7
	)
	as := float64(s) * pixelSize
	bpx := bPhys / (as * as)

	obs, pred := decayPair(s, bpx, scale)

	rf := NewRefiner(DefaultConfig(), s, pixelSize, nil)
	fits, err := rf.ProcessMicrograph(
		[]*fourier.HalfPlane{obs, obs, obs},
		[]*fourier.HalfPlane{pred, pred, pred},
		nil,
	)
	if err != nil {
		t.Fatalf("ProcessMicrograph: %v", err)
	}
	if len(fits) != 3 {
		t.Fatalf("got %d fits, want 3", len(fits))
	}

	// Reported B-factor is offset by -MinB.
	wantB := bPhys - DefaultConfig().MinB
	for _, f := range fits {
		if math.Abs(f.BFactor-wantB) > 0.1 {
			t.Errorf("particle %d: B-factor = %f, want %f within 0.1", f.Particle, f.BFactor, wantB)
		}
		if math.Abs(f.Scale-scale) > 0.001 {
			t.Errorf("particle %d: scale = %f, want %f", f.Particle, f.Scale, scale)
		}
	}
}

func TestProcessMicrographPooled(t *testing.T) {
	const s = 32
	obs, pred := decayPair(s, 0.05, 0.8)

	cfg := DefaultConfig()
	cfg.PerMicrograph = true
	cfg.Threads = 2

	rf := NewRefiner(cfg, s, 1.0, nil)
	fits, err := rf.ProcessMicrograph(
		[]*fourier.HalfPlane{obs, obs},
		[]*fourier.HalfPlane{pred, pred},
		nil,
	)
	if err != nil {
		t.Fatalf("ProcessMicrograph: %v", err)
	}
	if len(fits) != 2 {
		t.Fatalf("got %d fits, want 2", len(fits))
	}
	if fits[0].BFactor != fits[1].BFactor || fits[0].Scale != fits[1].Scale {
		t.Errorf("pooled fit rows differ: %+v vs %+v", fits[0], fits[1])
	}
	if fits[0].Particle != 0 || fits[1].Particle != 1 {
		t.Errorf("particle indices not preserved: %+v", fits)
	}
}

func TestProcessMicrographAppliesCTF(t *testing.T) {
	const s = 32
	// Observation built against the CTF-multiplied prediction: with the
	// evaluator wired in, the fitted scale returns to 1.
	obs, pred := decayPair(s, 0.05, 0.5)

	rf := NewRefiner(DefaultConfig(), s, 1.0, nil)
	fits, err := rf.ProcessMicrograph(
		[]*fourier.HalfPlane{obs},
		[]*fourier.HalfPlane{pred},
		constCTF{v: 0.5},
	)
	if err != nil {
		t.Fatalf("ProcessMicrograph: %v", err)
	}
	if math.Abs(fits[0].Scale-1.0) > 0.001 {
		t.Errorf("CTF-corrected scale = %f, want 1.0", fits[0].Scale)
	}
}

func TestProcessMicrographCTFError(t *testing.T) {
	const s = 32
	obs, pred := decayPair(s, 0.05, 0.8)

	rf := NewRefiner(DefaultConfig(), s, 1.0, nil)
	_, err := rf.ProcessMicrograph(
		[]*fourier.HalfPlane{obs},
		[]*fourier.HalfPlane{pred},
		failingCTF{},
	)
	if err == nil {
		t.Fatal("expected error from failing CTF evaluator")
	}
}

func TestProcessMicrographLengthMismatch(t *testing.T) {
	obs, pred := decayPair(32, 0.05, 0.8)

	rf := NewRefiner(DefaultConfig(), 32, 1.0, nil)
	_, err := rf.ProcessMicrograph(
		[]*fourier.HalfPlane{obs, obs},
		[]*fourier.HalfPlane{pred},
		nil,
	)
	if err == nil {
		t.Fatal("expected error for mismatched particle counts")
	}
}
