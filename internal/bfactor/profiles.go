package bfactor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// ParticleProfile is one particle's radially averaged signal statistics,
// produced upstream from the observed and CTF-multiplied predicted spectra.
type ParticleProfile struct {
	Particle int       `json:"particle"`
	Power    []float64 `json:"power"`
	Cross    []float64 `json:"cross"`
}

// MicrographProfiles is the on-disk form of one micrograph's radial
// profiles, as written by the preprocessing pipeline.
type MicrographProfiles struct {
	Micrograph string            `json:"micrograph"`
	PixelSize  float64           `json:"pixel_size"`
	BoxSize    int               `json:"box_size"`
	Particles  []ParticleProfile `json:"particles"`
}

// LoadProfiles reads a per-micrograph profile file.
func LoadProfiles(path string) (*MicrographProfiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	var mp MicrographProfiles
	if err := json.Unmarshal(data, &mp); err != nil {
		return nil, fmt.Errorf("failed to parse profile file %s: %w", path, err)
	}

	if mp.BoxSize <= 0 {
		return nil, fmt.Errorf("profile file %s: box_size must be positive", path)
	}
	if mp.PixelSize <= 0 {
		return nil, fmt.Errorf("profile file %s: pixel_size must be positive", path)
	}

	sh := mp.BoxSize/2 + 1
	for _, p := range mp.Particles {
		if len(p.Power) != sh || len(p.Cross) != sh {
			return nil, fmt.Errorf("profile file %s: particle %d has %d/%d bins, want %d",
				path, p.Particle, len(p.Power), len(p.Cross), sh)
		}
	}

	return &mp, nil
}

// FitProfiles fits decay and scale for every particle profile of one
// micrograph, or one pooled fit for all of them when cfg.PerMicrograph is
// set. Parallelism and unit handling match Refiner.ProcessMicrograph.
func FitProfiles(mp *MicrographProfiles, cfg Config) []ParticleFit {
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}

	pc := len(mp.Particles)
	sh := mp.BoxSize/2 + 1

	as := float64(mp.BoxSize) * mp.PixelSize
	minBpx := cfg.MinB / (as * as)
	maxBpx := cfg.MaxB / (as * as)

	if cfg.PerMicrograph {
		power := make([]float64, sh)
		cross := make([]float64, sh)
		for _, p := range mp.Particles {
			for r := 0; r < sh; r++ {
				power[r] += p.Power[r]
				cross[r] += p.Cross[r]
			}
		}

		fit := FitDecayScale(power, cross, minBpx, maxBpx, cfg.MinScale, cfg.Steps, cfg.Depth)

		fits := make([]ParticleFit, pc)
		for i, p := range mp.Particles {
			fits[i] = ParticleFit{
				Particle: p.Particle,
				BFactor:  as*as*fit.Decay - cfg.MinB,
				Scale:    fit.Scale,
			}
		}
		return fits
	}

	threads := cfg.Threads
	if threads > pc && pc > 0 {
		threads = pc
	}

	fits := make([]ParticleFit, pc)

	var wg sync.WaitGroup
	for t := 0; t < threads; t++ {
		wg.Add(1)
		go func(t int) {
			defer wg.Done()
			for i := t; i < pc; i += threads {
				p := mp.Particles[i]
				fit := FitDecayScale(p.Power, p.Cross, minBpx, maxBpx, cfg.MinScale, cfg.Steps, cfg.Depth)
				fits[i] = ParticleFit{
					Particle: p.Particle,
					BFactor:  as*as*fit.Decay - cfg.MinB,
					Scale:    fit.Scale,
				}
			}
		}(t)
	}
	wg.Wait()

	return fits
}
