package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/emtools/motionfit/internal/bfactor"
)

// FitTable is the persisted result of one micrograph's B-factor fit: one
// (B-factor, scale) row per particle, plus the settings needed to
// interpret them. This is the durable output the downstream weighting
// steps consume.
type FitTable struct {
	// RunID identifies the estimation run this table belongs to.
	RunID string `json:"runId"`

	// Micrograph is the source micrograph name (without directories).
	Micrograph string `json:"micrograph"`

	// PixelSize and BoxSize convert the per-pixel decay back to physical
	// units.
	PixelSize float64 `json:"pixelSize"`
	BoxSize   int     `json:"boxSize"`

	// PerMicrograph marks pooled fits, where every row carries the same
	// (B-factor, scale) pair.
	PerMicrograph bool `json:"perMicrograph,omitempty"`

	CreatedAt time.Time `json:"createdAt"`

	Fits []bfactor.ParticleFit `json:"fits"`
}

// ToInfo extracts the listing metadata from a table.
func (t *FitTable) ToInfo() FitTableInfo {
	return FitTableInfo{
		Micrograph: t.Micrograph,
		Particles:  len(t.Fits),
		CreatedAt:  t.CreatedAt,
	}
}

// FitTableInfo is the listing metadata for one saved table.
type FitTableInfo struct {
	Micrograph string    `json:"micrograph"`
	Particles  int       `json:"particles"`
	CreatedAt  time.Time `json:"createdAt"`
	Path       string    `json:"path,omitempty"`
}

// NewRunID returns a fresh unique run identifier.
func NewRunID() string {
	return uuid.New().String()
}
