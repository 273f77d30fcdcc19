package search

import (
	"math/rand"
	"sort"

	"github.com/emtools/motionfit/internal/motion"
)

// SampleMicrographs shuffles the full micrograph list with a local seeded
// generator and greedily accepts micrographs until minParticles picked
// particles are covered or the list is exhausted. Micrographs with fewer
// than two particles are never accepted: trajectory fitting needs at least
// two observations. Returns the ordered selection and its particle total.
// The selection is deterministic for a fixed seed and input list.
func SampleMicrographs(all []motion.Micrograph, minParticles int, seed int64) ([]motion.Micrograph, int) {
	rng := rand.New(rand.NewSource(seed))

	keys := make([]float64, len(all))
	for i := range keys {
		keys[i] = rng.Float64()
	}

	order := make([]int, len(all))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]] < keys[order[b]]
	})

	var selected []motion.Micrograph
	total := 0

	for _, m := range order {
		mg := all[m]
		if mg.Particles < 2 {
			continue
		}

		selected = append(selected, mg)
		total += mg.Particles

		if total >= minParticles {
			break
		}
	}

	return selected, total
}
