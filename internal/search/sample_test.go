package search

import (
	"testing"

	"github.com/emtools/motionfit/internal/motion"
)

func manifest(counts ...int) []motion.Micrograph {
	mgs := make([]motion.Micrograph, len(counts))
	for i, c := range counts {
		mgs[i] = motion.Micrograph{Index: i, Name: "mg", Particles: c}
	}
	return mgs
}

func TestSampleMicrographsDeterministic(t *testing.T) {
	all := manifest(5, 12, 3, 8, 20, 2, 7, 15)

	first, firstTotal := SampleMicrographs(all, 30, 23)
	second, secondTotal := SampleMicrographs(all, 30, 23)

	if firstTotal != secondTotal || len(first) != len(second) {
		t.Fatalf("same seed produced different samples: %v vs %v", first, second)
	}
	for i := range first {
		if first[i].Index != second[i].Index {
			t.Errorf("position %d: index %d vs %d", i, first[i].Index, second[i].Index)
		}
	}
}

func TestSampleMicrographsSeedChangesOrder(t *testing.T) {
	all := manifest(5, 12, 3, 8, 20, 2, 7, 15, 9, 4, 11, 6)

	a, _ := SampleMicrographs(all, 30, 1)
	b, _ := SampleMicrographs(all, 30, 2)

	same := len(a) == len(b)
	if same {
		for i := range a {
			if a[i].Index != b[i].Index {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("different seeds produced identical selections")
	}
}

func TestSampleMicrographsExcludesSparseMicrographs(t *testing.T) {
	all := manifest(1, 0, 1, 5, 1, 3)

	selected, total := SampleMicrographs(all, 100, 23)

	if total != 8 {
		t.Errorf("total = %d, want 8", total)
	}
	for _, mg := range selected {
		if mg.Particles < 2 {
			t.Errorf("micrograph %d with %d particles selected", mg.Index, mg.Particles)
		}
	}
}

func TestSampleMicrographsStopsAtFloor(t *testing.T) {
	all := manifest(10, 10, 10, 10, 10)

	selected, total := SampleMicrographs(all, 25, 23)

	if len(selected) != 3 || total != 30 {
		t.Errorf("got %d micrographs with %d particles, want 3 with 30", len(selected), total)
	}
}

func TestSampleMicrographsExhaustsSmallDataset(t *testing.T) {
	all := manifest(4, 1, 6)

	selected, total := SampleMicrographs(all, 1000, 23)

	if len(selected) != 2 || total != 10 {
		t.Errorf("got %d micrographs with %d particles, want all eligible (2, 10)", len(selected), total)
	}
}

func TestSampleMicrographsEmptyEligible(t *testing.T) {
	selected, total := SampleMicrographs(manifest(1, 0, 1), 10, 23)
	if len(selected) != 0 || total != 0 {
		t.Errorf("got %v (total %d), want empty selection", selected, total)
	}
}
