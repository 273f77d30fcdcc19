package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `
log_level: debug
threads: 4
micrographs:
  - name: mg001
    particles: 120
  - name: mg002
    particles: 85
estimation:
  params3: true
  k_cut_a: 20
  min_p: 500
  s_vel_0: 0.8
  optimizer: mayfly
  pop: 40
bfactor:
  per_micrograph: true
  min_b: -30
  max_b: 300
  min_scale: 0.2
`

func TestParseFullConfig(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.LogLevel != "debug" || cfg.Threads != 4 {
		t.Errorf("top level: %+v", cfg)
	}
	if len(cfg.Micrographs) != 2 || cfg.Micrographs[1].Particles != 85 {
		t.Errorf("micrographs: %+v", cfg.Micrographs)
	}

	e := cfg.Estimation
	if e == nil {
		t.Fatal("estimation section missing")
	}
	if !e.Params3 || e.KCutAngst != 20 || e.MinParticles != 500 || e.SVel0 != 0.8 {
		t.Errorf("estimation: %+v", e)
	}
	if e.Optimizer != "mayfly" || e.PopSize != 40 {
		t.Errorf("optimizer settings: %+v", e)
	}

	b := cfg.BFactor
	if b == nil {
		t.Fatal("bfactor section missing")
	}
	if !b.PerMicrograph || b.MinB != -30 || b.MaxB != 300 || b.MinScale != 0.2 {
		t.Errorf("bfactor: %+v", b)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte("micrographs:\n  - name: mg001\n    particles: 10\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Estimation != nil || cfg.BFactor != nil {
		t.Errorf("optional sections should be nil: %+v", cfg)
	}
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{"bad yaml", "micrographs: [", "invalid YAML"},
		{"bad log level", "log_level: verbose", "invalid log_level"},
		{"negative threads", "threads: -1", "threads"},
		{"empty micrograph name", "micrographs:\n  - name: \"\"\n    particles: 3\n", "name cannot be empty"},
		{"duplicate micrograph", "micrographs:\n  - name: a\n    particles: 3\n  - name: a\n    particles: 4\n", "duplicate"},
		{"negative particles", "micrographs:\n  - name: a\n    particles: -2\n", "particles"},
		{"unknown optimizer", "estimation:\n  optimizer: annealing\n", "unknown optimizer"},
		{"inverted bfactor range", "bfactor:\n  min_b: 10\n  max_b: 5\n", "min_b"},
	}

	for _, tc := range cases {
		_, err := Parse([]byte(tc.yaml))
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.wantMsg)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Micrographs) != 2 {
		t.Errorf("micrographs: %+v", cfg.Micrographs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
