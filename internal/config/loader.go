package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}

	if cfg.Threads < 0 {
		return fmt.Errorf("threads cannot be negative")
	}

	names := make(map[string]bool)
	for i, mg := range cfg.Micrographs {
		if mg.Name == "" {
			return fmt.Errorf("micrograph %d: name cannot be empty", i)
		}
		if names[mg.Name] {
			return fmt.Errorf("duplicate micrograph name: %s", mg.Name)
		}
		names[mg.Name] = true
		if mg.Particles < 0 {
			return fmt.Errorf("micrograph %s: particles cannot be negative", mg.Name)
		}
	}

	if e := cfg.Estimation; e != nil {
		if e.MinParticles < 0 {
			return fmt.Errorf("estimation: min_p cannot be negative")
		}
		if e.MaxIters < 0 {
			return fmt.Errorf("estimation: par_iters cannot be negative")
		}
		switch e.Optimizer {
		case "", "nelder-mead", "mayfly":
		default:
			return fmt.Errorf("estimation: unknown optimizer %q (must be nelder-mead or mayfly)", e.Optimizer)
		}
	}

	if b := cfg.BFactor; b != nil {
		if b.MaxB != 0 && b.MinB >= b.MaxB {
			return fmt.Errorf("bfactor: min_b must be below max_b")
		}
		if b.Steps < 0 || b.Depth < 0 {
			return fmt.Errorf("bfactor: steps and depth cannot be negative")
		}
	}

	return nil
}
