// Package config loads the YAML run configuration: the micrograph manifest
// plus optional estimation and B-factor settings that override the command
// line defaults.
package config

// Config is the top-level run configuration.
type Config struct {
	LogLevel    string       `yaml:"log_level,omitempty"`
	Threads     int          `yaml:"threads,omitempty"`
	Micrographs []Micrograph `yaml:"micrographs"`
	Estimation  *Estimation  `yaml:"estimation,omitempty"`
	BFactor     *BFactor     `yaml:"bfactor,omitempty"`
}

// Micrograph is one entry of the micrograph manifest.
type Micrograph struct {
	Name      string `yaml:"name"`
	Particles int    `yaml:"particles"`
}

// Estimation mirrors the hyperparameter-search options. Zero values mean
// "not set here"; the command line defaults apply.
type Estimation struct {
	Params2 bool `yaml:"params2,omitempty"`
	Params3 bool `yaml:"params3,omitempty"`

	KCut      float64 `yaml:"k_cut,omitempty"`
	KCutAngst float64 `yaml:"k_cut_a,omitempty"`
	KEval     float64 `yaml:"k_eval,omitempty"`
	KEvalA    float64 `yaml:"k_eval_a,omitempty"`

	MinParticles int `yaml:"min_p,omitempty"`

	SVel0 float64 `yaml:"s_vel_0,omitempty"`
	SDiv0 float64 `yaml:"s_div_0,omitempty"`
	SAcc0 float64 `yaml:"s_acc_0,omitempty"`

	InStep   float64 `yaml:"in_step,omitempty"`
	Conv     float64 `yaml:"conv,omitempty"`
	MaxIters int     `yaml:"par_iters,omitempty"`
	MotRange int     `yaml:"mot_range,omitempty"`
	Seed     int64   `yaml:"seed,omitempty"`

	Optimizer string `yaml:"optimizer,omitempty"` // nelder-mead or mayfly
	PopSize   int    `yaml:"pop,omitempty"`
}

// BFactor mirrors the decay-fit options.
type BFactor struct {
	PerMicrograph bool    `yaml:"per_micrograph,omitempty"`
	MinB          float64 `yaml:"min_b,omitempty"`
	MaxB          float64 `yaml:"max_b,omitempty"`
	MinScale      float64 `yaml:"min_scale,omitempty"`
	Steps         int     `yaml:"steps,omitempty"`
	Depth         int     `yaml:"depth,omitempty"`
	Profiles      string  `yaml:"profiles,omitempty"`
	Out           string  `yaml:"out,omitempty"`
}
