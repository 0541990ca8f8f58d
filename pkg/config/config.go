// Package config decodes and validates the per-run configuration record.
// Unknown keys and out-of-range values are rejected at the boundary, before
// any compute happens, following the teacher's own
// fail-fast-before-invoking-the-solver posture (toy-spice validates the
// netlist and node maps before ever touching the matrix solver).
package config

import (
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simnibs/ti-orchestrator/pkg/tierr"
)

type ConductivityProfile string

const (
	ConductivityScalar      ConductivityProfile = "scalar"
	ConductivityAnisotropic ConductivityProfile = "anisotropic"
)

type ElectrodeShape string

const (
	ElectrodeRect    ElectrodeShape = "rect"
	ElectrodeEllipse ElectrodeShape = "ellipse"
)

type Goal string

const (
	GoalMean      Goal = "mean"
	GoalMedian    Goal = "median"
	GoalP99       Goal = "p99"
	GoalFocality  Goal = "focality"
	GoalRatio     Goal = "ratio"
)

type CoordinateSpace string

const (
	SpaceSubject CoordinateSpace = "subject"
	SpaceMNI     CoordinateSpace = "MNI"
)

// OptimizerSettings is the control set for flex-search's derivative-free
// global optimizer.
type OptimizerSettings struct {
	PopulationSize  int     `yaml:"population_size"`
	MaxIterations   int     `yaml:"max_iterations"`
	Tolerance       float64 `yaml:"tolerance"`
	MutationScale   float64 `yaml:"mutation_scale"`
	RecombinationRate float64 `yaml:"recombination_rate"`
	Seed            *uint64 `yaml:"seed"` // nil => nondeterministic
	LocalPolish     bool    `yaml:"local_polish"`
}

func DefaultOptimizerSettings() OptimizerSettings {
	return OptimizerSettings{
		PopulationSize:    32,
		MaxIterations:     100,
		Tolerance:         1e-6,
		MutationScale:     0.3,
		RecombinationRate: 0.7,
		LocalPolish:       true,
	}
}

// Config is the full per-run configuration record.
type Config struct {
	ConductivityProfile ConductivityProfile `yaml:"conductivity_profile"`
	Intensities         []float64           `yaml:"intensities"` // mA, per channel

	ElectrodeShape      ElectrodeShape `yaml:"electrode_shape"`
	ElectrodeDimensions [2]float64     `yaml:"electrode_dimensions"` // mm, mm
	ElectrodeThickness  float64        `yaml:"electrode_thickness"`  // mm

	EEGNet string `yaml:"eeg_net"`

	Goal  Goal `yaml:"goal"`
	TopK  int  `yaml:"top_k"`

	CurrentStep  float64 `yaml:"current_step"`
	CurrentTotal float64 `yaml:"current_total"`

	Optimizer OptimizerSettings `yaml:"optimizer_settings"`

	CoordinateSpace CoordinateSpace `yaml:"coordinate_space"`

	Overwrite bool `yaml:"overwrite"`

	// knownKeys is not populated by Load: unknown top-level keys are
	// rejected by Load itself (against allowedFields) before decoding.
	knownKeys map[string]struct{} `yaml:"-"`
}

func Default() Config {
	return Config{
		ConductivityProfile: ConductivityScalar,
		Intensities:         []float64{2.0, 2.0},
		ElectrodeShape:      ElectrodeRect,
		ElectrodeDimensions: [2]float64{2.0, 2.0},
		ElectrodeThickness:  4.0,
		EEGNet:              "EEG10-20_Okamoto_2004.csv",
		Goal:                GoalMean,
		TopK:                10,
		CurrentStep:         0.5,
		CurrentTotal:        2.0,
		Optimizer:           DefaultOptimizerSettings(),
		CoordinateSpace:     SpaceSubject,
		Overwrite:           false,
	}
}

var allowedFields = map[string]struct{}{
	"conductivity_profile": {}, "intensities": {},
	"electrode_shape": {}, "electrode_dimensions": {}, "electrode_thickness": {},
	"eeg_net": {}, "goal": {}, "top_k": {},
	"current_step": {}, "current_total": {}, "optimizer_settings": {},
	"coordinate_space": {}, "overwrite": {},
}

// Load decodes YAML bytes into a Config seeded with defaults, then validates.
// Unknown top-level keys produce InvalidConfig.
func Load(data []byte) (Config, error) {
	cfg := Default()

	// First pass: raw map, to catch unknown keys (yaml.v3 doesn't support
	// strict-unknown-field rejection for nested anonymous decode targets
	// the way we want it reported, so we do it explicitly).
	raw := map[string]yaml.Node{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, tierr.Wrap(tierr.InvalidConfig, "", "parsing configuration YAML", err)
	}
	var unknown []string
	for k := range raw {
		if _, ok := allowedFields[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		return Config{}, tierr.New(tierr.InvalidConfig, strings.Join(unknown, ","),
			"unknown configuration option(s)")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, tierr.Wrap(tierr.InvalidConfig, "", "decoding configuration YAML", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural and range constraints, returning an
// InvalidConfig tierr.Error on the first violation.
func (c Config) Validate() error {
	switch c.ConductivityProfile {
	case ConductivityScalar, ConductivityAnisotropic:
	default:
		return tierr.New(tierr.InvalidConfig, string(c.ConductivityProfile), "unknown conductivity_profile")
	}

	for _, i := range c.Intensities {
		if !(i > 0) || math.IsInf(i, 0) {
			return tierr.New(tierr.InvalidConfig, fmt.Sprintf("%g", i), "intensities must be positive finite mA values")
		}
	}

	switch c.ElectrodeShape {
	case ElectrodeRect, ElectrodeEllipse:
	default:
		return tierr.New(tierr.InvalidConfig, string(c.ElectrodeShape), "unknown electrode_shape")
	}
	if c.ElectrodeDimensions[0] <= 0 || c.ElectrodeDimensions[1] <= 0 {
		return tierr.New(tierr.InvalidConfig, "electrode_dimensions", "electrode dimensions must be positive")
	}
	if c.ElectrodeThickness <= 0 {
		return tierr.New(tierr.InvalidConfig, "electrode_thickness", "electrode thickness must be positive")
	}
	if c.EEGNet == "" {
		return tierr.New(tierr.InvalidConfig, "eeg_net", "eeg_net must be set")
	}

	switch c.Goal {
	case GoalMean, GoalMedian, GoalP99, GoalFocality, GoalRatio:
	default:
		return tierr.New(tierr.InvalidConfig, string(c.Goal), "unknown goal")
	}
	if c.TopK <= 0 {
		return tierr.New(tierr.InvalidConfig, "top_k", "top_k must be positive")
	}
	if c.CurrentTotal <= 0 {
		return tierr.New(tierr.InvalidConfig, "current_total", "current_total must be positive")
	}
	if c.CurrentStep <= 0 {
		return tierr.New(tierr.InvalidConfig, "current_step", "current_step must be positive")
	}

	if c.Optimizer.PopulationSize <= 0 {
		return tierr.New(tierr.InvalidConfig, "optimizer_settings.population_size", "must be positive")
	}
	if c.Optimizer.MaxIterations < 0 {
		return tierr.New(tierr.InvalidConfig, "optimizer_settings.max_iterations", "must be non-negative")
	}

	switch c.CoordinateSpace {
	case SpaceSubject, SpaceMNI:
	default:
		return tierr.New(tierr.InvalidConfig, string(c.CoordinateSpace), "unknown coordinate_space")
	}

	return nil
}
