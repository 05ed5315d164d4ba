package flowgen

import (
	"math"

	"channelflow/internal/hydraulics"
)

const (
	DefaultPrecision = 4
	MaxPrecision     = 12
	// MaxSamples bounds a single run so a tiny timestep cannot exhaust memory.
	MaxSamples = 10_000_000

	// TrowelFinishedConcrete is Manning's n for trowel finished concrete.
	TrowelFinishedConcrete = 0.013
)

// Params is the immutable input of one simulation run. Rule names select the
// swappable formulas; empty names select the defaults.
type Params struct {
	ChannelWidth            float64 `json:"channel_width" yaml:"channel_width"`
	BankAngleFromHorizontal float64 `json:"bank_angle_from_horizontal" yaml:"bank_angle_from_horizontal"`
	ManningCoefficient      float64 `json:"manning_coefficient" yaml:"manning_coefficient"`
	ChannelSlope            float64 `json:"channel_slope" yaml:"channel_slope"`
	Duration                float64 `json:"duration" yaml:"duration"`
	Timestep                float64 `json:"timestep" yaml:"timestep"`
	NumCycles               float64 `json:"num_cycles" yaml:"num_cycles"`
	InitialDepth            float64 `json:"initial_depth" yaml:"initial_depth"`
	InitialSpeed            float64 `json:"initial_speed" yaml:"initial_speed"`

	Forcing      string `json:"forcing,omitempty" yaml:"forcing,omitempty"`
	AreaFormula  string `json:"area_formula,omitempty" yaml:"area_formula,omitempty"`
	DepthRule    string `json:"depth_rule,omitempty" yaml:"depth_rule,omitempty"`
	SpeedModel   string `json:"speed_model,omitempty" yaml:"speed_model,omitempty"`
	NoiseProfile string `json:"noise_profile,omitempty" yaml:"noise_profile,omitempty"`
	Precision    int    `json:"precision,omitempty" yaml:"precision,omitempty"`
}

// WithDefaults fills unset rule names and precision. A zero precision selects
// DefaultPrecision; negative values are left for Validate to reject.
//
// Sine forcing swings the baseline rule down to zero depth at each trough, so
// with Manning speed an unset depth rule resolves to stacked instead.
func (p Params) WithDefaults() Params {
	if p.Forcing == "" {
		p.Forcing = ForcingHarmonic
	}
	if p.AreaFormula == "" {
		p.AreaFormula = hydraulics.AreaCubic
	}
	if p.SpeedModel == "" {
		p.SpeedModel = SpeedManning
	}
	if p.DepthRule == "" {
		p.DepthRule = DepthBaseline
		if p.Forcing == ForcingSine && p.SpeedModel == SpeedManning {
			p.DepthRule = DepthStacked
		}
	}
	if p.NoiseProfile == "" {
		p.NoiseProfile = NoisePositiveBias
	}
	if p.Precision == 0 {
		p.Precision = DefaultPrecision
	}
	return p
}

// StepCount is floor(duration/timestep) + 1. A small tolerance keeps ratios
// such as 1.0/0.1 from losing their final sample to representation error.
func (p Params) StepCount() int {
	return int(math.Floor(p.Duration/p.Timestep+1e-9)) + 1
}

// PhaseStep is the forcing phase advance per timestep, chosen so the forcing
// signal completes NumCycles periods over the run.
func (p Params) PhaseStep() float64 {
	return 2 * math.Pi / (p.Duration / p.Timestep) * p.NumCycles
}

// Channel builds the cross-section described by the parameters.
func (p Params) Channel() (hydraulics.Channel, error) {
	area, err := hydraulics.AreaFormula(p.AreaFormula)
	if err != nil {
		return hydraulics.Channel{}, err
	}
	return hydraulics.NewChannel(p.ChannelWidth, p.BankAngleFromHorizontal, area), nil
}

// Validate rejects parameter combinations that cannot produce a series.
func (p Params) Validate() error {
	numeric := []struct {
		name  string
		value float64
	}{
		{"channel_width", p.ChannelWidth},
		{"bank_angle_from_horizontal", p.BankAngleFromHorizontal},
		{"manning_coefficient", p.ManningCoefficient},
		{"channel_slope", p.ChannelSlope},
		{"duration", p.Duration},
		{"timestep", p.Timestep},
		{"num_cycles", p.NumCycles},
		{"initial_depth", p.InitialDepth},
		{"initial_speed", p.InitialSpeed},
	}
	for _, f := range numeric {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return configErrorf(f.name, f.value, "must be finite")
		}
	}

	switch {
	case p.Timestep <= 0:
		return configErrorf("timestep", p.Timestep, "must be > 0")
	case p.Duration < p.Timestep:
		return configErrorf("duration", p.Duration, "must be >= timestep %g", p.Timestep)
	case p.ChannelSlope <= 0:
		return configErrorf("channel_slope", p.ChannelSlope, "must be > 0")
	case p.ManningCoefficient <= 0:
		return configErrorf("manning_coefficient", p.ManningCoefficient, "must be > 0")
	case p.InitialDepth <= 0:
		return configErrorf("initial_depth", p.InitialDepth, "must be > 0")
	case p.ChannelWidth < 0:
		return configErrorf("channel_width", p.ChannelWidth, "must be >= 0")
	case p.BankAngleFromHorizontal < 0 || p.BankAngleFromHorizontal > 90:
		return configErrorf("bank_angle_from_horizontal", p.BankAngleFromHorizontal, "must be within [0, 90] degrees")
	case p.Precision < 0 || p.Precision > MaxPrecision:
		return configErrorf("precision", float64(p.Precision), "must be within [0, %d] (0 selects %d)", MaxPrecision, DefaultPrecision)
	}

	if ratio := p.Duration / p.Timestep; math.IsInf(ratio, 0) || ratio >= MaxSamples {
		return configErrorf("timestep", p.Timestep, "yields more than %d samples over duration %g", MaxSamples, p.Duration)
	}

	if _, err := Forcing(p.Forcing); err != nil {
		return &ConfigError{Field: "forcing", Reason: err.Error()}
	}
	if _, err := Depth(p.DepthRule); err != nil {
		return &ConfigError{Field: "depth_rule", Reason: err.Error()}
	}
	if _, err := Noise(p.NoiseProfile); err != nil {
		return &ConfigError{Field: "noise_profile", Reason: err.Error()}
	}
	if err := checkSpeedModel(p.SpeedModel); err != nil {
		return &ConfigError{Field: "speed_model", Reason: err.Error()}
	}
	ch, err := p.Channel()
	if err != nil {
		return &ConfigError{Field: "area_formula", Reason: err.Error()}
	}
	if perimeter := ch.WettedPerimeter(p.InitialDepth); perimeter == 0 {
		return configErrorf("wetted_perimeter", perimeter, "must be non-zero at initial depth")
	}
	return nil
}
