package paramset

// RawParamSet mirrors one YAML parameter file. Absent fields stay nil and
// inherit from the set underneath during a merge.
type RawParamSet struct {
	Notes string `yaml:"notes,omitempty"`

	InitialDepth            *float64 `yaml:"initial_depth,omitempty"`
	InitialSpeed            *float64 `yaml:"initial_speed,omitempty"`
	ChannelWidth            *float64 `yaml:"channel_width,omitempty"`
	BankAngleFromHorizontal *float64 `yaml:"bank_angle_from_horizontal,omitempty"`
	ManningCoefficient      *float64 `yaml:"manning_coefficient,omitempty"`
	Duration                *float64 `yaml:"duration,omitempty"`
	Timestep                *float64 `yaml:"timestep,omitempty"`
	NumCycles               *float64 `yaml:"num_cycles,omitempty"`

	// Slope is taken from channel_slope when present, otherwise from
	// channel_descent / channel_length, otherwise from tan(channel_angle).
	ChannelSlope   *float64 `yaml:"channel_slope,omitempty"`
	ChannelLength  *float64 `yaml:"channel_length,omitempty"`
	ChannelDescent *float64 `yaml:"channel_descent,omitempty"`
	ChannelAngle   *float64 `yaml:"channel_angle,omitempty"` // degrees

	Forcing      string `yaml:"forcing,omitempty"`
	AreaFormula  string `yaml:"area_formula,omitempty"`
	DepthRule    string `yaml:"depth_rule,omitempty"`
	SpeedModel   string `yaml:"speed_model,omitempty"`
	NoiseProfile string `yaml:"noise_profile,omitempty"`
	Precision    *int   `yaml:"precision,omitempty"`
}
