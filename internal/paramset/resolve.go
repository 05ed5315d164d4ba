package paramset

import (
	"fmt"
	"math"

	"channelflow/internal/flowgen"
)

// mergeRaw overlays b onto a. Non-nil pointers and non-empty strings in b win.
func mergeRaw(a, b RawParamSet) RawParamSet {
	out := a
	if b.Notes != "" {
		out.Notes = b.Notes
	}
	overrideFloat(&out.InitialDepth, b.InitialDepth)
	overrideFloat(&out.InitialSpeed, b.InitialSpeed)
	overrideFloat(&out.ChannelWidth, b.ChannelWidth)
	overrideFloat(&out.BankAngleFromHorizontal, b.BankAngleFromHorizontal)
	overrideFloat(&out.ManningCoefficient, b.ManningCoefficient)
	overrideFloat(&out.Duration, b.Duration)
	overrideFloat(&out.Timestep, b.Timestep)
	overrideFloat(&out.NumCycles, b.NumCycles)
	overrideFloat(&out.ChannelSlope, b.ChannelSlope)
	overrideFloat(&out.ChannelLength, b.ChannelLength)
	overrideFloat(&out.ChannelDescent, b.ChannelDescent)
	overrideFloat(&out.ChannelAngle, b.ChannelAngle)
	overrideString(&out.Forcing, b.Forcing)
	overrideString(&out.AreaFormula, b.AreaFormula)
	overrideString(&out.DepthRule, b.DepthRule)
	overrideString(&out.SpeedModel, b.SpeedModel)
	overrideString(&out.NoiseProfile, b.NoiseProfile)
	if b.Precision != nil {
		v := *b.Precision
		out.Precision = &v
	}
	return out
}

func overrideFloat(dst **float64, src *float64) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

func overrideString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// Slope resolves the longitudinal bed slope.
func (r RawParamSet) Slope() (float64, error) {
	switch {
	case r.ChannelSlope != nil:
		return *r.ChannelSlope, nil
	case r.ChannelDescent != nil && r.ChannelLength != nil:
		if *r.ChannelLength == 0 {
			return 0, fmt.Errorf("channel_length must be non-zero when channel_descent is set")
		}
		return *r.ChannelDescent / *r.ChannelLength, nil
	case r.ChannelAngle != nil:
		return math.Tan(*r.ChannelAngle * math.Pi / 180), nil
	default:
		return 0, fmt.Errorf("no channel slope: set channel_slope, channel_descent with channel_length, or channel_angle")
	}
}

// Params converts the merged set into generator parameters. Defaults for
// unnamed options are applied; validation is left to the caller.
func (r RawParamSet) Params() (flowgen.Params, error) {
	slope, err := r.Slope()
	if err != nil {
		return flowgen.Params{}, err
	}
	p := flowgen.Params{
		ChannelWidth:            deref(r.ChannelWidth),
		BankAngleFromHorizontal: deref(r.BankAngleFromHorizontal),
		ManningCoefficient:      deref(r.ManningCoefficient),
		ChannelSlope:            slope,
		Duration:                deref(r.Duration),
		Timestep:                deref(r.Timestep),
		NumCycles:               deref(r.NumCycles),
		InitialDepth:            deref(r.InitialDepth),
		InitialSpeed:            deref(r.InitialSpeed),
		Forcing:                 r.Forcing,
		AreaFormula:             r.AreaFormula,
		DepthRule:               r.DepthRule,
		SpeedModel:              r.SpeedModel,
		NoiseProfile:            r.NoiseProfile,
	}
	if r.Precision != nil {
		p.Precision = *r.Precision
	}
	return p.WithDefaults(), nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
