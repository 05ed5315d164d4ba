package flowgen

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelflow/internal/hydraulics"
)

func referenceParams() Params {
	return Params{
		ChannelWidth:            20,
		BankAngleFromHorizontal: 25,
		ManningCoefficient:      TrowelFinishedConcrete,
		ChannelSlope:            0.00866,
		Duration:                1.0,
		Timestep:                0.5,
		NumCycles:               0,
		InitialDepth:            1.0,
		InitialSpeed:            1.0,
	}
}

func TestGenerateReferenceScenario(t *testing.T) {
	samples, err := Generate(referenceParams(), 7)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	for i, s := range samples {
		assert.InDelta(t, float64(i)*0.5, s.Time, 1e-9)
		assert.GreaterOrEqual(t, s.Width, 20.0)
		assert.Greater(t, s.Speed, 0.0)
		assert.False(t, math.IsNaN(s.Speed) || math.IsInf(s.Speed, 0))
		assert.Equal(t, 25.0, s.BankAngleFromHorizontal)
	}
}

func TestGenerateSampleCountAndTimes(t *testing.T) {
	cases := []struct {
		duration, timestep float64
		want               int
	}{
		{100, 0.1, 1001},
		{1, 0.3, 4},
		{1, 1, 2},
		{10, 2.5, 5},
	}
	for _, tc := range cases {
		p := referenceParams()
		p.Duration = tc.duration
		p.Timestep = tc.timestep
		p.NumCycles = 1

		samples, err := Generate(p, 1)
		require.NoError(t, err)
		require.Len(t, samples, tc.want, "duration=%v timestep=%v", tc.duration, tc.timestep)
		for i, s := range samples {
			assert.InDelta(t, float64(i)*tc.timestep, s.Time, 1e-4)
			if i > 0 {
				assert.GreaterOrEqual(t, s.Time, samples[i-1].Time)
			}
		}
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	p := referenceParams()
	p.Duration = 50
	p.Timestep = 0.1
	p.NumCycles = 2

	a, err := Generate(p, 42)
	require.NoError(t, err)
	b, err := Generate(p, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Generate(p, 43)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestZeroCyclesKeepsForcingConstant(t *testing.T) {
	p := referenceParams()
	p.Duration = 10
	p.Timestep = 0.1
	p.NoiseProfile = NoiseNone

	samples, err := Generate(p, 3)
	require.NoError(t, err)
	for _, s := range samples[1:] {
		assert.Equal(t, samples[0].Depth, s.Depth)
		assert.Equal(t, samples[0].Width, s.Width)
		assert.Equal(t, samples[0].Speed, s.Speed)
	}

	// With noise the depth only moves inside the depth noise band around
	// baseline * (1 + Harmonic(0)).
	p.NoiseProfile = NoisePositiveBias
	samples, err = Generate(p, 3)
	require.NoError(t, err)
	for _, s := range samples {
		assert.GreaterOrEqual(t, s.Depth, 1.5-0.001-1e-9)
		assert.LessOrEqual(t, s.Depth, 1.5+0.01+1e-9)
	}
}

func TestGenerateWidthNeverBelowBedWidth(t *testing.T) {
	p := referenceParams()
	p.Duration = 100
	p.Timestep = 0.1
	p.NumCycles = 3

	samples, err := Generate(p, 11)
	require.NoError(t, err)
	for _, s := range samples {
		require.GreaterOrEqual(t, s.Depth, 0.0)
		require.GreaterOrEqual(t, s.Width, p.ChannelWidth)
	}
}

func TestGenerateRoundsToPrecision(t *testing.T) {
	p := referenceParams()
	p.Duration = 5
	p.Timestep = 0.1
	p.NumCycles = 1

	samples, err := Generate(p, 5)
	require.NoError(t, err)
	for _, s := range samples {
		for _, v := range []float64{s.Time, s.Depth, s.Width, s.Speed} {
			scaled := v * 1e4
			assert.InDelta(t, math.Round(scaled), scaled, 1e-6, "value %v has more than 4 decimals", v)
		}
	}

	p.Precision = 2
	samples, err = Generate(p, 5)
	require.NoError(t, err)
	for _, s := range samples {
		scaled := s.Speed * 100
		assert.InDelta(t, math.Round(scaled), scaled, 1e-6)
	}
}

func TestGenerateSpeedFollowsManning(t *testing.T) {
	p := referenceParams()
	p.NoiseProfile = NoiseNone

	samples, err := Generate(p, 1)
	require.NoError(t, err)

	ch := hydraulics.NewChannel(20, 25, hydraulics.CubicArea)
	want, err := ch.Speed(samples[0].Depth, p.ChannelSlope, p.ManningCoefficient)
	require.NoError(t, err)
	assert.InDelta(t, want, samples[0].Speed, 1e-4)
	assert.InDelta(t, ch.SurfaceWidth(samples[0].Depth), samples[0].Width, 1e-4)
}

func TestGenerateSinusoidSpeedModel(t *testing.T) {
	p := referenceParams()
	p.Duration = 4
	p.Timestep = 1
	p.NumCycles = 1
	p.InitialSpeed = 2.5
	p.Forcing = ForcingSine
	p.SpeedModel = SpeedSinusoid
	p.NoiseProfile = NoiseNone

	samples, err := Generate(p, 1)
	require.NoError(t, err)
	require.Len(t, samples, 5)
	assert.InDelta(t, 0.0, samples[0].Speed, 1e-9)
	assert.InDelta(t, 2.5, samples[1].Speed, 1e-9)
	assert.InDelta(t, -2.5, samples[3].Speed, 1e-9)
	assert.InDelta(t, 2.0, samples[1].Depth, 1e-9)
}

func TestGenerateStackedDepthRule(t *testing.T) {
	p := referenceParams()
	p.Forcing = ForcingSine
	p.DepthRule = DepthStacked
	p.NoiseProfile = NoiseNone

	samples, err := Generate(p, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, samples[0].Depth, 1e-9)
}

func TestNewRejectsInvalidParams(t *testing.T) {
	mutate := map[string]func(*Params){
		"channel_slope":              func(p *Params) { p.ChannelSlope = 0 },
		"timestep":                   func(p *Params) { p.Timestep = 0 },
		"duration":                   func(p *Params) { p.Duration = 0.25 },
		"manning_coefficient":        func(p *Params) { p.ManningCoefficient = 0 },
		"initial_depth":              func(p *Params) { p.InitialDepth = -1 },
		"bank_angle_from_horizontal": func(p *Params) { p.BankAngleFromHorizontal = 95 },
		"forcing":                    func(p *Params) { p.Forcing = "square" },
		"noise_profile":              func(p *Params) { p.NoiseProfile = "pink" },
		"speed_model":                func(p *Params) { p.SpeedModel = "chezy" },
		"area_formula":               func(p *Params) { p.AreaFormula = "circle" },
		"num_cycles":                 func(p *Params) { p.NumCycles = math.NaN() },
		"precision":                  func(p *Params) { p.Precision = -3 },
	}
	for field, fn := range mutate {
		p := referenceParams()
		fn(&p)

		g, err := New(p)
		require.Error(t, err, field)
		assert.Nil(t, g)
		assert.ErrorIs(t, err, ErrInvalidConfig, field)

		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr), field)
		assert.Equal(t, field, cfgErr.Field)
	}
}

func TestGenerateIsSingleUse(t *testing.T) {
	g, err := New(referenceParams(), WithRandomSource(NewSeededSource(1)))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, g.State())
	assert.Equal(t, 3, g.Len())

	_, err = g.Generate()
	require.NoError(t, err)
	assert.Equal(t, StateComplete, g.State())

	samples, err := g.Generate()
	assert.ErrorIs(t, err, ErrAlreadyGenerated)
	assert.Nil(t, samples)
}

func TestGenerateAbortsOnNegativeRadius(t *testing.T) {
	p := referenceParams()
	p.Forcing = ForcingSine
	p.DepthRule = DepthBaseline
	sink := NoiseProfile{
		Name:  "sink",
		Depth: NoiseRange{Low: -20000, High: -20000, Scale: 1e4},
	}

	g, err := New(p, WithRandomSource(NewSeededSource(1)), WithNoiseProfile(sink))
	require.NoError(t, err)

	samples, err := g.Generate()
	assert.Nil(t, samples)
	require.ErrorIs(t, err, ErrArithmetic)
	require.ErrorIs(t, err, hydraulics.ErrNegativeRadius)

	var arith *ArithmeticError
	require.True(t, errors.As(err, &arith))
	assert.Equal(t, 0, arith.Step)
	assert.Equal(t, "speed", arith.Quantity)
	assert.InDelta(t, -1.0, arith.Depth, 1e-9)
}

func TestGenerateReportsProgress(t *testing.T) {
	p := referenceParams()
	p.Duration = 2
	p.Timestep = 0.1

	var calls, last, total int
	g, err := New(p, WithProgress(func(done, n int) {
		calls++
		last = done
		total = n
	}))
	require.NoError(t, err)
	samples, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, len(samples), calls)
	assert.Equal(t, total, last)
	assert.Equal(t, 21, total)
}
