package paramset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelflow/internal/flowgen"
)

func writeOverlay(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(body), 0o644))
}

func TestLoadDefaultSet(t *testing.T) {
	params, err := NewLoader("").Load("")
	require.NoError(t, err)

	assert.Equal(t, 1.0, params.InitialDepth)
	assert.Equal(t, 20.0, params.ChannelWidth)
	assert.Equal(t, 100.0, params.Duration)
	assert.Equal(t, 0.1, params.Timestep)
	assert.Equal(t, 25.0, params.BankAngleFromHorizontal)
	assert.Equal(t, 1.0, params.NumCycles)
	assert.Equal(t, flowgen.TrowelFinishedConcrete, params.ManningCoefficient)
	assert.InDelta(t, 0.01, params.ChannelSlope, 1e-15)
	assert.Equal(t, flowgen.ForcingHarmonic, params.Forcing)
	assert.Equal(t, flowgen.DefaultPrecision, params.Precision)
	assert.Equal(t, 1001, params.StepCount())
}

func TestLoadBuiltinNamedSets(t *testing.T) {
	loader := NewLoader("")

	steep, err := loader.Load("steep")
	require.NoError(t, err)
	assert.InDelta(t, 0.05, steep.ChannelSlope, 1e-15)
	assert.Equal(t, 4.0, steep.NumCycles)
	assert.Equal(t, 20.0, steep.ChannelWidth, "unset fields inherit from default")

	sinusoid, err := loader.Load("sinusoid")
	require.NoError(t, err)
	assert.Equal(t, flowgen.SpeedSinusoid, sinusoid.SpeedModel)
	assert.Equal(t, flowgen.ForcingSine, sinusoid.Forcing)
	assert.Equal(t, 1.5, sinusoid.InitialSpeed)

	quiet, err := loader.Load("quiet")
	require.NoError(t, err)
	assert.Equal(t, flowgen.NoiseNone, quiet.NoiseProfile)
}

func TestLoadUnknownSet(t *testing.T) {
	_, err := NewLoader(t.TempDir()).Load("missing")
	require.ErrorIs(t, err, ErrUnknownSet)

	_, err = NewLoader("").Load("../default")
	require.Error(t, err)
}

func TestOverlayDirectory(t *testing.T) {
	dir := t.TempDir()
	writeOverlay(t, dir, "default", "channel_width: 30\n")
	writeOverlay(t, dir, "narrow", "channel_width: 5\nchannel_slope: 0.002\n")
	writeOverlay(t, dir, "steep", "num_cycles: 8\n")

	loader := NewLoader(dir)

	def, err := loader.Load(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, 30.0, def.ChannelWidth)

	narrow, err := loader.Load("narrow")
	require.NoError(t, err)
	assert.Equal(t, 5.0, narrow.ChannelWidth)
	assert.Equal(t, 0.002, narrow.ChannelSlope, "explicit slope wins over descent/length")

	steep, err := loader.Load("steep")
	require.NoError(t, err)
	assert.Equal(t, 8.0, steep.NumCycles)
	assert.Equal(t, 30.0, steep.ChannelWidth)
	assert.InDelta(t, 0.05, steep.ChannelSlope, 1e-15)

	names, err := loader.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "narrow", "quiet", "sinusoid", "steep"}, names)
}

func TestOverlayRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	writeOverlay(t, dir, "typo", "chanel_width: 5\n")

	_, err := NewLoader(dir).Load("typo")
	require.Error(t, err)
}

func TestOverlayInvalidParamsFailValidation(t *testing.T) {
	dir := t.TempDir()
	writeOverlay(t, dir, "flat", "channel_slope: 0\n")

	_, err := NewLoader(dir).Load("flat")
	require.ErrorIs(t, err, flowgen.ErrInvalidConfig)

	var cfgErr *flowgen.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "channel_slope", cfgErr.Field)
}

func TestInvalidateRereadsOverlay(t *testing.T) {
	dir := t.TempDir()
	writeOverlay(t, dir, "wide", "channel_width: 40\n")
	loader := NewLoader(dir)

	first, err := loader.Load("wide")
	require.NoError(t, err)
	assert.Equal(t, 40.0, first.ChannelWidth)

	writeOverlay(t, dir, "wide", "channel_width: 50\n")
	cached, err := loader.Load("wide")
	require.NoError(t, err)
	assert.Equal(t, 40.0, cached.ChannelWidth)

	loader.Invalidate()
	reread, err := loader.Load("wide")
	require.NoError(t, err)
	assert.Equal(t, 50.0, reread.ChannelWidth)
}

func TestSlopeResolution(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	slope, err := RawParamSet{ChannelSlope: f(0.02), ChannelDescent: f(1), ChannelLength: f(10)}.Slope()
	require.NoError(t, err)
	assert.Equal(t, 0.02, slope)

	slope, err = RawParamSet{ChannelDescent: f(1), ChannelLength: f(10), ChannelAngle: f(45)}.Slope()
	require.NoError(t, err)
	assert.InDelta(t, 0.1, slope, 1e-15)

	slope, err = RawParamSet{ChannelAngle: f(0.5)}.Slope()
	require.NoError(t, err)
	assert.InDelta(t, math.Tan(0.5*math.Pi/180), slope, 1e-15)

	_, err = RawParamSet{ChannelDescent: f(1), ChannelLength: f(0)}.Slope()
	require.Error(t, err)

	_, err = RawParamSet{}.Slope()
	require.Error(t, err)
}

func TestMergeRawCopiesPointers(t *testing.T) {
	width := 12.0
	merged := mergeRaw(RawParamSet{}, RawParamSet{ChannelWidth: &width, Forcing: "sine"})
	width = 99

	require.NotNil(t, merged.ChannelWidth)
	assert.Equal(t, 12.0, *merged.ChannelWidth)
	assert.Equal(t, "sine", merged.Forcing)
}

func TestLoadWithOverrides(t *testing.T) {
	duration := 2.0
	slope := 0.004
	params, err := NewLoader("").LoadWith("steep", RawParamSet{
		Duration:     &duration,
		ChannelSlope: &slope,
		NoiseProfile: flowgen.NoiseSymmetric,
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, params.Duration)
	assert.Equal(t, 0.004, params.ChannelSlope)
	assert.Equal(t, flowgen.NoiseSymmetric, params.NoiseProfile)
	assert.Equal(t, 4.0, params.NumCycles)
	assert.Equal(t, 21, params.StepCount())

	zero := 0.0
	_, err = NewLoader("").LoadWith("", RawParamSet{Timestep: &zero})
	require.ErrorIs(t, err, flowgen.ErrInvalidConfig)
}
