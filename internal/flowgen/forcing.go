package flowgen

import (
	"fmt"
	"math"
	"sort"
)

const (
	ForcingSine     = "sine"
	ForcingHarmonic = "harmonic"

	DepthBaseline = "baseline"
	DepthStacked  = "stacked"

	SpeedManning  = "manning"
	SpeedSinusoid = "sinusoid"
)

// ForcingFunc maps a phase angle (radians) to the bounded oscillatory signal
// that drives depth.
type ForcingFunc func(phase float64) float64

func Sine(phase float64) float64 {
	return math.Sin(phase)
}

// Harmonic averages the 7x, 3x, 4x and 1x harmonics and lifts the result by 0.5
// so the trace rides above zero like a gauge record.
func Harmonic(phase float64) float64 {
	sum := math.Sin(7*phase) + math.Sin(3*phase) + math.Sin(4*phase) + math.Sin(phase)
	return sum/4 + 0.5
}

var forcingFuncs = map[string]ForcingFunc{
	ForcingSine:     Sine,
	ForcingHarmonic: Harmonic,
}

func Forcing(name string) (ForcingFunc, error) {
	if name == "" {
		name = ForcingHarmonic
	}
	fn, ok := forcingFuncs[name]
	if !ok {
		return nil, fmt.Errorf("unknown forcing function %q (want one of %v)", name, ForcingNames())
	}
	return fn, nil
}

func ForcingNames() []string {
	return sortedKeys(forcingFuncs)
}

// DepthRuleFunc derives depth from the baseline depth, the forcing value and the
// depth noise for one step.
type DepthRuleFunc func(baseline, forcing, noise float64) float64

func baselineDepth(baseline, forcing, noise float64) float64 {
	return baseline + baseline*forcing + noise
}

func stackedDepth(baseline, forcing, noise float64) float64 {
	return 2*baseline + baseline*forcing + noise
}

var depthRules = map[string]DepthRuleFunc{
	DepthBaseline: baselineDepth,
	DepthStacked:  stackedDepth,
}

func Depth(name string) (DepthRuleFunc, error) {
	if name == "" {
		name = DepthBaseline
	}
	fn, ok := depthRules[name]
	if !ok {
		return nil, fmt.Errorf("unknown depth rule %q (want one of %v)", name, DepthRuleNames())
	}
	return fn, nil
}

func DepthRuleNames() []string {
	return sortedKeys(depthRules)
}

func SpeedModelNames() []string {
	return []string{SpeedManning, SpeedSinusoid}
}

func checkSpeedModel(name string) error {
	switch name {
	case "", SpeedManning, SpeedSinusoid:
		return nil
	default:
		return fmt.Errorf("unknown speed model %q (want one of %v)", name, SpeedModelNames())
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
