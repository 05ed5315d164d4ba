package flowgen

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	NoisePositiveBias = "positive-bias"
	NoiseSymmetric    = "symmetric"
	NoiseContinuous   = "continuous"
	NoiseNone         = "none"

	noiseScale = 1e4
)

// RandomSource is the injected uniform generator behind every noise draw.
// *rand.Rand from math/rand/v2 satisfies it.
type RandomSource interface {
	IntN(n int) int
	Uint64() uint64
}

// NewSeededSource returns a reproducible source for the given seed.
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

// NoiseRange is an inclusive integer interval [Low, High] divided by Scale.
// A zero Scale disables the range and draws nothing from the source.
type NoiseRange struct {
	Low   int     `json:"low" yaml:"low"`
	High  int     `json:"high" yaml:"high"`
	Scale float64 `json:"scale" yaml:"scale"`
}

func (r NoiseRange) Draw(src RandomSource) float64 {
	if r.Scale == 0 {
		return 0
	}
	return float64(r.Low+src.IntN(r.High-r.Low+1)) / r.Scale
}

// DrawContinuous samples the same bounds from a continuous uniform distribution.
func (r NoiseRange) DrawContinuous(src RandomSource) float64 {
	if r.Scale == 0 {
		return 0
	}
	u := distuv.Uniform{
		Min: float64(r.Low) / r.Scale,
		Max: float64(r.High) / r.Scale,
		Src: src,
	}
	return u.Rand()
}

// NoiseDraw holds the perturbations for a single step. It is never kept past
// the sample it is applied to.
type NoiseDraw struct {
	Depth float64
	Width float64
	Speed float64
}

type NoiseProfile struct {
	Name       string
	Depth      NoiseRange
	Width      NoiseRange
	Speed      NoiseRange
	Continuous bool
}

// Draw takes depth, width and speed perturbations in that order.
func (p NoiseProfile) Draw(src RandomSource) NoiseDraw {
	if p.Continuous {
		return NoiseDraw{
			Depth: p.Depth.DrawContinuous(src),
			Width: p.Width.DrawContinuous(src),
			Speed: p.Speed.DrawContinuous(src),
		}
	}
	return NoiseDraw{
		Depth: p.Depth.Draw(src),
		Width: p.Width.Draw(src),
		Speed: p.Speed.Draw(src),
	}
}

var noiseProfiles = map[string]NoiseProfile{
	NoisePositiveBias: {
		Name:  NoisePositiveBias,
		Depth: NoiseRange{Low: -10, High: 100, Scale: noiseScale},
		Width: NoiseRange{Low: -2, High: 20, Scale: noiseScale},
		Speed: NoiseRange{Low: -8, High: 80, Scale: noiseScale},
	},
	NoiseSymmetric: {
		Name:  NoiseSymmetric,
		Depth: NoiseRange{Low: -100, High: 100, Scale: noiseScale},
		Width: NoiseRange{Low: -20, High: 20, Scale: noiseScale},
		Speed: NoiseRange{Low: -80, High: 80, Scale: noiseScale},
	},
	NoiseContinuous: {
		Name:       NoiseContinuous,
		Depth:      NoiseRange{Low: -10, High: 100, Scale: noiseScale},
		Width:      NoiseRange{Low: -2, High: 20, Scale: noiseScale},
		Speed:      NoiseRange{Low: -8, High: 80, Scale: noiseScale},
		Continuous: true,
	},
	NoiseNone: {Name: NoiseNone},
}

func Noise(name string) (NoiseProfile, error) {
	if name == "" {
		name = NoisePositiveBias
	}
	profile, ok := noiseProfiles[name]
	if !ok {
		return NoiseProfile{}, fmt.Errorf("unknown noise profile %q (want one of %v)", name, NoiseProfileNames())
	}
	return profile, nil
}

func NoiseProfileNames() []string {
	return sortedKeys(noiseProfiles)
}
