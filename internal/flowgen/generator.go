// Package flowgen synthesizes gauge-like open-channel measurement series:
// depth, free-surface width and flow speed under steady uniform flow, driven by
// a periodic forcing signal plus bounded noise.
package flowgen

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"channelflow/internal/hydraulics"
)

// Sample is one row of a generated series.
type Sample struct {
	Time                    float64 `json:"time"`
	Depth                   float64 `json:"depth"`
	Width                   float64 `json:"width"`
	Speed                   float64 `json:"speed"`
	BankAngleFromHorizontal float64 `json:"bank_angle_from_horizontal"`
}

type State int

const (
	StateIdle State = iota
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Option func(*Generator)

// WithRandomSource injects the source used for noise draws.
func WithRandomSource(src RandomSource) Option {
	return func(g *Generator) {
		g.rng = src
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithNoiseProfile replaces the named noise profile with a custom one.
func WithNoiseProfile(profile NoiseProfile) Option {
	return func(g *Generator) {
		g.noise = profile
	}
}

// WithProgress registers a callback invoked after every emitted sample.
func WithProgress(fn func(done, total int)) Option {
	return func(g *Generator) {
		g.progress = fn
	}
}

// Generator produces one series. It is single use: Generate moves it from
// StateIdle to StateComplete whether or not the run succeeds.
type Generator struct {
	params  Params
	channel hydraulics.Channel
	forcing ForcingFunc
	depth   DepthRuleFunc
	noise   NoiseProfile

	rng      RandomSource
	logger   *slog.Logger
	progress func(done, total int)

	state     State
	steps     int
	phaseStep float64
	scale     float64
	lastDepth float64
}

// New validates params and prepares a generator. Invalid parameters fail here,
// before any sample exists.
func New(params Params, opts ...Option) (*Generator, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	channel, err := params.Channel()
	if err != nil {
		return nil, err
	}
	forcing, err := Forcing(params.Forcing)
	if err != nil {
		return nil, err
	}
	depth, err := Depth(params.DepthRule)
	if err != nil {
		return nil, err
	}
	noise, err := Noise(params.NoiseProfile)
	if err != nil {
		return nil, err
	}

	g := &Generator{
		params:    params,
		channel:   channel,
		forcing:   forcing,
		depth:     depth,
		noise:     noise,
		logger:    slog.New(slog.DiscardHandler),
		state:     StateIdle,
		steps:     params.StepCount(),
		phaseStep: params.PhaseStep(),
		scale:     math.Pow(10, float64(params.Precision)),
		lastDepth: params.InitialDepth,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g, nil
}

// Generate is a convenience wrapper running one seeded generator.
func Generate(params Params, seed uint64, opts ...Option) ([]Sample, error) {
	all := make([]Option, 0, len(opts)+1)
	all = append(all, WithRandomSource(NewSeededSource(seed)))
	all = append(all, opts...)
	g, err := New(params, all...)
	if err != nil {
		return nil, err
	}
	return g.Generate()
}

func (g *Generator) Params() Params {
	return g.params
}

func (g *Generator) State() State {
	return g.state
}

// Len is the number of samples Generate will emit.
func (g *Generator) Len() int {
	return g.steps
}

// Generate runs every step from t=0 to t=duration. Any arithmetic failure aborts
// the run and no samples are returned.
func (g *Generator) Generate() ([]Sample, error) {
	if g.state == StateComplete {
		return nil, ErrAlreadyGenerated
	}
	g.state = StateComplete

	g.logger.Debug("generating series",
		"samples", g.steps,
		"forcing", g.params.Forcing,
		"area_formula", g.params.AreaFormula,
		"depth_rule", g.params.DepthRule,
		"speed_model", g.params.SpeedModel,
		"noise_profile", g.params.NoiseProfile,
	)

	samples := make([]Sample, 0, g.steps)
	for i := 0; i < g.steps; i++ {
		sample, err := g.step(i)
		if err != nil {
			g.logger.Error("series aborted", "step", i, "err", err)
			return nil, err
		}
		samples = append(samples, sample)
		if g.progress != nil {
			g.progress(i+1, g.steps)
		}
	}

	g.logger.Info("series generated", "samples", len(samples), "duration_s", g.params.Duration)
	return samples, nil
}

func (g *Generator) step(i int) (Sample, error) {
	t := float64(i) * g.params.Timestep
	forcing := g.forcing(float64(i) * g.phaseStep)
	noise := g.noise.Draw(g.rng)

	// Width and speed are derived from the depth as it is reported.
	depth := g.round(g.depth(g.params.InitialDepth, forcing, noise.Depth))
	if err := finite(depth); err != nil {
		return Sample{}, g.arithmeticError(i, t, "depth", depth, err)
	}
	width := g.channel.SurfaceWidth(depth) + noise.Width
	if err := finite(width); err != nil {
		return Sample{}, g.arithmeticError(i, t, "width", depth, err)
	}

	var speed float64
	switch g.params.SpeedModel {
	case SpeedSinusoid:
		speed = g.params.InitialSpeed*forcing + noise.Speed
	default:
		v, err := g.channel.Speed(depth, g.params.ChannelSlope, g.params.ManningCoefficient)
		if err != nil {
			return Sample{}, g.arithmeticError(i, t, "speed", depth, err)
		}
		speed = v + noise.Speed
	}

	g.lastDepth = depth
	return Sample{
		Time:                    g.round(t),
		Depth:                   depth,
		Width:                   g.round(width),
		Speed:                   g.round(speed),
		BankAngleFromHorizontal: g.round(g.params.BankAngleFromHorizontal),
	}, nil
}

func (g *Generator) arithmeticError(step int, t float64, quantity string, depth float64, err error) error {
	return &ArithmeticError{
		Step:     step,
		Time:     t,
		Quantity: quantity,
		Depth:    depth,
		Err:      fmt.Errorf("%w (previous depth %g)", err, g.lastDepth),
	}
}

func (g *Generator) round(v float64) float64 {
	return math.RoundToEven(v*g.scale) / g.scale
}

func finite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return hydraulics.ErrNonFinite
	}
	return nil
}
