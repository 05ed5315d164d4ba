package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"channelflow/pkg/channelflow"
)

type generateConfig struct {
	ParamSet  string
	Seed      uint64
	Overrides channelflow.ParamOverrides
}

type batchConfig struct {
	Workers   int
	Scenarios []channelflow.BatchScenario
}

// readConfigMap decodes a YAML or JSON config file into a generic map.
func readConfigMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func loadGenerateConfig(path string) (generateConfig, error) {
	raw, err := readConfigMap(path)
	if err != nil {
		return generateConfig{}, err
	}
	return generateConfigFromMap(raw)
}

func generateConfigFromMap(raw map[string]any) (generateConfig, error) {
	var cfg generateConfig
	if v, ok := asString(raw["param_set"]); ok {
		cfg.ParamSet = v
	}
	if v, ok := raw["seed"]; ok {
		seed, ok := asUint64(v)
		if !ok {
			return generateConfig{}, fmt.Errorf("seed must be a non-negative integer, got %v", v)
		}
		cfg.Seed = seed
	}
	overrides, err := overridesFromMap(raw)
	if err != nil {
		return generateConfig{}, err
	}
	cfg.Overrides = overrides
	return cfg, nil
}

func loadBatchConfig(path string) (batchConfig, error) {
	raw, err := readConfigMap(path)
	if err != nil {
		return batchConfig{}, err
	}
	var cfg batchConfig
	if v, ok := asInt(raw["workers"]); ok {
		cfg.Workers = v
	}
	items, ok := raw["scenarios"].([]any)
	if !ok || len(items) == 0 {
		return batchConfig{}, fmt.Errorf("batch config requires a non-empty scenarios list")
	}
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return batchConfig{}, fmt.Errorf("scenario %d must be a mapping", i)
		}
		gen, err := generateConfigFromMap(entry)
		if err != nil {
			return batchConfig{}, fmt.Errorf("scenario %d: %w", i, err)
		}
		name, _ := asString(entry["name"])
		cfg.Scenarios = append(cfg.Scenarios, channelflow.BatchScenario{
			Name:      name,
			ParamSet:  gen.ParamSet,
			Overrides: gen.Overrides,
			Seed:      gen.Seed,
		})
	}
	return cfg, nil
}

func overridesFromMap(raw map[string]any) (channelflow.ParamOverrides, error) {
	var o channelflow.ParamOverrides
	floats := []struct {
		key string
		dst **float64
	}{
		{"initial_depth", &o.InitialDepth},
		{"initial_speed", &o.InitialSpeed},
		{"channel_width", &o.ChannelWidth},
		{"bank_angle_from_horizontal", &o.BankAngleFromHorizontal},
		{"manning_coefficient", &o.ManningCoefficient},
		{"duration", &o.Duration},
		{"timestep", &o.Timestep},
		{"num_cycles", &o.NumCycles},
		{"channel_slope", &o.ChannelSlope},
		{"channel_length", &o.ChannelLength},
		{"channel_descent", &o.ChannelDescent},
		{"channel_angle", &o.ChannelAngle},
	}
	for _, f := range floats {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		x, ok := asFloat64(v)
		if !ok {
			return channelflow.ParamOverrides{}, fmt.Errorf("%s must be a number, got %v", f.key, v)
		}
		*f.dst = &x
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"forcing", &o.Forcing},
		{"area_formula", &o.AreaFormula},
		{"depth_rule", &o.DepthRule},
		{"speed_model", &o.SpeedModel},
		{"noise_profile", &o.NoiseProfile},
	}
	for _, s := range strs {
		if v, ok := asString(raw[s.key]); ok {
			*s.dst = strings.TrimSpace(v)
		}
	}

	if v, ok := raw["precision"]; ok {
		p, ok := asInt(v)
		if !ok {
			return channelflow.ParamOverrides{}, fmt.Errorf("precision must be an integer, got %v", v)
		}
		o.Precision = &p
	}
	return o, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asUint64(v any) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case int:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case int64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	case float64:
		if x < 0 {
			return 0, false
		}
		return uint64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// overrideFromFlags applies explicitly set flags over the loaded config.
func overrideFromFlags(cfg *generateConfig, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "param-set":
			cfg.ParamSet = v.(string)
		case "seed":
			cfg.Seed = v.(uint64)
		case "duration":
			cfg.Overrides.Duration = floatPtr(v)
		case "timestep":
			cfg.Overrides.Timestep = floatPtr(v)
		case "initial-depth":
			cfg.Overrides.InitialDepth = floatPtr(v)
		case "initial-speed":
			cfg.Overrides.InitialSpeed = floatPtr(v)
		case "channel-width":
			cfg.Overrides.ChannelWidth = floatPtr(v)
		case "bank-angle":
			cfg.Overrides.BankAngleFromHorizontal = floatPtr(v)
		case "manning":
			cfg.Overrides.ManningCoefficient = floatPtr(v)
		case "slope":
			cfg.Overrides.ChannelSlope = floatPtr(v)
		case "cycles":
			cfg.Overrides.NumCycles = floatPtr(v)
		case "forcing":
			cfg.Overrides.Forcing = v.(string)
		case "area-formula":
			cfg.Overrides.AreaFormula = v.(string)
		case "depth-rule":
			cfg.Overrides.DepthRule = v.(string)
		case "speed-model":
			cfg.Overrides.SpeedModel = v.(string)
		case "noise":
			cfg.Overrides.NoiseProfile = v.(string)
		case "precision":
			p := v.(int)
			cfg.Overrides.Precision = &p
		}
	}
}

func floatPtr(v any) *float64 {
	x := v.(float64)
	return &x
}

func loadOrDefaultGenerateConfig(configPath string) (generateConfig, error) {
	if configPath == "" {
		return generateConfig{}, nil
	}
	cfg, err := loadGenerateConfig(configPath)
	if err != nil {
		return generateConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
