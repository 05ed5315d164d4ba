package stats

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"channelflow/internal/flowgen"
	"channelflow/internal/model"
)

// Summarize computes per-field descriptive statistics of a series.
func Summarize(samples []flowgen.Sample) model.SeriesSummary {
	n := len(samples)
	if n == 0 {
		return model.SeriesSummary{}
	}
	depth := make([]float64, n)
	width := make([]float64, n)
	speed := make([]float64, n)
	for i, s := range samples {
		depth[i] = s.Depth
		width[i] = s.Width
		speed[i] = s.Speed
	}
	return model.SeriesSummary{
		Count:        n,
		Depth:        summarizeField(depth),
		Width:        summarizeField(width),
		Speed:        summarizeField(speed),
		MinDepthTime: samples[floats.MinIdx(depth)].Time,
	}
}

func summarizeField(values []float64) model.FieldSummary {
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		std = 0
	}
	return model.FieldSummary{
		Mean: mean,
		Std:  std,
		Min:  floats.Min(values),
		Max:  floats.Max(values),
	}
}
