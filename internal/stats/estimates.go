package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"channelflow/internal/flowgen"
)

const FlowEstimatesFile = "flow_estimates.png"

// ReadFlowColumn parses a headerless CSV holding one flow value per row.
func ReadFlowColumn(r io.Reader) ([]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 1

	values := make([]float64, 0, 256)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read flow row %d: %w", row, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse flow row %d: %w", row, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func ReadFlowColumnFile(path string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values, err := ReadFlowColumn(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return values, nil
}

// PlotFlowEstimates overlays measured, previous and current flow estimates
// against the time column of a generated series. Row i of every estimate is
// drawn at samples[i].Time, so no estimate may be longer than the series.
func PlotFlowEstimates(samples []flowgen.Sample, meas, prev, curr []float64, path string) error {
	if len(samples) == 0 {
		return fmt.Errorf("no samples to plot")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = "Flow estimates [m^3/s]"
	p.X.Label.Text = "Time [sec]"
	p.Y.Label.Text = "Flow [m^3/s]"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	series := []struct {
		label  string
		values []float64
	}{
		{"current flow estimate", curr},
		{"previous flow estimate", prev},
		{"measured flow estimate", meas},
	}
	for i, s := range series {
		if len(s.values) == 0 {
			return fmt.Errorf("%s is empty", s.label)
		}
		if len(s.values) > len(samples) {
			return fmt.Errorf("%s has %d rows, series has %d samples", s.label, len(s.values), len(samples))
		}
		pts := make(plotter.XYs, len(s.values))
		for j, v := range s.values {
			pts[j].X = samples[j].Time
			pts[j].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s: %w", s.label, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.label, line)
	}
	return savePlotPNG(p, 10, 5, path)
}
