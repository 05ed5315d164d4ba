package stats

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"channelflow/internal/flowgen"
)

const plotDPI = 96

type seriesPlot struct {
	file   string
	title  string
	ylabel string
	value  func(flowgen.Sample) float64
}

var seriesPlots = []seriesPlot{
	{"depth.png", "Water depth", "depth [m]", func(s flowgen.Sample) float64 { return s.Depth }},
	{"width.png", "Surface width", "width [m]", func(s flowgen.Sample) float64 { return s.Width }},
	{"speed.png", "Flow speed", "speed [m/s]", func(s flowgen.Sample) float64 { return s.Speed }},
}

// PlotSeries renders one PNG line plot per sample field against time into
// dir and returns the written paths.
func PlotSeries(samples []flowgen.Sample, dir string) ([]string, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to plot")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(seriesPlots))
	for _, sp := range seriesPlots {
		pts := make(plotter.XYs, len(samples))
		for i, s := range samples {
			pts[i].X = s.Time
			pts[i].Y = sp.value(s)
		}

		p := plot.New()
		p.Title.Text = sp.title
		p.X.Label.Text = "time [s]"
		p.Y.Label.Text = sp.ylabel
		p.Add(plotter.NewGrid())

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sp.file, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)

		path := filepath.Join(dir, sp.file)
		if err := savePlotPNG(p, 8, 4, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func savePlotPNG(p *plot.Plot, widthIn, heightIn float64, path string) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(plotDPI),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		_ = f.Close()
		return fmt.Errorf("write png: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write png: %w", err)
	}
	return f.Close()
}
