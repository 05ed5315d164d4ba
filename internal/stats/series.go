package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"channelflow/internal/flowgen"
)

const sampleFields = 5

// WriteSamplesCSV writes one headerless row per sample in the order time,
// depth, width, speed, bank_angle_from_horizontal using fixed decimals. A zero
// precision selects flowgen.DefaultPrecision.
func WriteSamplesCSV(w io.Writer, samples []flowgen.Sample, precision int) error {
	switch {
	case precision == 0:
		precision = flowgen.DefaultPrecision
	case precision < 0 || precision > flowgen.MaxPrecision:
		return fmt.Errorf("precision must be within [0, %d], got %d", flowgen.MaxPrecision, precision)
	}
	writer := csv.NewWriter(w)
	for _, s := range samples {
		if err := writer.Write([]string{
			formatFixed(s.Time, precision),
			formatFixed(s.Depth, precision),
			formatFixed(s.Width, precision),
			formatFixed(s.Speed, precision),
			formatFixed(s.BankAngleFromHorizontal, precision),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteSamplesFile(path string, samples []flowgen.Sample, precision int) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("samples file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSamplesCSV(file, samples, precision); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// ReadSamplesCSV parses rows written by WriteSamplesCSV.
func ReadSamplesCSV(r io.Reader) ([]flowgen.Sample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = sampleFields

	samples := make([]flowgen.Sample, 0, 256)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read samples row %d: %w", row, err)
		}
		var values [sampleFields]float64
		for i, raw := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("parse samples row %d column %d: %w", row, i, err)
			}
			values[i] = v
		}
		samples = append(samples, flowgen.Sample{
			Time:                    values[0],
			Depth:                   values[1],
			Width:                   values[2],
			Speed:                   values[3],
			BankAngleFromHorizontal: values[4],
		})
	}
	return samples, nil
}

func ReadSamplesFile(path string) ([]flowgen.Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadSamplesCSV(file)
}

// WriteParametersFile records the run inputs as key,value rows.
func WriteParametersFile(path string, p flowgen.Params) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteParametersCSV(file, p); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func WriteParametersCSV(w io.Writer, p flowgen.Params) error {
	writer := csv.NewWriter(w)
	rows := [][2]string{
		{"duration", formatFloat(p.Duration)},
		{"initial_water_height", formatFloat(p.InitialDepth)},
		{"initial_flow", formatFloat(p.InitialSpeed)},
		{"timestep", formatFloat(p.Timestep)},
		{"channel_width", formatFloat(p.ChannelWidth)},
		{"channel_bank_angle", formatFloat(p.BankAngleFromHorizontal)},
		{"channel_slope", formatFloat(p.ChannelSlope)},
		{"manning_coefficient", formatFloat(p.ManningCoefficient)},
		{"num_cycles", formatFloat(p.NumCycles)},
	}
	for _, row := range rows {
		if err := writer.Write(row[:]); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFixed(v float64, precision int) string {
	return strconv.FormatFloat(v, 'f', precision, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
