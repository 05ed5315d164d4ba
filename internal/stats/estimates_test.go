package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFlowFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadFlowColumn(t *testing.T) {
	values, err := ReadFlowColumn(strings.NewReader("1.5\n 2.25\n-0.5\n"))
	if err != nil {
		t.Fatalf("read flow column: %v", err)
	}
	if len(values) != 3 || values[0] != 1.5 || values[1] != 2.25 || values[2] != -0.5 {
		t.Fatalf("unexpected values: %v", values)
	}

	if _, err := ReadFlowColumn(strings.NewReader("1.5,2\n")); err == nil {
		t.Fatal("expected multi-column error")
	}
	if _, err := ReadFlowColumn(strings.NewReader("flow\n")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestReadFlowColumnFileNamesPath(t *testing.T) {
	path := writeFlowFile(t, t.TempDir(), "bad.csv", "x\n")
	_, err := ReadFlowColumnFile(path)
	if err == nil || !strings.Contains(err.Error(), "bad.csv") {
		t.Fatalf("expected error naming the file, got %v", err)
	}
}

func TestPlotFlowEstimatesWritesPNG(t *testing.T) {
	dir := t.TempDir()
	samples := testArtifacts("estimates").Samples
	meas, err := ReadFlowColumnFile(writeFlowFile(t, dir, "meas.csv", "3.0\n3.1\n3.2\n"))
	if err != nil {
		t.Fatalf("read meas: %v", err)
	}
	prev := []float64{2.9, 3.0}
	curr := []float64{3.05, 3.15, 3.2}

	path := filepath.Join(dir, "out", FlowEstimatesFile)
	if err := PlotFlowEstimates(samples, meas, prev, curr, path); err != nil {
		t.Fatalf("plot flow estimates: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}) {
		t.Fatal("flow estimates plot is not a png")
	}
}

func TestPlotFlowEstimatesRejectsMisalignedSeries(t *testing.T) {
	samples := testArtifacts("estimates").Samples
	path := filepath.Join(t.TempDir(), FlowEstimatesFile)

	long := []float64{1, 2, 3, 4}
	if err := PlotFlowEstimates(samples, long, []float64{1}, []float64{1}, path); err == nil {
		t.Fatal("expected error for estimate longer than series")
	}
	if err := PlotFlowEstimates(samples, []float64{1}, nil, []float64{1}, path); err == nil {
		t.Fatal("expected error for empty estimate")
	}
	if err := PlotFlowEstimates(nil, []float64{1}, []float64{1}, []float64{1}, path); err == nil {
		t.Fatal("expected error for empty series")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no png after rejected input, stat err=%v", err)
	}
}
