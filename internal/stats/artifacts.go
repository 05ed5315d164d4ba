package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"channelflow/internal/flowgen"
	"channelflow/internal/model"
)

const (
	runIndexFile = "run_index.json"

	DataFile       = "ocf_data.csv"
	ParametersFile = "gen_data_parameters.txt"
	ConfigFile     = "config.json"
	SummaryFile    = "summary.json"
)

type RunConfig struct {
	RunID    string         `json:"run_id"`
	ParamSet string         `json:"param_set,omitempty"`
	Seed     uint64         `json:"seed"`
	Params   flowgen.Params `json:"params"`
}

type RunArtifacts struct {
	Config  RunConfig           `json:"config"`
	Samples []flowgen.Sample    `json:"-"`
	Summary model.SeriesSummary `json:"summary"`
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	ParamSet     string  `json:"param_set,omitempty"`
	Seed         uint64  `json:"seed"`
	SampleCount  int     `json:"sample_count"`
	Duration     float64 `json:"duration"`
	Timestep     float64 `json:"timestep"`
	Forcing      string  `json:"forcing"`
	NoiseProfile string  `json:"noise_profile"`
	MeanDepth    float64 `json:"mean_depth"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// WriteRunArtifacts lays out <baseDir>/<run id>/ with the data file, the
// parameter listing, and JSON copies of the config and summary.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := WriteSamplesFile(filepath.Join(runDir, DataFile), artifacts.Samples, artifacts.Config.Params.Precision); err != nil {
		return "", err
	}
	if err := WriteParametersFile(filepath.Join(runDir, ParametersFile), artifacts.Config.Params); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, ConfigFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, SummaryFile), artifacts.Summary); err != nil {
		return "", err
	}
	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first. Entries sharing a
// timestamp keep reverse append order.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func IndexEntry(cfg RunConfig, summary model.SeriesSummary, createdAtUTC string) RunIndexEntry {
	return RunIndexEntry{
		RunID:        cfg.RunID,
		ParamSet:     cfg.ParamSet,
		Seed:         cfg.Seed,
		SampleCount:  summary.Count,
		Duration:     cfg.Params.Duration,
		Timestep:     cfg.Params.Timestep,
		Forcing:      cfg.Params.Forcing,
		NoiseProfile: cfg.Params.NoiseProfile,
		MeanDepth:    summary.Depth.Mean,
		CreatedAtUTC: createdAtUTC,
	}
}

// ExportRunArtifacts copies a run directory's files into outDir/<run id>.
// The summary and plots are copied when present.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{DataFile, ParametersFile, ConfigFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	optional := []string{SummaryFile, FlowEstimatesFile}
	for _, sp := range seriesPlots {
		optional = append(optional, sp.file)
	}
	for _, file := range optional {
		path := filepath.Join(src, file)
		if _, err := os.Stat(path); err == nil {
			if err := copyFile(path, filepath.Join(dst, file)); err != nil {
				return "", err
			}
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, ConfigFile), &cfg)
	if err != nil || !ok {
		return RunConfig{}, ok, err
	}
	return cfg, true, nil
}

func WriteRunConfig(baseDir, runID string, cfg RunConfig) error {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	if strings.TrimSpace(cfg.RunID) == "" {
		cfg.RunID = runID
	}
	if cfg.RunID != runID {
		return fmt.Errorf("run config run id mismatch: got=%s want=%s", cfg.RunID, runID)
	}
	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(runDir, ConfigFile), cfg)
}

func ReadSummary(baseDir, runID string) (model.SeriesSummary, bool, error) {
	var summary model.SeriesSummary
	ok, err := readJSON(filepath.Join(baseDir, runID, SummaryFile), &summary)
	if err != nil || !ok {
		return model.SeriesSummary{}, ok, err
	}
	return summary, true, nil
}

func ReadRunSamples(baseDir, runID string) ([]flowgen.Sample, bool, error) {
	samples, err := ReadSamplesFile(filepath.Join(baseDir, runID, DataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return samples, true, nil
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
