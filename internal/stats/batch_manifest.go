package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const batchManifestsDir = "batches"

type BatchScenario struct {
	Name     string `json:"name"`
	ParamSet string `json:"param_set,omitempty"`
	Seed     uint64 `json:"seed"`
	RunID    string `json:"run_id,omitempty"`
}

// BatchManifest records one batch invocation and the runs it produced.
type BatchManifest struct {
	ID             string          `json:"id"`
	Workers        int             `json:"workers"`
	StartedAtUTC   string          `json:"started_at_utc,omitempty"`
	CompletedAtUTC string          `json:"completed_at_utc,omitempty"`
	Failure        string          `json:"failure,omitempty"`
	Scenarios      []BatchScenario `json:"scenarios"`
}

func WriteBatchManifest(baseDir string, manifest BatchManifest) error {
	if manifest.ID == "" {
		return fmt.Errorf("batch id is required")
	}
	path := batchManifestPath(baseDir, manifest.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, manifest)
}

func ReadBatchManifest(baseDir, id string) (BatchManifest, bool, error) {
	if id == "" {
		return BatchManifest{}, false, fmt.Errorf("batch id is required")
	}
	var manifest BatchManifest
	ok, err := readJSON(batchManifestPath(baseDir, id), &manifest)
	if err != nil || !ok {
		return BatchManifest{}, ok, err
	}
	return manifest, true, nil
}

func ListBatchManifests(baseDir string) ([]BatchManifest, error) {
	entries, err := os.ReadDir(filepath.Join(baseDir, batchManifestsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []BatchManifest{}, nil
		}
		return nil, err
	}

	manifests := make([]BatchManifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest, ok, err := ReadBatchManifest(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		manifests = append(manifests, manifest)
	}
	sort.Slice(manifests, func(i, j int) bool {
		switch {
		case manifests[i].StartedAtUTC == manifests[j].StartedAtUTC:
			return manifests[i].ID < manifests[j].ID
		case manifests[i].StartedAtUTC == "":
			return false
		case manifests[j].StartedAtUTC == "":
			return true
		default:
			return manifests[i].StartedAtUTC > manifests[j].StartedAtUTC
		}
	})
	return manifests, nil
}

func batchManifestPath(baseDir, id string) string {
	return filepath.Join(baseDir, batchManifestsDir, id, "batch.json")
}
