package stats

import "testing"

func TestWriteReadAndListBatchManifests(t *testing.T) {
	base := t.TempDir()
	first := BatchManifest{
		ID:           "batch-a",
		Workers:      2,
		StartedAtUTC: "2026-10-01T00:00:00Z",
		Scenarios:    []BatchScenario{{Name: "low", Seed: 1, RunID: "run-1"}},
	}
	second := BatchManifest{
		ID:           "batch-b",
		Workers:      4,
		StartedAtUTC: "2026-10-02T00:00:00Z",
		Failure:      "scenario high: invalid simulation config",
	}
	if err := WriteBatchManifest(base, first); err != nil {
		t.Fatalf("write batch a: %v", err)
	}
	if err := WriteBatchManifest(base, second); err != nil {
		t.Fatalf("write batch b: %v", err)
	}

	read, ok, err := ReadBatchManifest(base, "batch-a")
	if err != nil {
		t.Fatalf("read batch a: %v", err)
	}
	if !ok {
		t.Fatal("expected batch a to exist")
	}
	if read.Workers != 2 || len(read.Scenarios) != 1 || read.Scenarios[0].RunID != "run-1" {
		t.Fatalf("unexpected batch a payload: %+v", read)
	}

	list, err := ListBatchManifests(base)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(list))
	}
	if list[0].ID != "batch-b" || list[1].ID != "batch-a" {
		t.Fatalf("unexpected list ordering: %+v", list)
	}

	if _, ok, err := ReadBatchManifest(base, "missing"); err != nil || ok {
		t.Fatalf("expected missing batch to be absent: ok=%t err=%v", ok, err)
	}
	if err := WriteBatchManifest(base, BatchManifest{}); err == nil {
		t.Fatal("expected missing batch id error")
	}
}
