package storage

import (
	"context"
	"testing"

	"channelflow/internal/flowgen"
	"channelflow/internal/model"
)

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := model.RunRecord{
		VersionedRecord: Versioned(),
		ID:              "run-1",
		ParamSet:        "default",
		Seed:            7,
		Params:          flowgen.Params{ChannelWidth: 20, Duration: 1, Timestep: 0.5},
		SampleCount:     3,
		CreatedAtUTC:    "2026-10-17T10:00:00Z",
	}
	if err := store.SaveRun(ctx, input); err != nil {
		t.Fatalf("save run: %v", err)
	}

	output, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if output.ID != "run-1" || output.Seed != 7 || output.Params.ChannelWidth != 20 {
		t.Fatalf("unexpected run: %+v", output)
	}

	_, ok, err = store.GetRun(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("expected missing run, ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreSamplesAreCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []flowgen.Sample{
		{Time: 0, Depth: 1.5, Width: 26.4, Speed: 6.1, BankAngleFromHorizontal: 25},
		{Time: 0.5, Depth: 1.501, Width: 26.41, Speed: 6.11, BankAngleFromHorizontal: 25},
	}
	if err := store.SaveSamples(ctx, "run-1", input); err != nil {
		t.Fatalf("save samples: %v", err)
	}
	input[0].Depth = -1

	output, ok, err := store.GetSamples(ctx, "run-1")
	if err != nil {
		t.Fatalf("get samples: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted samples")
	}
	if len(output) != 2 || output[0].Depth != 1.5 {
		t.Fatalf("unexpected samples: %+v", output)
	}
}

func TestMemoryStoreListAndDeleteRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, run := range []model.RunRecord{
		{VersionedRecord: Versioned(), ID: "old", CreatedAtUTC: "2026-10-01T00:00:00Z"},
		{VersionedRecord: Versioned(), ID: "new", CreatedAtUTC: "2026-10-02T00:00:00Z"},
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}
	if err := store.SaveSamples(ctx, "old", []flowgen.Sample{{Time: 0}}); err != nil {
		t.Fatalf("save samples: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "old" {
		t.Fatalf("unexpected run order: %+v", runs)
	}

	if err := store.DeleteRun(ctx, "old"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	if _, ok, _ := store.GetSamples(ctx, "old"); ok {
		t.Fatal("expected samples removed with run")
	}
	runs, _ = store.ListRuns(ctx)
	if len(runs) != 1 {
		t.Fatalf("expected one run after delete, got %d", len(runs))
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveRun(context.Background(), model.RunRecord{ID: "x"}); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}
