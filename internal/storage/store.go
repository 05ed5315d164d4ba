package storage

import (
	"context"

	"channelflow/internal/flowgen"
	"channelflow/internal/model"
)

// Store defines persistence operations for generated runs and their series.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	DeleteRun(ctx context.Context, id string) error
	SaveSamples(ctx context.Context, runID string, samples []flowgen.Sample) error
	GetSamples(ctx context.Context, runID string) ([]flowgen.Sample, bool, error)
}
