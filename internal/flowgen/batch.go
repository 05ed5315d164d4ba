package flowgen

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Scenario is one independent run in a batch.
type Scenario struct {
	Name   string
	Params Params
	Seed   uint64
}

// GenerateBatch runs scenarios concurrently on at most workers goroutines.
// Generators share no state, so results come back in input order. The first
// failure cancels scenarios that have not started yet.
func GenerateBatch(ctx context.Context, scenarios []Scenario, workers int, opts ...Option) ([][]Sample, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([][]Sample, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sc := range scenarios {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			samples, err := Generate(sc.Params, sc.Seed, opts...)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", scenarioName(sc, i), err)
			}
			out[i] = samples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func scenarioName(sc Scenario, index int) string {
	if sc.Name != "" {
		return sc.Name
	}
	return fmt.Sprintf("#%d", index)
}
