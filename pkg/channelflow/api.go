// Package channelflow is the public entry point for generating, persisting,
// and exporting synthetic open-channel flow series.
package channelflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"

	"channelflow/internal/flowgen"
	"channelflow/internal/model"
	"channelflow/internal/paramset"
	"channelflow/internal/stats"
	"channelflow/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "channelflow.db"

	runIDTimeLayout = "%Y%m%dT%H%M%SZ"
)

type (
	Params         = flowgen.Params
	Sample         = flowgen.Sample
	SeriesSummary  = model.SeriesSummary
	ParamOverrides = paramset.RawParamSet
	BatchManifest  = stats.BatchManifest
)

type Options struct {
	StoreKind   string
	DBPath      string
	RunsDir     string
	ExportsDir  string
	ParamSetDir string
	Logger      *slog.Logger
	// Now overrides the clock used for run ids and timestamps.
	Now func() time.Time
}

type Client struct {
	store     storage.Store
	paramSets *paramset.Loader
	logger    *slog.Logger
	now       func() time.Time

	runsDir    string
	exportsDir string

	initMu      sync.Mutex
	initialized bool
}

type GenerateRequest struct {
	ParamSet  string
	Overrides ParamOverrides
	// Seed zero draws a fresh seed; the seed used is recorded on the run.
	Seed     uint64
	Progress func(done, total int)
}

type RunSummary struct {
	RunID        string
	ParamSet     string
	Seed         uint64
	ArtifactsDir string
	SampleCount  int
	Params       Params
	Summary      SeriesSummary
}

type BatchScenario struct {
	Name      string
	ParamSet  string
	Overrides ParamOverrides
	Seed      uint64
}

type BatchRequest struct {
	Scenarios []BatchScenario
	Workers   int
}

type BatchSummary struct {
	BatchID string
	Runs    []RunSummary
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	ParamSet     string
	Seed         uint64
	SampleCount  int
	Forcing      string
	NoiseProfile string
	MeanDepth    float64
}

type RunDetail struct {
	RunID        string
	ParamSet     string
	Seed         uint64
	CreatedAtUTC string
	Params       Params
	Summary      SeriesSummary
}

type SamplesRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type PlotRequest struct {
	RunID  string
	Latest bool
	// OutDir defaults to the run's artifacts directory.
	OutDir string
	// Optional headerless single-column flow files overlaid against the
	// run's time column. Set all three or none.
	MeasuredFile string
	PreviousFile string
	CurrentFile  string
}

type PlotSummary struct {
	RunID string
	Files []string
}

type ParamSetItem struct {
	Name   string
	Notes  string
	Params Params
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		paramSets:  paramset.NewLoader(opts.ParamSetDir),
		logger:     logger,
		now:        now,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the store and the runs directory. Other calls run it lazily.
func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	if err := os.MkdirAll(c.runsDir, 0o755); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Generate produces one series, stores it, and writes its artifacts.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (RunSummary, error) {
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}
	params, err := c.paramSets.LoadWith(req.ParamSet, req.Overrides)
	if err != nil {
		return RunSummary{}, err
	}
	seed := req.Seed
	for seed == 0 {
		seed = rand.Uint64()
	}

	gen, err := flowgen.New(params,
		flowgen.WithRandomSource(flowgen.NewSeededSource(seed)),
		flowgen.WithLogger(c.logger),
		flowgen.WithProgress(req.Progress),
	)
	if err != nil {
		return RunSummary{}, err
	}
	samples, err := gen.Generate()
	if err != nil {
		return RunSummary{}, err
	}
	return c.record(ctx, paramSetName(req.ParamSet), seed, gen.Params(), samples)
}

// Batch generates independent scenarios concurrently and records each run.
// A failing scenario aborts the batch before anything is recorded.
func (c *Client) Batch(ctx context.Context, req BatchRequest) (BatchSummary, error) {
	if len(req.Scenarios) == 0 {
		return BatchSummary{}, errors.New("batch requires at least one scenario")
	}
	if err := c.Init(ctx); err != nil {
		return BatchSummary{}, err
	}

	started := c.now().UTC()
	manifest := stats.BatchManifest{
		ID:           "batch-" + newRunID(started),
		Workers:      req.Workers,
		StartedAtUTC: started.Format(time.RFC3339Nano),
		Scenarios:    make([]stats.BatchScenario, len(req.Scenarios)),
	}

	scenarios := make([]flowgen.Scenario, len(req.Scenarios))
	for i, sc := range req.Scenarios {
		name := sc.Name
		if name == "" {
			name = fmt.Sprintf("%s-%d", paramSetName(sc.ParamSet), i)
		}
		params, err := c.paramSets.LoadWith(sc.ParamSet, sc.Overrides)
		if err != nil {
			return BatchSummary{}, fmt.Errorf("scenario %s: %w", name, err)
		}
		seed := sc.Seed
		for seed == 0 {
			seed = rand.Uint64()
		}
		scenarios[i] = flowgen.Scenario{Name: name, Params: params, Seed: seed}
		manifest.Scenarios[i] = stats.BatchScenario{Name: name, ParamSet: paramSetName(sc.ParamSet), Seed: seed}
	}

	results, err := flowgen.GenerateBatch(ctx, scenarios, req.Workers, flowgen.WithLogger(c.logger))
	if err != nil {
		manifest.Failure = err.Error()
		manifest.CompletedAtUTC = c.now().UTC().Format(time.RFC3339Nano)
		if werr := stats.WriteBatchManifest(c.runsDir, manifest); werr != nil {
			c.logger.Warn("write batch manifest", "batch", manifest.ID, "err", werr)
		}
		return BatchSummary{}, err
	}

	summary := BatchSummary{BatchID: manifest.ID, Runs: make([]RunSummary, 0, len(results))}
	for i, samples := range results {
		run, err := c.record(ctx, manifest.Scenarios[i].ParamSet, scenarios[i].Seed, scenarios[i].Params, samples)
		if err != nil {
			return BatchSummary{}, fmt.Errorf("scenario %s: %w", scenarios[i].Name, err)
		}
		manifest.Scenarios[i].RunID = run.RunID
		summary.Runs = append(summary.Runs, run)
	}
	manifest.CompletedAtUTC = c.now().UTC().Format(time.RFC3339Nano)
	if err := stats.WriteBatchManifest(c.runsDir, manifest); err != nil {
		return BatchSummary{}, err
	}
	return summary, nil
}

func (c *Client) record(ctx context.Context, paramSet string, seed uint64, params flowgen.Params, samples []flowgen.Sample) (RunSummary, error) {
	now := c.now().UTC()
	runID := newRunID(now)
	summary := stats.Summarize(samples)

	run := model.RunRecord{
		VersionedRecord: storage.Versioned(),
		ID:              runID,
		ParamSet:        paramSet,
		Seed:            seed,
		Params:          params,
		SampleCount:     len(samples),
		Summary:         summary,
		CreatedAtUTC:    now.Format(time.RFC3339Nano),
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveSamples(ctx, runID, samples); err != nil {
		return RunSummary{}, err
	}

	cfg := stats.RunConfig{RunID: runID, ParamSet: paramSet, Seed: seed, Params: params}
	runDir, err := stats.WriteRunArtifacts(c.runsDir, stats.RunArtifacts{
		Config:  cfg,
		Samples: samples,
		Summary: summary,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.IndexEntry(cfg, summary, run.CreatedAtUTC)); err != nil {
		return RunSummary{}, err
	}

	c.logger.Info("run recorded", "run", runID, "param_set", paramSet, "samples", len(samples), "dir", runDir)
	return RunSummary{
		RunID:        runID,
		ParamSet:     paramSet,
		Seed:         seed,
		ArtifactsDir: filepath.Clean(runDir),
		SampleCount:  len(samples),
		Params:       params,
		Summary:      summary,
	}, nil
}

// Runs lists recorded runs newest first.
func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			ParamSet:     e.ParamSet,
			Seed:         e.Seed,
			SampleCount:  e.SampleCount,
			Forcing:      e.Forcing,
			NoiseProfile: e.NoiseProfile,
			MeanDepth:    e.MeanDepth,
		})
	}
	return out, nil
}

// Show returns the stored record of a run, falling back to its artifacts
// when the store does not hold it.
func (c *Client) Show(ctx context.Context, req ShowRequest) (RunDetail, error) {
	if err := c.Init(ctx); err != nil {
		return RunDetail{}, err
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return RunDetail{}, err
	}

	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if ok {
		return RunDetail{
			RunID:        run.ID,
			ParamSet:     run.ParamSet,
			Seed:         run.Seed,
			CreatedAtUTC: run.CreatedAtUTC,
			Params:       run.Params,
			Summary:      run.Summary,
		}, nil
	}

	cfg, ok, err := stats.ReadRunConfig(c.runsDir, runID)
	if err != nil {
		return RunDetail{}, err
	}
	if !ok {
		return RunDetail{}, fmt.Errorf("run not found: %s", runID)
	}
	summary, _, err := stats.ReadSummary(c.runsDir, runID)
	if err != nil {
		return RunDetail{}, err
	}
	detail := RunDetail{
		RunID:    cfg.RunID,
		ParamSet: cfg.ParamSet,
		Seed:     cfg.Seed,
		Params:   cfg.Params,
		Summary:  summary,
	}
	if entry, found, err := c.indexEntry(runID); err != nil {
		return RunDetail{}, err
	} else if found {
		detail.CreatedAtUTC = entry.CreatedAtUTC
	}
	return detail, nil
}

// Samples returns a run's series. Limit > 0 keeps only the first samples.
func (c *Client) Samples(ctx context.Context, req SamplesRequest) ([]Sample, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}

	samples, ok, err := c.store.GetSamples(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		samples, ok, err = stats.ReadRunSamples(c.runsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("samples not found for run: %s", runID)
		}
	}
	if req.Limit > 0 && len(samples) > req.Limit {
		samples = samples[:req.Limit]
	}
	return samples, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Plot renders depth, width, and speed against time as PNG files.
func (c *Client) Plot(ctx context.Context, req PlotRequest) (PlotSummary, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return PlotSummary{}, err
	}
	samples, err := c.Samples(ctx, SamplesRequest{RunID: runID})
	if err != nil {
		return PlotSummary{}, err
	}
	outDir := req.OutDir
	if outDir == "" {
		outDir = filepath.Join(c.runsDir, runID)
	}
	files, err := stats.PlotSeries(samples, outDir)
	if err != nil {
		return PlotSummary{}, err
	}
	if req.MeasuredFile == "" && req.PreviousFile == "" && req.CurrentFile == "" {
		return PlotSummary{RunID: runID, Files: files}, nil
	}

	estimates := make([][]float64, 0, 3)
	for _, path := range []string{req.MeasuredFile, req.PreviousFile, req.CurrentFile} {
		if path == "" {
			return PlotSummary{}, errors.New("flow estimates need measured, previous and current files")
		}
		values, err := stats.ReadFlowColumnFile(path)
		if err != nil {
			return PlotSummary{}, err
		}
		estimates = append(estimates, values)
	}
	path := filepath.Join(outDir, stats.FlowEstimatesFile)
	if err := stats.PlotFlowEstimates(samples, estimates[0], estimates[1], estimates[2], path); err != nil {
		return PlotSummary{}, err
	}
	c.logger.Info("plotted flow estimates", "run_id", runID, "path", path)
	return PlotSummary{RunID: runID, Files: append(files, path)}, nil
}

// ParamSets lists the available parameter sets with their resolved values.
func (c *Client) ParamSets(_ context.Context) ([]ParamSetItem, error) {
	names, err := c.paramSets.Names()
	if err != nil {
		return nil, err
	}
	out := make([]ParamSetItem, 0, len(names))
	for _, name := range names {
		raw, err := c.paramSets.LoadRaw(name)
		if err != nil {
			return nil, err
		}
		params, err := c.paramSets.Load(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ParamSetItem{Name: name, Notes: raw.Notes, Params: params})
	}
	return out, nil
}

// Batches lists recorded batch manifests newest first.
func (c *Client) Batches(_ context.Context) ([]BatchManifest, error) {
	return stats.ListBatchManifests(c.runsDir)
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) indexEntry(runID string) (stats.RunIndexEntry, bool, error) {
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return stats.RunIndexEntry{}, false, err
	}
	for _, e := range entries {
		if e.RunID == runID {
			return e, true, nil
		}
	}
	return stats.RunIndexEntry{}, false, nil
}

func newRunID(t time.Time) string {
	return strftime.Format(runIDTimeLayout, t) + "-" + uuid.NewString()[:8]
}

func paramSetName(name string) string {
	if name == "" {
		return paramset.DefaultName
	}
	return name
}
