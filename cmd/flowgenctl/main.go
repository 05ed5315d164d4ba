package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"channelflow/internal/stats"
	"channelflow/internal/storage"
	"channelflow/pkg/channelflow"
)

const (
	runsDir       = "runs"
	exportsDir    = "exports"
	defaultDBPath = "channelflow.db"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "generate":
		return runGenerate(ctx, args[1:])
	case "batch":
		return runBatch(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "plot":
		return runPlot(ctx, args[1:])
	case "paramsets":
		return runParamSets(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

type clientFlags struct {
	storeKind *string
	dbPath    *string
	paramDir  *string
	verbose   *bool
}

func registerClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		storeKind: fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:    fs.String("db-path", defaultDBPath, "sqlite database path"),
		paramDir:  fs.String("param-dir", "", "optional directory of parameter set overlays (<name>.yaml)"),
		verbose:   fs.Bool("v", false, "log generator activity to stderr"),
	}
}

func (f clientFlags) open() (*channelflow.Client, error) {
	opts := channelflow.Options{
		StoreKind:   *f.storeKind,
		DBPath:      *f.dbPath,
		RunsDir:     runsDir,
		ExportsDir:  exportsDir,
		ParamSetDir: *f.paramDir,
	}
	if *f.verbose {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return channelflow.New(opts)
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	fmt.Printf("initialized store=%s runs_dir=%s\n", *cf.storeKind, runsDir)
	return nil
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	configPath := fs.String("config", "", "optional generate config path (YAML or JSON)")
	paramSet := fs.String("param-set", "default", "named parameter set")
	seed := fs.Uint64("seed", 0, "rng seed (0 draws one and records it)")
	duration := fs.Float64("duration", 0, "series duration in seconds")
	timestep := fs.Float64("timestep", 0, "sampling interval in seconds")
	initialDepth := fs.Float64("initial-depth", 0, "baseline water depth (m)")
	initialSpeed := fs.Float64("initial-speed", 0, "baseline speed for the sinusoid speed model (m/s)")
	channelWidth := fs.Float64("channel-width", 0, "channel bed width (m)")
	bankAngle := fs.Float64("bank-angle", 0, "bank angle from horizontal (degrees)")
	manning := fs.Float64("manning", 0, "Manning roughness coefficient")
	slope := fs.Float64("slope", 0, "longitudinal bed slope")
	cycles := fs.Float64("cycles", 0, "forcing cycles over the duration")
	forcing := fs.String("forcing", "", "forcing function: sine|harmonic")
	areaFormula := fs.String("area-formula", "", "cross-sectional area formula: cubic|trapezoid")
	depthRule := fs.String("depth-rule", "", "depth rule: baseline|stacked")
	speedModel := fs.String("speed-model", "", "speed model: manning|sinusoid")
	noise := fs.String("noise", "", "noise profile: positive-bias|symmetric|continuous|none")
	precision := fs.Int("precision", 0, "decimal places kept on every sample field")
	jsonOut := fs.Bool("json", false, "emit run summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	cfg, err := loadOrDefaultGenerateConfig(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		cfg.ParamSet = *paramSet
	}
	overrideFromFlags(&cfg, setFlags, map[string]any{
		"param-set":     *paramSet,
		"seed":          *seed,
		"duration":      *duration,
		"timestep":      *timestep,
		"initial-depth": *initialDepth,
		"initial-speed": *initialSpeed,
		"channel-width": *channelWidth,
		"bank-angle":    *bankAngle,
		"manning":       *manning,
		"slope":         *slope,
		"cycles":        *cycles,
		"forcing":       *forcing,
		"area-formula":  *areaFormula,
		"depth-rule":    *depthRule,
		"speed-model":   *speedModel,
		"noise":         *noise,
		"precision":     *precision,
	})

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	progress := newProgressPrinter(os.Stdout)
	summary, err := client.Generate(ctx, channelflow.GenerateRequest{
		ParamSet:  cfg.ParamSet,
		Overrides: cfg.Overrides,
		Seed:      cfg.Seed,
		Progress:  progress.update,
	})
	progress.finish()
	if err != nil {
		return err
	}

	if *jsonOut {
		return writeJSON(summaryJSON(summary))
	}
	printRunSummary(summary)
	return nil
}

func runBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	configPath := fs.String("config", "", "batch config path (YAML or JSON) with a scenarios list")
	paramSets := fs.String("param-sets", "default", "comma-separated parameter sets (used without -config)")
	seeds := fs.String("seeds", "1", "comma-separated seeds crossed with -param-sets (used without -config)")
	workers := fs.Int("workers", 0, "concurrent scenarios (0 uses GOMAXPROCS)")
	jsonOut := fs.Bool("json", false, "emit batch summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	var cfg batchConfig
	if *configPath != "" {
		loaded, err := loadBatchConfig(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	} else {
		scenarios, err := crossScenarios(*paramSets, *seeds)
		if err != nil {
			return err
		}
		cfg.Scenarios = scenarios
	}
	if setFlags["workers"] || cfg.Workers == 0 {
		cfg.Workers = *workers
	}
	if cfg.Workers < 0 {
		return errors.New("workers must be >= 0")
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	batch, err := client.Batch(ctx, channelflow.BatchRequest{Scenarios: cfg.Scenarios, Workers: cfg.Workers})
	if err != nil {
		return err
	}

	if *jsonOut {
		type batchItem struct {
			BatchID string       `json:"batch_id"`
			Runs    []runSummary `json:"runs"`
		}
		out := batchItem{BatchID: batch.BatchID, Runs: make([]runSummary, 0, len(batch.Runs))}
		for _, r := range batch.Runs {
			out.Runs = append(out.Runs, summaryJSON(r))
		}
		return writeJSON(out)
	}
	fmt.Printf("batch_id=%s runs=%d\n", batch.BatchID, len(batch.Runs))
	for _, r := range batch.Runs {
		printRunSummary(r)
	}
	return nil
}

func crossScenarios(paramSets, seeds string) ([]channelflow.BatchScenario, error) {
	names := parseCommaSeparated(paramSets)
	if len(names) == 0 {
		return nil, errors.New("batch requires at least one parameter set")
	}
	rawSeeds := parseCommaSeparated(seeds)
	if len(rawSeeds) == 0 {
		return nil, errors.New("batch requires at least one seed")
	}
	out := make([]channelflow.BatchScenario, 0, len(names)*len(rawSeeds))
	for _, name := range names {
		for _, raw := range rawSeeds {
			seed, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse seed %q: %w", raw, err)
			}
			out = append(out, channelflow.BatchScenario{
				Name:     fmt.Sprintf("%s-seed%d", name, seed),
				ParamSet: name,
				Seed:     seed,
			})
		}
	}
	return out, nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, channelflow.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 && !*jsonOut {
		fmt.Println("no runs found")
		return nil
	}

	if *jsonOut {
		type runsItem struct {
			RunID        string  `json:"run_id"`
			CreatedAtUTC string  `json:"created_at_utc"`
			ParamSet     string  `json:"param_set"`
			Seed         uint64  `json:"seed"`
			SampleCount  int     `json:"sample_count"`
			Forcing      string  `json:"forcing"`
			NoiseProfile string  `json:"noise_profile"`
			MeanDepth    float64 `json:"mean_depth"`
		}
		items := make([]runsItem, 0, len(runs))
		for _, r := range runs {
			items = append(items, runsItem(r))
		}
		return writeJSON(items)
	}

	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s param_set=%s seed=%d samples=%s forcing=%s noise=%s mean_depth=%.4f\n",
			r.RunID,
			r.CreatedAtUTC,
			r.ParamSet,
			r.Seed,
			humanize.Comma(int64(r.SampleCount)),
			r.Forcing,
			r.NoiseProfile,
			r.MeanDepth,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run from run index")
	samples := fs.Int("samples", 0, "print the first N samples as CSV (0 prints none)")
	jsonOut := fs.Bool("json", false, "emit run detail as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("show requires --run-id or --latest")
	}
	if *samples < 0 {
		return errors.New("samples must be >= 0")
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	detail, err := client.Show(ctx, channelflow.ShowRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(detailJSON{
			RunID:        detail.RunID,
			ParamSet:     detail.ParamSet,
			Seed:         detail.Seed,
			CreatedAtUTC: detail.CreatedAtUTC,
			Params:       detail.Params,
			Summary:      detail.Summary,
		})
	}

	p := detail.Params
	fmt.Printf("run_id=%s created_at=%s param_set=%s seed=%d\n", detail.RunID, detail.CreatedAtUTC, detail.ParamSet, detail.Seed)
	fmt.Printf("params duration=%g timestep=%g initial_depth=%g channel_width=%g bank_angle=%g manning=%g slope=%g cycles=%g\n",
		p.Duration, p.Timestep, p.InitialDepth, p.ChannelWidth, p.BankAngleFromHorizontal, p.ManningCoefficient, p.ChannelSlope, p.NumCycles)
	fmt.Printf("models forcing=%s area=%s depth_rule=%s speed=%s noise=%s precision=%d\n",
		p.Forcing, p.AreaFormula, p.DepthRule, p.SpeedModel, p.NoiseProfile, p.Precision)
	printSeriesSummary(detail.Summary)

	if *samples > 0 {
		series, err := client.Samples(ctx, channelflow.SamplesRequest{RunID: detail.RunID, Limit: *samples})
		if err != nil {
			return err
		}
		return stats.WriteSamplesCSV(os.Stdout, series, p.Precision)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, channelflow.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	size, err := dirSize(exported.Directory)
	if err != nil {
		return err
	}

	fmt.Printf("exported run_id=%s to=%s size=%s\n", exported.RunID, exported.Directory, humanize.Bytes(size))
	return nil
}

func runPlot(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "plot the most recent run from run index")
	outDir := fs.String("out", "", "output directory (defaults to the run directory)")
	estimates := fs.String("estimates", "", "overlay flow estimates: measured.csv,previous.csv,current.csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("plot requires --run-id or --latest")
	}
	req := channelflow.PlotRequest{RunID: *runID, Latest: *latest, OutDir: *outDir}
	if *estimates != "" {
		files := strings.Split(*estimates, ",")
		if len(files) != 3 {
			return fmt.Errorf("--estimates wants measured,previous,current files, got %d", len(files))
		}
		req.MeasuredFile = strings.TrimSpace(files[0])
		req.PreviousFile = strings.TrimSpace(files[1])
		req.CurrentFile = strings.TrimSpace(files[2])
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	plotted, err := client.Plot(ctx, req)
	if err != nil {
		return err
	}
	for _, file := range plotted.Files {
		fmt.Printf("plotted run_id=%s file=%s\n", plotted.RunID, file)
	}
	return nil
}

func runParamSets(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("paramsets", flag.ContinueOnError)
	cf := registerClientFlags(fs)
	jsonOut := fs.Bool("json", false, "emit parameter sets as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	sets, err := client.ParamSets(ctx)
	if err != nil {
		return err
	}
	if *jsonOut {
		type paramSetItem struct {
			Name   string             `json:"name"`
			Notes  string             `json:"notes,omitempty"`
			Params channelflow.Params `json:"params"`
		}
		items := make([]paramSetItem, 0, len(sets))
		for _, s := range sets {
			items = append(items, paramSetItem(s))
		}
		return writeJSON(items)
	}

	for _, s := range sets {
		fmt.Printf("name=%s samples=%s duration=%g timestep=%g slope=%g forcing=%s noise=%s notes=%q\n",
			s.Name,
			humanize.Comma(int64(s.Params.StepCount())),
			s.Params.Duration,
			s.Params.Timestep,
			s.Params.ChannelSlope,
			s.Params.Forcing,
			s.Params.NoiseProfile,
			s.Notes,
		)
	}
	return nil
}

type runSummary struct {
	RunID        string                    `json:"run_id"`
	ParamSet     string                    `json:"param_set"`
	Seed         uint64                    `json:"seed"`
	ArtifactsDir string                    `json:"artifacts_dir"`
	SampleCount  int                       `json:"sample_count"`
	Summary      channelflow.SeriesSummary `json:"summary"`
}

type detailJSON struct {
	RunID        string                    `json:"run_id"`
	ParamSet     string                    `json:"param_set"`
	Seed         uint64                    `json:"seed"`
	CreatedAtUTC string                    `json:"created_at_utc,omitempty"`
	Params       channelflow.Params        `json:"params"`
	Summary      channelflow.SeriesSummary `json:"summary"`
}

func summaryJSON(s channelflow.RunSummary) runSummary {
	return runSummary{
		RunID:        s.RunID,
		ParamSet:     s.ParamSet,
		Seed:         s.Seed,
		ArtifactsDir: s.ArtifactsDir,
		SampleCount:  s.SampleCount,
		Summary:      s.Summary,
	}
}

func printRunSummary(s channelflow.RunSummary) {
	fmt.Printf("generated run_id=%s param_set=%s seed=%d samples=%s dir=%s\n",
		s.RunID, s.ParamSet, s.Seed, humanize.Comma(int64(s.SampleCount)), s.ArtifactsDir)
	printSeriesSummary(s.Summary)
}

func printSeriesSummary(s channelflow.SeriesSummary) {
	fmt.Printf("depth mean=%.4f std=%.4f min=%.4f max=%.4f min_at=%g\n", s.Depth.Mean, s.Depth.Std, s.Depth.Min, s.Depth.Max, s.MinDepthTime)
	fmt.Printf("width mean=%.4f std=%.4f min=%.4f max=%.4f\n", s.Width.Mean, s.Width.Std, s.Width.Min, s.Width.Max)
	fmt.Printf("speed mean=%.4f std=%.4f min=%.4f max=%.4f\n", s.Speed.Mean, s.Speed.Std, s.Speed.Min, s.Speed.Max)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseCommaSeparated(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dirSize(root string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	return total, err
}

// progressPrinter rewrites a single "generating data N%" line, and only when
// the output is a terminal.
type progressPrinter struct {
	out     *os.File
	enabled bool
	last    int
}

func newProgressPrinter(out *os.File) *progressPrinter {
	fd := out.Fd()
	return &progressPrinter{
		out:     out,
		enabled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		last:    -1,
	}
}

func (p *progressPrinter) update(done, total int) {
	if !p.enabled || total <= 0 {
		return
	}
	pct := done * 100 / total
	if pct == p.last {
		return
	}
	p.last = pct
	fmt.Fprintf(p.out, "\rgenerating data %d%%", pct)
}

func (p *progressPrinter) finish() {
	if p.enabled && p.last >= 0 {
		fmt.Fprintln(p.out)
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: flowgenctl <init|generate|batch|runs|show|export|plot|paramsets> [flags]", msg)
}
