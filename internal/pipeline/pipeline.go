package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/routespeed-cli/internal/aggregate"
	"github.com/KaramelBytes/routespeed-cli/internal/analysis"
	"github.com/KaramelBytes/routespeed-cli/internal/chart"
	"github.com/KaramelBytes/routespeed-cli/internal/config"
	"github.com/KaramelBytes/routespeed-cli/internal/dataset"
	"github.com/KaramelBytes/routespeed-cli/internal/logging"
	"github.com/KaramelBytes/routespeed-cli/internal/model"
	"github.com/KaramelBytes/routespeed-cli/internal/report"
	"github.com/KaramelBytes/routespeed-cli/internal/utils"
)

// Stage selects a downstream component.
type Stage string

const (
	StageDescribe Stage = "describe"
	StageExplore  Stage = "explore"
	StageEvaluate Stage = "evaluate"
)

// AllStages runs every downstream component in order.
var AllStages = []Stage{StageDescribe, StageExplore, StageEvaluate}

// Deps are the collaborators a run needs. Zero fields get defaults.
type Deps struct {
	Logger   *slog.Logger
	Out      io.Writer
	Renderer chart.Renderer
	Now      func() time.Time
}

// Result carries every table and metric a run produced.
type Result struct {
	Observations []dataset.Observation
	Aggregate    *aggregate.Result
	Periods      []analysis.PeriodSummary
	Samples      []analysis.PeriodSample
	Routes       []aggregate.RouteSummary
	Trend        *analysis.Trend
	Evaluation   *model.Result
	Manifest     Manifest
}

// Run loads and tidies the input, aggregates it, then runs the requested
// stages. No stages means all of them. Artifacts land in cfg.OutputDir.
func Run(ctx context.Context, cfg *config.Global, deps Deps, stages ...Stage) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: nil config")
	}
	deps = withDefaults(deps, cfg)
	if len(stages) == 0 {
		stages = AllStages
	}
	log := deps.Logger

	res, err := prepare(cfg, deps)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(cfg.OutputDir); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	man := newManifest(cfg, deps.Now(), stages)

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Debug("stage start", "stage", st)
		var files []string
		switch st {
		case StageDescribe:
			files, err = describe(cfg, deps, res)
		case StageExplore:
			files, err = explore(cfg, deps, res)
		case StageEvaluate:
			err = evaluate(ctx, cfg, deps, res)
		default:
			err = fmt.Errorf("unknown stage %q", st)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st, err)
		}
		man.Artifacts = append(man.Artifacts, files...)
	}

	if cfg.ExportXLSX {
		if res.Periods == nil {
			res.Periods = analysis.SummarizePeriods(res.Aggregate.Rows)
		}
		path := filepath.Join(cfg.OutputDir, report.ExportFile)
		if err := report.ExportXLSX(path, report.Tables{RouteSpeeds: res.Aggregate.Rows, Periods: res.Periods, Routes: res.Routes}); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		wrote(deps.Out, path)
		man.Artifacts = append(man.Artifacts, report.ExportFile)
	}

	if err := writeManifest(cfg.OutputDir, man); err != nil {
		return nil, err
	}
	log.Debug("manifest written", "run_id", man.RunID, "artifacts", len(man.Artifacts))
	res.Manifest = man
	return res, nil
}

func withDefaults(d Deps, cfg *config.Global) Deps {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Out == nil {
		d.Out = io.Discard
	}
	if d.Renderer == nil {
		d.Renderer = chart.NewSVG(cfg.ChartWidthIn, cfg.ChartHeightIn)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func prepare(cfg *config.Global, deps Deps) (*Result, error) {
	log := deps.Logger
	raw, err := dataset.Load(cfg.InputPath, dataset.LoadOptions{
		Delimiter: cfg.DelimiterRune(),
		Encoding:  cfg.InputEncoding,
		SheetName: cfg.SheetName,
	})
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	log.Info("loaded input", "path", cfg.InputPath, "rows", raw.Nrow(), "columns", raw.Ncol())

	tidy, err := dataset.Tidy(raw, cfg.DropColumns)
	if err != nil {
		return nil, fmt.Errorf("tidy: %w", err)
	}
	obs, err := dataset.Observations(tidy)
	if err != nil {
		return nil, fmt.Errorf("tidy: %w", err)
	}
	if cfg.HeadRows > 0 {
		report.TidyHead(deps.Out, obs, cfg.HeadRows)
	}

	agg, err := aggregate.Aggregate(obs, aggregate.Options{LengthPolicy: aggregate.LengthPolicy(cfg.LengthPolicy)})
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	if agg.MissingKey > 0 {
		log.Warn("observations with a blank or NaN key field left out of the aggregates", "rows", agg.MissingKey)
	}
	if n := len(agg.Inconsistent); n > 0 {
		first := agg.Inconsistent[0]
		log.Warn("route_length differs within group", "groups", n, "policy", cfg.LengthPolicy, "first", first.Key, "lengths", first.Lengths)
	}
	smallest, largest := agg.SizeSpread()
	if agg.SpreadExceeds(cfg.SpreadWarnRatio) {
		log.Warn("group sizes are uneven; means rest on very different sample counts",
			"smallest", smallest, "largest", largest, "ratio", cfg.SpreadWarnRatio)
	}
	routes, err := aggregate.SummarizeRoutes(obs)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	log.Info("aggregated", "observations", len(obs), "groups", len(agg.Rows), "routes", len(routes))

	report.Summary(deps.Out, report.DatasetSummary{
		Input:        cfg.InputPath,
		Observations: len(obs),
		Groups:       len(agg.Rows),
		MissingKey:   agg.MissingKey,
		Routes:       len(routes),
		Inconsistent: len(agg.Inconsistent),
		SmallestSize: smallest,
		LargestSize:  largest,
	})
	if cfg.HeadRows > 0 {
		report.RouteSpeedHead(deps.Out, agg.Rows, cfg.HeadRows)
	}
	return &Result{Observations: obs, Aggregate: agg, Routes: routes}, nil
}

func describe(cfg *config.Global, deps Deps, res *Result) ([]string, error) {
	res.Periods = analysis.SummarizePeriods(res.Aggregate.Rows)
	samples, dropped := analysis.PeriodValues(res.Aggregate.Rows)
	if dropped > 0 {
		deps.Logger.Warn("non-finite speeds left out of the distribution chart", "rows", dropped)
	}
	res.Samples = samples
	report.Periods(deps.Out, res.Periods)

	bar := filepath.Join(cfg.OutputDir, report.PeriodBarFile)
	if err := utils.WriteWith(bar, func(w io.Writer) error {
		return report.PeriodBarPage(w, deps.Renderer, res.Periods)
	}); err != nil {
		return nil, err
	}
	wrote(deps.Out, bar)

	box := filepath.Join(cfg.OutputDir, report.PeriodBoxFile)
	if err := utils.WriteWith(box, func(w io.Writer) error {
		return report.PeriodBoxPage(w, deps.Renderer, samples, res.Periods)
	}); err != nil {
		return nil, err
	}
	wrote(deps.Out, box)
	return []string{report.PeriodBarFile, report.PeriodBoxFile}, nil
}

func explore(cfg *config.Global, deps Deps, res *Result) ([]string, error) {
	routes := res.Routes
	tr, err := analysis.FitTrend(routes)
	switch {
	case errors.Is(err, analysis.ErrInsufficientData):
		deps.Logger.Warn("trend line skipped", "reason", err)
	case err != nil:
		return nil, err
	default:
		res.Trend = &tr
		report.Trend(deps.Out, tr)
	}

	path := filepath.Join(cfg.OutputDir, report.LengthSpeedFile)
	if err := utils.WriteWith(path, func(w io.Writer) error {
		return report.LengthSpeedPage(w, deps.Renderer, routes, res.Trend)
	}); err != nil {
		return nil, err
	}
	wrote(deps.Out, path)
	return []string{report.LengthSpeedFile}, nil
}

func evaluate(ctx context.Context, cfg *config.Global, deps Deps, res *Result) error {
	opt := model.Options{
		TestFraction: cfg.TestFraction,
		Folds:        cfg.Folds,
		KMin:         cfg.KMin,
		KMax:         cfg.KMax,
		Seed:         cfg.Seed,
		Weights:      model.Weighting(cfg.KNNWeights),
		Workers:      cfg.Workers,
	}
	start := deps.Now()
	ev, err := model.Evaluate(ctx, res.Aggregate.Rows, opt)
	if err != nil {
		return err
	}
	if ev.Search.Capped {
		deps.Logger.Warn("k range capped by fold size", "k_max", cfg.KMax, "used", ev.Search.Candidates[len(ev.Search.Candidates)-1].K)
	}
	deps.Logger.Info("models evaluated", "best_k", ev.BestK, "winner", ev.Winner, "elapsed", deps.Now().Sub(start))
	res.Evaluation = ev
	report.Comparison(deps.Out, ev)
	return nil
}

// Manifest records what a run read and wrote. It carries no metrics.
type Manifest struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Input     string    `json:"input"`
	Seed      int64     `json:"seed"`
	Stages    []Stage   `json:"stages"`
	Artifacts []string  `json:"artifacts"`
}

func newManifest(cfg *config.Global, now time.Time, stages []Stage) Manifest {
	return Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: now.UTC(),
		Input:     cfg.InputPath,
		Seed:      cfg.Seed,
		Stages:    stages,
		Artifacts: []string{},
	}
}

func writeManifest(dir string, m Manifest) error {
	b, err := utils.PrettyJSON(m)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	if err := utils.SafeWriteFile(filepath.Join(dir, report.ManifestFile), b); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

func wrote(w io.Writer, path string) {
	fmt.Fprintf(w, "✓ Wrote %s\n", path)
}
