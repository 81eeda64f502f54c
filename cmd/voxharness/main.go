// Command voxharness runs declarative voice-conversation test scenarios
// against a system under test, scores the results, and emits JUnit/HTML/
// regression reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxharness/internal/adapter"
	"voxharness/internal/adapter/wsadapter"
	"voxharness/internal/clock"
	"voxharness/internal/env"
	"voxharness/internal/harnesserr"
	"voxharness/internal/model"
	"voxharness/internal/orchestrator"
	"voxharness/internal/reporting"
	"voxharness/internal/results"
	"voxharness/internal/scoring"
	"voxharness/internal/simulation/audio"
	"voxharness/internal/simulation/bargein"
	"voxharness/internal/simulation/network"
	"voxharness/internal/simulation/noise"
	"voxharness/internal/simulation/physicalworld"
	"voxharness/internal/simulation/video"
	"voxharness/internal/store"
	"voxharness/internal/tools"
)

// config holds the run-wide knobs loaded from flags and the environment.
type config struct {
	scenarioGlob  string
	sutURL        string
	mockCatalogue string
	realtime      bool
	speed         float64
	junitOut      string
	htmlOut       string
	baselineDir   string
	baselineName  string
	updateBaseline bool
	storeDSN      string
}

func parseFlags() config {
	var c config
	flag.StringVar(&c.scenarioGlob, "scenario", "", "scenario YAML file or glob (required)")
	flag.StringVar(&c.sutURL, "sut-url", "", "WebSocket URL of the system under test; omit to dry-run simulation layers only")
	flag.StringVar(&c.mockCatalogue, "mock-tools", "all", "mock tool catalogue to register: hotel, general, all, none")
	flag.BoolVar(&c.realtime, "realtime", false, "pace the clock against wall time instead of advancing instantaneously")
	flag.Float64Var(&c.speed, "speed", 1.0, "realtime pacing multiplier (ignored unless -realtime)")
	flag.StringVar(&c.junitOut, "junit", "", "write a JUnit XML report to this path")
	flag.StringVar(&c.htmlOut, "html", "", "write an HTML summary report to this path")
	flag.StringVar(&c.baselineDir, "baseline-dir", ".baselines", "directory holding regression baseline JSON files")
	flag.StringVar(&c.baselineName, "baseline", "latest", "regression baseline name to compare against")
	flag.BoolVar(&c.updateBaseline, "update-baseline", false, "overwrite the baseline with this run's metrics instead of checking it")
	flag.StringVar(&c.storeDSN, "store", env.Str("VOXHARNESS_STORE_DSN", ""), "run-history store DSN: postgres://... or a sqlite file path")
	flag.Parse()
	return c
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	c := parseFlags()
	if c.scenarioGlob == "" {
		slog.Error("missing required -scenario flag", "error", fmt.Errorf("%w: -scenario is required", harnesserr.ErrConfig))
		os.Exit(2)
	}

	paths, err := filepath.Glob(c.scenarioGlob)
	if err != nil || len(paths) == 0 {
		slog.Error("no scenario files matched", "pattern", c.scenarioGlob, "error", fmt.Errorf("%w: no scenario files matched %q: %v", harnesserr.ErrConfig, c.scenarioGlob, err))
		os.Exit(2)
	}

	runStore := openStore(c.storeDSN)
	var recorder *store.Recorder
	if runStore != nil {
		recorder = store.NewRecorder(runStore)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go awaitShutdown(cancel)
	defer cancel()

	allResults := make([]*results.TestResults, 0, len(paths))
	evaluations := make([]scoring.EvaluationReport, 0, len(paths))

	exitCode := 0
	for _, path := range paths {
		res, report, err := runScenario(ctx, path, c, recorder)
		if err != nil {
			slog.Error("scenario run failed", "path", path, "error", err)
			exitCode = 1
			continue
		}
		allResults = append(allResults, res)
		evaluations = append(evaluations, report)
		if !res.AllPassed() {
			exitCode = 1
		}
	}

	if recorder != nil {
		recorder.Close()
	}
	if runStore != nil {
		runStore.Close()
	}

	if err := writeReports(c, allResults, evaluations); err != nil {
		slog.Error("report generation failed", "error", err)
		exitCode = 1
	}

	os.Exit(exitCode)
}

func runScenario(ctx context.Context, path string, c config, recorder *store.Recorder) (*results.TestResults, scoring.EvaluationReport, error) {
	scenario, err := orchestrator.LoadScenarioFile(path)
	if err != nil {
		return nil, scoring.EvaluationReport{}, fmt.Errorf("%w: load scenario: %w", harnesserr.ErrConfig, err)
	}
	name, _ := scenario["name"].(string)
	if name == "" {
		name = filepath.Base(path)
	}

	clk := clock.New(c.realtime, c.speed)
	orch := orchestrator.New(clk)

	registry := tools.New(clk)
	registerMocks(registry, c.mockCatalogue)
	orch.RegisterLayer("tools", registry)
	orch.RegisterLayer("audio", audio.NewStream(audio.DefaultConfig(), clk))
	orch.RegisterLayer("video", video.NewStream(video.DefaultConfig(), clk))
	orch.RegisterLayer("environment", noise.New("quiet_room", nil, audio.DefaultConfig().SampleRate))
	orch.RegisterLayer("network", network.New("perfect", nil, nil, nil, 0))
	orch.RegisterLayer("barge_in", bargein.New(clk))
	orch.RegisterLayer("physical_world", physicalworld.New())

	var system adapter.VoiceSystem
	if c.sutURL != "" {
		ws := wsadapter.New(c.sutURL, nil, nil)
		for _, toolName := range registry.Names() {
			tn := toolName
			handler := func(ctx context.Context, args map[string]any) model.ToolResult {
				return registry.HandleCall(ctx, tn, args)
			}
			if err := ws.RegisterToolHandler(tn, handler); err != nil {
				return nil, scoring.EvaluationReport{}, fmt.Errorf("register tool handler %q: %w", tn, err)
			}
		}
		if err := ws.Connect(ctx); err != nil {
			return nil, scoring.EvaluationReport{}, fmt.Errorf("%w: connect to system under test: %w", harnesserr.ErrConnection, err)
		}
		defer ws.Disconnect(ctx)
		system = ws
	}

	started := time.Now()
	res, err := orch.Run(ctx, scenario, system)
	if err != nil {
		return nil, scoring.EvaluationReport{}, fmt.Errorf("run: %w", err)
	}
	durationMS := float64(time.Since(started).Milliseconds())

	framework := scoring.New()
	report := framework.Evaluate(ctx, res)

	if recorder != nil {
		recorder.Record(name, started, durationMS, res, map[string]any{
			"latency":     report.Latency,
			"accuracy":    report.Accuracy,
			"naturalness": report.Naturalness,
			"tool_use":    report.ToolUse,
			"overall":     report.OverallScore,
		}, res.Tags)
	}

	slog.Info("scenario complete", "name", name, "passed", res.AllPassed(), "overall_score", report.OverallScore, "duration_ms", durationMS)
	return res, report, nil
}

func registerMocks(registry *tools.Registry, catalogue string) {
	switch strings.ToLower(catalogue) {
	case "hotel":
		tools.RegisterHotelBookingMocks(registry)
	case "general":
		tools.RegisterGeneralMocks(registry)
	case "all":
		tools.RegisterHotelBookingMocks(registry)
		tools.RegisterGeneralMocks(registry)
	case "none":
	default:
		slog.Warn("unknown mock catalogue, registering none", "catalogue", catalogue)
	}
}

func openStore(dsn string) *store.Store {
	if dsn == "" {
		return nil
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s, err := store.OpenPostgres(dsn)
		if err != nil {
			slog.Warn("store: postgres open failed, continuing without run history", "error", err)
			return nil
		}
		slog.Info("run-history store enabled", "backend", "postgres")
		return s
	}
	s, err := store.OpenSQLite(dsn)
	if err != nil {
		slog.Warn("store: sqlite open failed, continuing without run history", "error", err)
		return nil
	}
	slog.Info("run-history store enabled", "backend", "sqlite", "path", dsn)
	return s
}

func writeReports(c config, allResults []*results.TestResults, evaluations []scoring.EvaluationReport) error {
	if c.junitOut != "" {
		w := reporting.NewJUnitWriter("voxharness")
		if err := w.Write(allResults, c.junitOut); err != nil {
			return fmt.Errorf("junit: %w", err)
		}
	}
	if c.htmlOut != "" {
		r := reporting.NewHTMLReporter("voxharness scenario run")
		if err := r.Generate(allResults, c.htmlOut, evaluations, nil); err != nil {
			return fmt.Errorf("html: %w", err)
		}
	}

	detector := reporting.NewRegressionDetector(c.baselineDir, 0.05)
	if c.updateBaseline {
		if err := detector.UpdateBaseline(allResults, c.baselineName); err != nil {
			return fmt.Errorf("update baseline: %w", err)
		}
		slog.Info("baseline updated", "name", c.baselineName)
		return nil
	}

	regression, err := detector.Check(allResults, c.baselineName)
	if err != nil {
		return fmt.Errorf("regression check: %w", err)
	}
	if regression.HasRegression {
		for _, reg := range regression.Regressions {
			slog.Warn("regression detected", "metric", reg.Metric, "baseline", reg.Baseline, "current", reg.Current, "delta_pct", reg.DeltaPct)
		}
	}
	return nil
}

func awaitShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)
	cancel()
}
