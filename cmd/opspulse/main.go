package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/opspulse/opspulse/internal/config"
	"github.com/opspulse/opspulse/internal/dashboard"
	"github.com/opspulse/opspulse/internal/logging"
	"github.com/opspulse/opspulse/internal/output"
	"github.com/opspulse/opspulse/internal/runner"
	"github.com/opspulse/opspulse/internal/threshold"
	"github.com/opspulse/opspulse/internal/tracing"
	"github.com/opspulse/opspulse/internal/workload"
	"github.com/opspulse/opspulse/pkg/instrument"
)

const progressInterval = time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Instrumentation.DebugMode)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	variant := instrument.New(cfg.Instrumentation, logger, instrument.WithTracer(provider.Tracer()))

	scenario, scenarioName, err := loadScenario(cfg.ScenarioFile)
	if err != nil {
		return err
	}
	sim := workload.NewSimulator(scenario, cfg.Seed)

	logger.Info("starting run",
		zap.String("scenario", scenarioName),
		zap.String("variant", variant.Kind.String()),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Int("rate", cfg.Rate),
		zap.Duration("duration", cfg.Duration),
		zap.Int("total", cfg.Total),
	)

	r := runner.New(runner.Options{
		Concurrency: cfg.Concurrency,
		Total:       cfg.Total,
		Duration:    cfg.Duration,
		Rate:        cfg.Rate,
		Do: func(ctx context.Context) error {
			op := sim.Pick()
			return execute(ctx, variant, op, sim.Handler(op))
		},
	})

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(variant, dashboard.RunConfig{
			Scenario:    scenarioName,
			Concurrency: cfg.Concurrency,
			Duration:    cfg.Duration,
			Total:       cfg.Total,
			Rate:        cfg.Rate,
			ConfigFile:  cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
		defer dash.Stop()
	}

	var progress *output.ProgressReporter
	if cfg.Output == config.OutputText && !cfg.Dashboard {
		progress = output.NewProgressReporter(variant, progressInterval, os.Stdout)
		progress.Start()
		defer func() {
			progress.Stop()
			fmt.Fprintln(os.Stdout)
		}()
	}

	result := r.Run(ctx)

	report := output.Report{
		Total:    result.Total,
		Errors:   result.Errors,
		Duration: result.Duration,
		Stats:    variant.AllStats(),
		Recent:   variant.RecentMetrics(cfg.RecentLimit),
	}
	if len(thresholds) > 0 {
		report.Thresholds = threshold.NewEvaluator(thresholds).Evaluate(report.Stats)
	}

	switch cfg.Output {
	case config.OutputJSON:
		if err := output.PrintJSONReport(os.Stdout, report); err != nil {
			return err
		}
	case config.OutputYAML:
		if err := output.PrintYAMLReport(os.Stdout, report); err != nil {
			return err
		}
	default:
		output.PrintReport(os.Stdout, report)
	}

	if !threshold.AllPassed(report.Thresholds) {
		return fmt.Errorf("threshold check failed")
	}
	if cfg.FailOnError && result.Errors > 0 {
		return fmt.Errorf("%d operations failed", result.Errors)
	}
	return nil
}

func loadScenario(path string) (*workload.Scenario, string, error) {
	if path == "" {
		return workload.DefaultScenario(), "builtin", nil
	}
	sc, err := workload.LoadScenario(path)
	if err != nil {
		return nil, "", err
	}
	return sc, path, nil
}

// execute routes one operation through the instrumentor variant. The
// categorized variant dispatches on the operation's track; everything
// else goes through the basic instrumentor.
func execute(ctx context.Context, v instrument.Variant, op workload.Operation, handler func(context.Context) (string, error)) error {
	var opts []instrument.CallOption
	if op.Method != "" {
		opts = append(opts, instrument.WithMethod(op.Method))
	}
	if op.ClientInfo != "" {
		opts = append(opts, instrument.WithClientInfo(op.ClientInfo))
	}

	if v.Kind == instrument.KindCategorized {
		switch op.Track {
		case workload.TrackResource:
			_, err := instrument.ProcessResource(ctx, v.Categorized, op.Name, handler, opts...)
			return err
		case workload.TrackPrompt:
			_, err := instrument.ProcessPrompt(ctx, v.Categorized, op.Name, handler, opts...)
			return err
		default:
			_, err := instrument.ProcessTool(ctx, v.Categorized, op.Name, handler, opts...)
			return err
		}
	}

	_, err := instrument.Process(ctx, v.Basic, op.Name, handler, opts...)
	return err
}
