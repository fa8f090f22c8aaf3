package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "opspulse",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Workload flags
	flags.String("scenario", "", "Path to workload scenario file (YAML)")
	flags.Int64("seed", 0, "Random seed for the workload simulator (0 means time-based)")

	// Load control flags
	flags.IntP("concurrency", "c", 1, "Number of concurrent workers")
	flags.IntP("rate", "r", 0, "Operations per second limit (0 means unlimited)")
	flags.DurationP("duration", "d", 0, "How long to run (e.g. 30s, 1m)")
	flags.IntP("total", "t", 0, "Total number of operations to execute (0 means unlimited)")

	// Instrumentation flags
	flags.Bool("enable-metrics", true, "Record per-operation statistics")
	flags.Bool("debug-mode", false, "Use the categorized instrumentor (tools/resources/prompts tracks)")
	flags.Duration("slow-threshold", time.Second, "Duration above which an operation is logged as slow")
	flags.Int("window-size", 0, "Per-operation percentile window capacity (0 means default)")
	flags.Int("recent-capacity", 0, "Global recent-metrics buffer capacity (0 means default)")

	// Output flags
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.String("output", string(OutputText), "Report format: text, json or yaml")
	flags.Int("recent-limit", 10, "Number of recent metrics to include in the report")
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g. 'fetch_page:p95 < 500' or '*:success_rate >= 99')")
	flags.Bool("fail-on-error", false, "Exit non-zero when any operation failed")

	flags.String("config", "", "Path to configuration file (YAML)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error

	stringFlag := func(name string, dst *string) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val string
		if val, err = fs.GetString(name); err == nil {
			*dst = val
		}
	}
	intFlag := func(name string, dst *int) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val int
		if val, err = fs.GetInt(name); err == nil {
			*dst = val
		}
	}
	boolFlag := func(name string, dst *bool) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val bool
		if val, err = fs.GetBool(name); err == nil {
			*dst = val
		}
	}
	durationFlag := func(name string, dst *time.Duration) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val time.Duration
		if val, err = fs.GetDuration(name); err == nil {
			*dst = val
		}
	}

	stringFlag("scenario", &cfg.ScenarioFile)
	intFlag("concurrency", &cfg.Concurrency)
	intFlag("rate", &cfg.Rate)
	durationFlag("duration", &cfg.Duration)
	intFlag("total", &cfg.Total)

	if fs.Changed("seed") {
		val, seedErr := fs.GetInt64("seed")
		if seedErr != nil {
			return seedErr
		}
		cfg.Seed = val
	}

	boolFlag("enable-metrics", &cfg.Instrumentation.EnableMetrics)
	boolFlag("debug-mode", &cfg.Instrumentation.DebugMode)
	durationFlag("slow-threshold", &cfg.Instrumentation.SlowThreshold)
	intFlag("window-size", &cfg.Instrumentation.WindowSize)
	intFlag("recent-capacity", &cfg.Instrumentation.RecentCapacity)

	boolFlag("dashboard", &cfg.Dashboard)
	intFlag("recent-limit", &cfg.RecentLimit)
	boolFlag("fail-on-error", &cfg.FailOnError)

	if fs.Changed("output") {
		val, outErr := fs.GetString("output")
		if outErr != nil {
			return outErr
		}
		cfg.Output = OutputFormat(val)
	}
	if fs.Changed("threshold") {
		val, thErr := fs.GetStringSlice("threshold")
		if thErr != nil {
			return thErr
		}
		cfg.Thresholds = val
	}

	return err
}
