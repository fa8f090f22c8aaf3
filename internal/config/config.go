package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/opspulse/opspulse/pkg/instrument"
)

// OutputFormat selects how the final report is rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

// Config drives one harness run: which workload scenario to execute,
// how hard to drive it, which instrumentor variant to build, and how
// to present the collected statistics.
type Config struct {
	ScenarioFile string `mapstructure:"scenario"`

	// Load control
	Concurrency int           `mapstructure:"concurrency"`
	Rate        int           `mapstructure:"rate"`
	Duration    time.Duration `mapstructure:"duration"`
	Total       int           `mapstructure:"total"`
	Seed        int64         `mapstructure:"seed"`

	// Instrumentation selection and tuning
	Instrumentation instrument.Config `mapstructure:"instrumentation"`

	// Output
	Dashboard   bool         `mapstructure:"dashboard"`
	Output      OutputFormat `mapstructure:"output"`
	RecentLimit int          `mapstructure:"recent_limit"`
	Thresholds  []string     `mapstructure:"thresholds"`
	FailOnError bool         `mapstructure:"fail_on_error"`

	Tracing TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// TracingConfig configures the optional OTLP span export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// ValidationError aggregates every problem found in one pass.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

// Issues returns the individual validation problems.
func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be at least 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate cannot be negative")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration cannot be negative")
	}
	if c.Total < 0 {
		issues = append(issues, "total cannot be negative")
	}
	if c.Duration == 0 && c.Total == 0 {
		issues = append(issues, "either duration or total must be set")
	}

	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("unknown output format %q", c.Output))
	}

	if c.Instrumentation.WindowSize < 0 {
		issues = append(issues, "instrumentation.window_size cannot be negative")
	}
	if c.Instrumentation.RecentCapacity < 0 {
		issues = append(issues, "instrumentation.recent_capacity cannot be negative")
	}

	if c.Tracing.Enabled {
		switch strings.ToLower(c.Tracing.Protocol) {
		case "", "grpc", "http":
		default:
			issues = append(issues, fmt.Sprintf("tracing.protocol must be grpc or http, got %q", c.Tracing.Protocol))
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
			issues = append(issues, fmt.Sprintf("tracing.sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
