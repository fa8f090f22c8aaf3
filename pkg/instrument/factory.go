package instrument

import (
	"time"

	"go.uber.org/zap"

	"github.com/opspulse/opspulse/pkg/metrics"
)

// Config is the host-facing configuration for instrumentation.
type Config struct {
	// EnableMetrics turns registry updates on. When false the
	// instrumentor still times and passes through every call but
	// records nothing.
	EnableMetrics bool `mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// DebugMode selects the categorized variant with all tracks
	// enabled. Only meaningful when EnableMetrics is true.
	DebugMode bool `mapstructure:"debug_mode" yaml:"debug_mode"`

	// SlowThreshold is the slow-operation warning threshold.
	// Zero selects DefaultSlowThreshold.
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold"`

	// WindowSize bounds each operation's percentile window.
	WindowSize int `mapstructure:"window_size" yaml:"window_size"`

	// RecentCapacity bounds the global recent-metrics buffer.
	RecentCapacity int `mapstructure:"recent_capacity" yaml:"recent_capacity"`
}

func (c *Config) normalize() {
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = DefaultSlowThreshold
	}
	if c.WindowSize <= 0 {
		c.WindowSize = metrics.DefaultWindowSize
	}
	if c.RecentCapacity <= 0 {
		c.RecentCapacity = metrics.DefaultRecentCapacity
	}
}

// VariantKind tags the instrumentor variant chosen at construction.
type VariantKind int

const (
	KindBasic VariantKind = iota
	KindCategorized
)

func (k VariantKind) String() string {
	if k == KindCategorized {
		return "categorized"
	}
	return "basic"
}

// Variant is the instrumentor selected by New. Exactly one of Basic or
// Categorized is non-nil, according to Kind; the selection never
// changes for the lifetime of the value.
type Variant struct {
	Kind        VariantKind
	Basic       *Instrumentor
	Categorized *Categorized
}

// New selects and constructs the instrumentor variant from cfg:
//
//   - metrics disabled: basic instrumentor, no tracking, no slow logging
//   - metrics enabled: basic instrumentor with tracking and slow logging
//   - metrics enabled + debug mode: categorized instrumentor, all tracks on
func New(cfg Config, logger *zap.Logger, opts ...Option) Variant {
	cfg.normalize()

	base := append([]Option{
		WithSlowThreshold(cfg.SlowThreshold),
		WithCapacities(cfg.WindowSize, cfg.RecentCapacity),
	}, opts...)

	switch {
	case !cfg.EnableMetrics:
		base = append(base, WithTracking(false), WithSlowLogging(false))
		return Variant{Kind: KindBasic, Basic: NewInstrumentor(logger, base...)}

	case cfg.DebugMode:
		tracks := TrackConfig{Tools: true, Resources: true, Prompts: true}
		return Variant{Kind: KindCategorized, Categorized: NewCategorized(logger, tracks, base...)}

	default:
		return Variant{Kind: KindBasic, Basic: NewInstrumentor(logger, base...)}
	}
}

// AllStats flattens the variant's snapshots into one map. Categorized
// operations are keyed "track/operation" to keep names collision-free.
func (v Variant) AllStats() map[string]metrics.OperationStats {
	switch v.Kind {
	case KindCategorized:
		detailed := v.Categorized.DetailedStats()
		out := make(map[string]metrics.OperationStats,
			len(detailed.Tools)+len(detailed.Resources)+len(detailed.Prompts))
		for name, stats := range detailed.Tools {
			out["tools/"+name] = stats
		}
		for name, stats := range detailed.Resources {
			out["resources/"+name] = stats
		}
		for name, stats := range detailed.Prompts {
			out["prompts/"+name] = stats
		}
		return out
	default:
		return v.Basic.Stats()
	}
}

// RecentMetrics returns the variant's recent records, newest first.
func (v Variant) RecentMetrics(limit int) []metrics.Record {
	if v.Kind == KindCategorized {
		return v.Categorized.RecentMetrics(limit)
	}
	return v.Basic.RecentMetrics(limit)
}

// ResetStats clears all collected state for the variant.
func (v Variant) ResetStats() {
	if v.Kind == KindCategorized {
		v.Categorized.ResetStats()
		return
	}
	v.Basic.ResetStats()
}
