package instrument

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/opspulse/opspulse/pkg/metrics"
)

// TrackConfig selects which categories record measurements. A disabled
// track still executes handlers and passes their outcome through; it
// just never touches its registry.
type TrackConfig struct {
	Tools     bool
	Resources bool
	Prompts   bool
}

// Categorized composes three independent instrumentation tracks, one
// per operation category, each backed by its own registry. The tracks
// are fixed at construction and reset together.
type Categorized struct {
	tools     *Instrumentor
	resources *Instrumentor
	prompts   *Instrumentor
}

// DetailedStats is the per-track stats snapshot. A track with no
// recorded operations yields an empty, non-nil map.
type DetailedStats struct {
	Tools     map[string]metrics.OperationStats `json:"tools"`
	Resources map[string]metrics.OperationStats `json:"resources"`
	Prompts   map[string]metrics.OperationStats `json:"prompts"`
}

// NewCategorized creates a categorized instrumentor. Options apply to
// every track; per-track tracking is governed by tracks, overriding
// any WithTracking option.
func NewCategorized(logger *zap.Logger, tracks TrackConfig, opts ...Option) *Categorized {
	build := func(enabled bool) *Instrumentor {
		trackOpts := append([]Option{}, opts...)
		trackOpts = append(trackOpts, WithTracking(enabled))
		return NewInstrumentor(logger, trackOpts...)
	}
	return &Categorized{
		tools:     build(tracks.Tools),
		resources: build(tracks.Resources),
		prompts:   build(tracks.Prompts),
	}
}

// ProcessTool runs a tool-call handler under the tools track.
func ProcessTool[T any](ctx context.Context, c *Categorized, name string, handler func(context.Context) (T, error), opts ...CallOption) (T, error) {
	return Process(ctx, c.tools, name, handler, opts...)
}

// ProcessResource runs a resource-read handler under the resources track.
func ProcessResource[T any](ctx context.Context, c *Categorized, uri string, handler func(context.Context) (T, error), opts ...CallOption) (T, error) {
	return Process(ctx, c.resources, uri, handler, opts...)
}

// ProcessPrompt runs a prompt-generation handler under the prompts track.
func ProcessPrompt[T any](ctx context.Context, c *Categorized, name string, handler func(context.Context) (T, error), opts ...CallOption) (T, error) {
	return Process(ctx, c.prompts, name, handler, opts...)
}

// DetailedStats snapshots all three tracks.
func (c *Categorized) DetailedStats() DetailedStats {
	return DetailedStats{
		Tools:     c.tools.Stats(),
		Resources: c.resources.Stats(),
		Prompts:   c.prompts.Stats(),
	}
}

// RecentMetrics merges the tracks' recent buffers, newest first.
// Record IDs are ULIDs, so sorting by ID descending yields creation
// order across registries.
func (c *Categorized) RecentMetrics(limit int) []metrics.Record {
	merged := append([]metrics.Record{}, c.tools.RecentMetrics(limit)...)
	merged = append(merged, c.resources.RecentMetrics(limit)...)
	merged = append(merged, c.prompts.RecentMetrics(limit)...)

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ID > merged[j].ID
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// ResetStats clears all three tracks together.
func (c *Categorized) ResetStats() {
	c.tools.ResetStats()
	c.resources.ResetStats()
	c.prompts.ResetStats()
}

// Tools returns the tools-track instrumentor.
func (c *Categorized) Tools() *Instrumentor { return c.tools }

// Resources returns the resources-track instrumentor.
func (c *Categorized) Resources() *Instrumentor { return c.resources }

// Prompts returns the prompts-track instrumentor.
func (c *Categorized) Prompts() *Instrumentor { return c.prompts }
