package metrics

import (
	"math"
	"sort"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// DefaultWindowSize is the per-operation percentile window capacity.
const DefaultWindowSize = 100

// Aggregator holds running statistics for a single operation name.
// Counts, sum, min and max are exact over the aggregator's lifetime.
// The p95 estimate is computed from a fixed-capacity FIFO window of the
// most recent durations; P50/P90/P99 come from a lifetime HDR histogram.
type Aggregator struct {
	mu         sync.Mutex
	operation  string
	windowSize int

	total     int64
	successes int64
	failures  int64

	sumMS float64
	minMS float64
	maxMS float64

	// Fixed-capacity ring of the most recent durations. Insertion
	// order is irrelevant: percentile computation sorts a copy.
	window []float64
	next   int

	errorsByType map[string]int64
	hist         *hdrhistogram.Histogram
}

// OperationStats is a read-only projection of an Aggregator.
type OperationStats struct {
	Operation          string           `json:"operation"`
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	SuccessRate        float64          `json:"success_rate"`
	AverageDurationMS  float64          `json:"average_duration_ms"`
	MinDurationMS      float64          `json:"min_duration_ms"`
	MaxDurationMS      float64          `json:"max_duration_ms"`
	P50DurationMS      float64          `json:"p50_duration_ms"`
	P90DurationMS      float64          `json:"p90_duration_ms"`
	P95DurationMS      float64          `json:"p95_duration_ms"`
	P99DurationMS      float64          `json:"p99_duration_ms"`
	WindowSamples      int              `json:"window_samples"`
	Errors             map[string]int64 `json:"errors,omitempty"`
}

func newAggregator(operation string, windowSize int) *Aggregator {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Aggregator{
		operation:    operation,
		windowSize:   windowSize,
		minMS:        math.Inf(1),
		window:       make([]float64, 0, windowSize),
		errorsByType: make(map[string]int64),
		// Track durations from 1µs up to 60s with 3 significant figures.
		hist: hdrhistogram.New(1, 60_000_000, 3),
	}
}

// AddMeasurement folds one completed execution into the running stats.
// Negative durations are clamped to zero. Safe for concurrent use.
func (a *Aggregator) AddMeasurement(durationMS float64, success bool) {
	a.add(durationMS, success, "")
}

func (a *Aggregator) add(durationMS float64, success bool, errorType string) {
	if durationMS < 0 || math.IsNaN(durationMS) {
		durationMS = 0
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	if success {
		a.successes++
	} else {
		a.failures++
		if errorType != "" {
			a.errorsByType[errorType]++
		}
	}

	a.sumMS += durationMS
	if durationMS < a.minMS {
		a.minMS = durationMS
	}
	if durationMS > a.maxMS {
		a.maxMS = durationMS
	}

	if len(a.window) < a.windowSize {
		a.window = append(a.window, durationMS)
	} else {
		a.window[a.next] = durationMS
		a.next = (a.next + 1) % a.windowSize
	}

	us := int64(durationMS * 1000)
	if us < a.hist.LowestTrackableValue() {
		us = a.hist.LowestTrackableValue()
	}
	if us > a.hist.HighestTrackableValue() {
		us = a.hist.HighestTrackableValue()
	}
	_ = a.hist.RecordValue(us)
}

// Snapshot returns a consistent projection of the aggregator. All
// fields are read under one lock acquisition, so the result always
// corresponds to a state that actually existed.
func (a *Aggregator) Snapshot() OperationStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := OperationStats{
		Operation:          a.operation,
		TotalRequests:      a.total,
		SuccessfulRequests: a.successes,
		FailedRequests:     a.failures,
		MaxDurationMS:      a.maxMS,
		WindowSamples:      len(a.window),
	}

	if a.total > 0 {
		stats.SuccessRate = 100 * float64(a.successes) / float64(a.total)
		stats.AverageDurationMS = a.sumMS / float64(a.total)
		stats.MinDurationMS = a.minMS
	}

	stats.P95DurationMS = windowPercentile(a.window, 0.95)

	if a.hist.TotalCount() > 0 {
		stats.P50DurationMS = float64(a.hist.ValueAtQuantile(50)) / 1000
		stats.P90DurationMS = float64(a.hist.ValueAtQuantile(90)) / 1000
		stats.P99DurationMS = float64(a.hist.ValueAtQuantile(99)) / 1000
	}

	if len(a.errorsByType) > 0 {
		stats.Errors = make(map[string]int64, len(a.errorsByType))
		for k, v := range a.errorsByType {
			stats.Errors[k] = v
		}
	}

	return stats
}

// windowPercentile computes a nearest-rank percentile over a bounded
// sample window: sort ascending, pick index min(floor(q*len), len-1).
func windowPercentile(window []float64, q float64) float64 {
	if len(window) == 0 {
		return 0
	}
	sorted := make([]float64, len(window))
	copy(sorted, window)
	sort.Float64s(sorted)

	idx := int(math.Floor(q * float64(len(sorted))))
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
