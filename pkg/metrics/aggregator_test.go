package metrics_test

import (
	"math"
	"sync"
	"testing"

	"github.com/opspulse/opspulse/pkg/metrics"
)

const floatTolerance = 1e-9

func TestAggregatorRunningStats(t *testing.T) {
	reg := metrics.NewRegistry(0, 0)
	durations := []float64{10, 20, 30, 40, 50}
	for _, d := range durations {
		reg.Record(record("op", d, true))
	}

	stats := reg.SnapshotAll()["op"]

	if stats.TotalRequests != 5 {
		t.Errorf("expected total 5, got %d", stats.TotalRequests)
	}
	if stats.SuccessfulRequests != 5 {
		t.Errorf("expected successes 5, got %d", stats.SuccessfulRequests)
	}
	if stats.FailedRequests != 0 {
		t.Errorf("expected failures 0, got %d", stats.FailedRequests)
	}
	if math.Abs(stats.AverageDurationMS-30) > floatTolerance {
		t.Errorf("expected average 30ms, got %g", stats.AverageDurationMS)
	}
	if stats.MinDurationMS != 10 {
		t.Errorf("expected min 10ms, got %g", stats.MinDurationMS)
	}
	if stats.MaxDurationMS != 50 {
		t.Errorf("expected max 50ms, got %g", stats.MaxDurationMS)
	}
	if stats.SuccessRate != 100 {
		t.Errorf("expected success rate 100, got %g", stats.SuccessRate)
	}
}

func TestAggregatorSuccessRateMix(t *testing.T) {
	reg := metrics.NewRegistry(0, 0)
	for i := 0; i < 3; i++ {
		reg.Record(record("op", 5, true))
	}
	reg.Record(record("op", 5, false))

	stats := reg.SnapshotAll()["op"]
	if stats.TotalRequests != 4 {
		t.Fatalf("expected total 4, got %d", stats.TotalRequests)
	}
	if math.Abs(stats.SuccessRate-75) > floatTolerance {
		t.Errorf("expected success rate 75, got %g", stats.SuccessRate)
	}
	if stats.SuccessfulRequests+stats.FailedRequests != stats.TotalRequests {
		t.Errorf("count invariant broken: %d + %d != %d",
			stats.SuccessfulRequests, stats.FailedRequests, stats.TotalRequests)
	}
}

func TestAggregatorEmptyDefaults(t *testing.T) {
	agg := metrics.NewRegistry(0, 0)
	stats := agg.SnapshotAll()
	if len(stats) != 0 {
		t.Fatalf("expected no operations, got %d", len(stats))
	}
}

func TestWindowPercentileNearestRank(t *testing.T) {
	reg := metrics.NewRegistry(100, 0)
	// 100 samples: 0ms..99ms.
	for i := 0; i < 100; i++ {
		reg.Record(record("op", float64(i), true))
	}

	stats := reg.SnapshotAll()["op"]
	if stats.P95DurationMS < 90 || stats.P95DurationMS > 99 {
		t.Errorf("expected p95 in [90, 99], got %g", stats.P95DurationMS)
	}
	if stats.WindowSamples != 100 {
		t.Errorf("expected 100 window samples, got %d", stats.WindowSamples)
	}
}

func TestMinMaxSurviveWindowEviction(t *testing.T) {
	window := 10
	reg := metrics.NewRegistry(window, 0)

	// Extremes recorded first, then enough samples to evict them from
	// the percentile window many times over.
	reg.Record(record("op", 1, true))
	reg.Record(record("op", 500, true))
	for i := 0; i < 100; i++ {
		reg.Record(record("op", 50, true))
	}

	stats := reg.SnapshotAll()["op"]
	if stats.MinDurationMS != 1 {
		t.Errorf("expected lifetime min 1ms, got %g", stats.MinDurationMS)
	}
	if stats.MaxDurationMS != 500 {
		t.Errorf("expected lifetime max 500ms, got %g", stats.MaxDurationMS)
	}
	if stats.WindowSamples != window {
		t.Errorf("expected window capped at %d, got %d", window, stats.WindowSamples)
	}
	if stats.P95DurationMS != 50 {
		t.Errorf("expected windowed p95 50ms after eviction, got %g", stats.P95DurationMS)
	}
}

func TestAggregatorTotalDurationExact(t *testing.T) {
	reg := metrics.NewRegistry(0, 0)
	var sum float64
	for i := 1; i <= 250; i++ {
		d := float64(i) * 0.5
		sum += d
		reg.Record(record("op", d, true))
	}

	stats := reg.SnapshotAll()["op"]
	wantAvg := sum / 250
	if math.Abs(stats.AverageDurationMS-wantAvg) > 1e-6 {
		t.Errorf("expected average %g, got %g", wantAvg, stats.AverageDurationMS)
	}
}

func TestAggregatorLifetimePercentiles(t *testing.T) {
	reg := metrics.NewRegistry(0, 0)
	// 1ms..100ms, uniform.
	for i := 1; i <= 100; i++ {
		reg.Record(record("op", float64(i), true))
	}

	stats := reg.SnapshotAll()["op"]
	if stats.P50DurationMS < 49 || stats.P50DurationMS > 51 {
		t.Errorf("expected P50 ~50ms, got %g", stats.P50DurationMS)
	}
	if stats.P99DurationMS < 98 || stats.P99DurationMS > 100 {
		t.Errorf("expected P99 ~99ms, got %g", stats.P99DurationMS)
	}
}

func TestConcurrentAddMeasurement(t *testing.T) {
	reg := metrics.NewRegistry(0, 0)

	var wg sync.WaitGroup
	workers := 10
	perWorker := 100

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				reg.Record(record("op", 1, true))
			}
		}()
	}
	wg.Wait()

	stats := reg.SnapshotAll()["op"]
	if stats.TotalRequests != int64(workers*perWorker) {
		t.Errorf("expected total %d, got %d", workers*perWorker, stats.TotalRequests)
	}
}
