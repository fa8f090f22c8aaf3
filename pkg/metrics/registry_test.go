package metrics_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opspulse/opspulse/pkg/metrics"
)

var errBoom = errors.New("boom")

// record builds a Record with a fixed duration for aggregation tests.
func record(operation string, durationMS float64, success bool) metrics.Record {
	start := time.Now()
	end := start.Add(time.Duration(durationMS * float64(time.Millisecond)))
	var err error
	if !success {
		err = errBoom
	}
	return metrics.NewRecord(operation, "", "", start, end, err)
}

func TestRegistryLazyAggregatorCreation(t *testing.T) {
	reg := metrics.NewRegistry(0, 0)
	if reg.Operations() != 0 {
		t.Fatalf("expected no aggregators, got %d", reg.Operations())
	}

	reg.Record(record("a", 1, true))
	reg.Record(record("b", 2, true))
	reg.Record(record("a", 3, true))

	if reg.Operations() != 2 {
		t.Errorf("expected 2 aggregators, got %d", reg.Operations())
	}

	all := reg.SnapshotAll()
	if all["a"].TotalRequests != 2 {
		t.Errorf("expected a=2, got %d", all["a"].TotalRequests)
	}
	if all["b"].TotalRequests != 1 {
		t.Errorf("expected b=1, got %d", all["b"].TotalRequests)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	reg := metrics.NewRegistry(0, 0)
	for _, op := range []string{"A", "B", "C"} {
		reg.Record(record(op, 1, true))
	}

	recent := reg.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Operation != "C" || recent[1].Operation != "B" {
		t.Errorf("expected [C B], got [%s %s]", recent[0].Operation, recent[1].Operation)
	}
}

func TestRecentBufferBounded(t *testing.T) {
	capacity := 50
	reg := metrics.NewRegistry(0, capacity)

	for i := 0; i < 1000; i++ {
		reg.Record(record("op", float64(i), true))
	}

	if got := reg.RecentLen(); got != capacity {
		t.Errorf("expected recent buffer capped at %d, got %d", capacity, got)
	}
	stats := reg.SnapshotAll()["op"]
	if stats.TotalRequests != 1000 {
		t.Errorf("expected exact total 1000 despite eviction, got %d", stats.TotalRequests)
	}

	// Newest entry must be the last one recorded.
	recent := reg.Recent(1)
	if len(recent) != 1 || recent[0].DurationMS != 999 {
		t.Errorf("expected newest duration 999, got %+v", recent)
	}
}

func TestRecentWrapsRingOrder(t *testing.T) {
	reg := metrics.NewRegistry(0, 3)
	for _, op := range []string{"a", "b", "c", "d", "e"} {
		reg.Record(record(op, 1, true))
	}

	recent := reg.Recent(0)
	if len(recent) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(recent))
	}
	want := []string{"e", "d", "c"}
	for i, op := range want {
		if recent[i].Operation != op {
			t.Errorf("entry %d: expected %s, got %s", i, op, recent[i].Operation)
		}
	}
}

func TestResetClearsEverything(t *testing.T) {
	reg := metrics.NewRegistry(0, 0)
	reg.Record(record("a", 1, true))
	reg.Record(record("b", 2, false))

	reg.Reset()

	if len(reg.SnapshotAll()) != 0 {
		t.Error("expected empty snapshot after reset")
	}
	if len(reg.Recent(0)) != 0 {
		t.Error("expected empty recent buffer after reset")
	}

	// Registry stays usable after reset.
	reg.Record(record("a", 1, true))
	if reg.SnapshotAll()["a"].TotalRequests != 1 {
		t.Error("expected registry usable after reset")
	}
}

func TestFailureRecordsErrorBreakdown(t *testing.T) {
	reg := metrics.NewRegistry(0, 0)
	reg.Record(record("op", 1, false))
	reg.Record(record("op", 1, false))
	reg.Record(record("op", 1, true))

	stats := reg.SnapshotAll()["op"]
	if stats.FailedRequests != 2 {
		t.Fatalf("expected 2 failures, got %d", stats.FailedRequests)
	}
	if len(stats.Errors) != 1 {
		t.Fatalf("expected one error type, got %v", stats.Errors)
	}
	for typ, n := range stats.Errors {
		if n != 2 {
			t.Errorf("expected count 2 for %s, got %d", typ, n)
		}
	}
}

func TestConcurrentRecordAndSnapshot(t *testing.T) {
	reg := metrics.NewRegistry(0, 0)
	ops := []string{"alpha", "beta", "gamma"}

	var wg sync.WaitGroup
	wg.Add(len(ops) + 1)
	for _, op := range ops {
		go func(op string) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				reg.Record(record(op, float64(i%10), i%7 != 0))
			}
		}(op)
	}
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			for _, stats := range reg.SnapshotAll() {
				if stats.SuccessfulRequests+stats.FailedRequests != stats.TotalRequests {
					t.Errorf("torn snapshot: %d + %d != %d",
						stats.SuccessfulRequests, stats.FailedRequests, stats.TotalRequests)
				}
			}
			_ = reg.Recent(10)
		}
	}()
	wg.Wait()

	all := reg.SnapshotAll()
	for _, op := range ops {
		if all[op].TotalRequests != 200 {
			t.Errorf("%s: expected total 200, got %d", op, all[op].TotalRequests)
		}
	}
}
