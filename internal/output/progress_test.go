package output_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opspulse/opspulse/internal/output"
	"github.com/opspulse/opspulse/pkg/metrics"
)

type staticSource struct {
	mu    sync.Mutex
	stats map[string]metrics.OperationStats
}

func (s *staticSource) AllStats() map[string]metrics.OperationStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestProgressReporterEmitsUpdates(t *testing.T) {
	source := &staticSource{stats: map[string]metrics.OperationStats{
		"fetch_page": {
			TotalRequests:  40,
			FailedRequests: 2,
			P95DurationMS:  120,
		},
		"summarize_page": {
			TotalRequests: 10,
		},
	}}

	var buf syncBuffer
	reporter := output.NewProgressReporter(source, 10*time.Millisecond, &buf)
	reporter.Start()
	time.Sleep(60 * time.Millisecond)
	reporter.Stop()

	got := buf.String()
	if !strings.Contains(got, "Operations: 50") {
		t.Errorf("progress line missing total: %q", got)
	}
	if !strings.Contains(got, "Failures: 2") {
		t.Errorf("progress line missing failures: %q", got)
	}
	if !strings.Contains(got, "Top: fetch_page") {
		t.Errorf("progress line missing top operation: %q", got)
	}
}

func TestProgressReporterStopIdempotent(t *testing.T) {
	source := &staticSource{stats: map[string]metrics.OperationStats{}}
	reporter := output.NewProgressReporter(source, 10*time.Millisecond, nil)
	reporter.Start()
	reporter.Start() // second start is a no-op
	reporter.Stop()
	reporter.Stop() // second stop must not panic
}

func TestProgressReporterNoUpdatesBeforeStart(t *testing.T) {
	source := &staticSource{stats: map[string]metrics.OperationStats{}}
	var buf syncBuffer
	output.NewProgressReporter(source, 5*time.Millisecond, &buf)
	time.Sleep(20 * time.Millisecond)
	if buf.String() != "" {
		t.Errorf("reporter wrote before Start: %q", buf.String())
	}
}
