package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/opspulse/opspulse/pkg/metrics"
)

// StatsSource yields a point-in-time view of per-operation stats.
type StatsSource interface {
	AllStats() map[string]metrics.OperationStats
}

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	source   StatsSource
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(source StatsSource, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		source:   source,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			stats := p.source.AllStats()
			var total, failures int64
			for _, s := range stats {
				total += s.TotalRequests
				failures += s.FailedRequests
			}
			elapsed := time.Since(p.start)
			rps := 0.0
			if elapsed > 0 {
				rps = float64(total) / elapsed.Seconds()
			}
			line := fmt.Sprintf("\rOperations: %d | Failures: %d | Rate: %.1f/s", total, failures, rps)
			if name, top, ok := topOperation(stats); ok && total > 0 {
				share := (float64(top.TotalRequests) / float64(total)) * 100
				line += fmt.Sprintf(" | Top: %s (%.0f%%, p95 %.1fms)", name, share, top.P95DurationMS)
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}

func topOperation(stats map[string]metrics.OperationStats) (string, metrics.OperationStats, bool) {
	var name string
	var top metrics.OperationStats
	for n, s := range stats {
		if name == "" || s.TotalRequests > top.TotalRequests {
			name = n
			top = s
		}
	}
	if name == "" {
		return "", metrics.OperationStats{}, false
	}
	return name, top, true
}
