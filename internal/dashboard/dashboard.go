package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/opspulse/opspulse/pkg/metrics"
)

// StatsProvider yields live per-operation stats and recent measurements.
type StatsProvider interface {
	AllStats() map[string]metrics.OperationStats
	RecentMetrics(limit int) []metrics.Record
}

// RunConfig holds run parameters for display.
type RunConfig struct {
	Scenario    string        // Scenario file or "builtin"
	Concurrency int           // Number of concurrent workers
	Duration    time.Duration // Run duration (0 = unlimited)
	Total       int           // Total operations to execute (0 = unlimited)
	Rate        int           // Operations per second (0 = unlimited)
	ConfigFile  string        // Path to config file if used
}

// Dashboard renders a live terminal UI for operation stats.
type Dashboard struct {
	provider     StatsProvider
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	successGauge   *widgets.Gauge
	failureList    *widgets.List
	operationList  *widgets.List
	summaryPara    *widgets.Paragraph
	latencyHistory []float64
	startTime      time.Time
	runConfig      RunConfig
}

// New creates a new Dashboard.
func New(provider StatsProvider, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		provider:       provider,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		runConfig:      cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Avg: 0ms\nMin: 0ms\nMax: 0ms\nP95: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.successGauge = widgets.NewGauge()
	d.successGauge.Title = "Success Rate"
	d.successGauge.Percent = 100
	d.successGauge.BarColor = ui.ColorBlue
	d.successGauge.BorderStyle.Fg = ui.ColorCyan
	d.successGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.failureList = widgets.NewList()
	d.failureList.Title = "Recent Failures"
	d.failureList.Rows = []string{"No failures"}
	d.failureList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.failureList.BorderStyle.Fg = ui.ColorCyan

	d.operationList = widgets.NewList()
	d.operationList.Title = "Operations"
	d.operationList.Rows = []string{"Awaiting data"}
	d.operationList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.operationList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.18,
			ui.NewCol(1.0, d.successGauge),
		),
		ui.NewRow(0.3,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.36,
			ui.NewCol(0.55, d.operationList),
			ui.NewCol(0.45, d.failureList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and cleans up.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the stats provider.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	stats := d.provider.AllStats()
	totals := overallTotals(stats)

	if totals.avgMS > 0 {
		d.latencyHistory = append(d.latencyHistory, totals.avgMS)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Avg: %.2fms | Min: %.2fms | Max: %.2fms",
			totals.avgMS,
			totals.minMS,
			totals.maxMS,
		)
	}

	d.successGauge.Percent = int(totals.successRate)
	d.successGauge.Label = fmt.Sprintf("%.1f%% of %d", totals.successRate, totals.total)

	rate := 0.0
	if elapsed > 0 {
		rate = float64(totals.total) / elapsed.Seconds()
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Scenario: %s\n%s\nElapsed: %s | Total: %d | Rate: %.1f/s",
		d.runConfig.Scenario,
		d.formatRunParams(),
		elapsed.Round(time.Second),
		totals.total,
		rate,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Avg:  %.2fms\nMin:  %.2fms\nMax:  %.2fms\nP95:  %.2fms",
		totals.avgMS,
		totals.minMS,
		totals.maxMS,
		totals.worstP95MS,
	)

	d.operationList.Rows = formatOperationRows(stats)
	d.failureList.Rows = formatFailureRows(d.provider.RecentMetrics(50), 10)
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

type totals struct {
	total       int64
	failures    int64
	successRate float64
	avgMS       float64
	minMS       float64
	maxMS       float64
	worstP95MS  float64
}

func overallTotals(stats map[string]metrics.OperationStats) totals {
	var t totals
	var weightedSum float64
	first := true
	for _, s := range stats {
		t.total += s.TotalRequests
		t.failures += s.FailedRequests
		weightedSum += s.AverageDurationMS * float64(s.TotalRequests)
		if s.TotalRequests > 0 {
			if first || s.MinDurationMS < t.minMS {
				t.minMS = s.MinDurationMS
			}
			first = false
		}
		if s.MaxDurationMS > t.maxMS {
			t.maxMS = s.MaxDurationMS
		}
		if s.P95DurationMS > t.worstP95MS {
			t.worstP95MS = s.P95DurationMS
		}
	}
	if t.total > 0 {
		t.avgMS = weightedSum / float64(t.total)
		t.successRate = 100 * float64(t.total-t.failures) / float64(t.total)
	} else {
		t.successRate = 100
	}
	return t
}

func formatOperationRows(stats map[string]metrics.OperationStats) []string {
	if len(stats) == 0 {
		return []string{"[No operation data](fg:green)"}
	}
	names := make([]string, 0, len(stats))
	var total int64
	for name, s := range stats {
		names = append(names, name)
		total += s.TotalRequests
	}
	sort.Slice(names, func(i, j int) bool {
		if stats[names[i]].TotalRequests == stats[names[j]].TotalRequests {
			return names[i] < names[j]
		}
		return stats[names[i]].TotalRequests > stats[names[j]].TotalRequests
	})
	formatted := make([]string, 0, len(names))
	for _, name := range names {
		s := stats[name]
		share := 0.0
		if total > 0 {
			share = (float64(s.TotalRequests) / float64(total)) * 100
		}
		formatted = append(formatted, fmt.Sprintf("[%s](fg:cyan) | %5.1f%% | Avg %6.1fms | P95 %6.1fms | Err %d",
			name,
			share,
			s.AverageDurationMS,
			s.P95DurationMS,
			s.FailedRequests,
		))
	}
	return formatted
}

func formatFailureRows(recent []metrics.Record, limit int) []string {
	failures := make([]string, 0, limit)
	for _, rec := range recent {
		if rec.Success {
			continue
		}
		failures = append(failures, fmt.Sprintf("[%s](fg:red) %s %.1fms", rec.Operation, rec.ErrorType, rec.DurationMS))
		if len(failures) >= limit {
			break
		}
	}
	if len(failures) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	return failures
}

// formatRunParams formats the run configuration parameters for display.
func (d *Dashboard) formatRunParams() string {
	var parts []string

	if d.runConfig.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Workers: %d", d.runConfig.Concurrency))
	}

	if d.runConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.runConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}

	if d.runConfig.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", d.runConfig.Duration))
	}

	if d.runConfig.Total > 0 {
		parts = append(parts, fmt.Sprintf("Total: %d", d.runConfig.Total))
	}

	if d.runConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.runConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
