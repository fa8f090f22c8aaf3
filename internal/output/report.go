package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opspulse/opspulse/internal/threshold"
	"github.com/opspulse/opspulse/pkg/metrics"
)

// Report bundles everything the final summary renders.
type Report struct {
	Total      int64                             `json:"total" yaml:"total"`
	Errors     int64                             `json:"errors" yaml:"errors"`
	Duration   time.Duration                     `json:"duration" yaml:"duration"`
	Stats      map[string]metrics.OperationStats `json:"stats" yaml:"stats"`
	Recent     []metrics.Record                  `json:"recent,omitempty" yaml:"recent,omitempty"`
	Thresholds []threshold.Result                `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, report Report) {
	fmt.Fprintln(w, "\n--- Run Results ---")
	fmt.Fprintf(w, "Total Operations:  %d\n", report.Total)
	fmt.Fprintf(w, "Errors:            %d\n", report.Errors)
	fmt.Fprintf(w, "Duration:          %s\n", report.Duration.Round(time.Millisecond))
	if report.Duration > 0 {
		fmt.Fprintf(w, "Operations/sec:    %.2f\n", float64(report.Total)/report.Duration.Seconds())
	}

	if len(report.Stats) > 0 {
		fmt.Fprintln(w, "\nOperation Breakdown:")
		for _, name := range sortedOperations(report.Stats) {
			s := report.Stats[name]
			fmt.Fprintf(
				w,
				"  - %s: total=%d, success_rate=%.1f%%, avg=%.1fms, min=%.1fms, max=%.1fms, p95=%.1fms\n",
				name,
				s.TotalRequests,
				s.SuccessRate,
				s.AverageDurationMS,
				s.MinDurationMS,
				s.MaxDurationMS,
				s.P95DurationMS,
			)
			if len(s.Errors) > 0 {
				fmt.Fprintln(w, "    Errors:")
				writeErrorBreakdown(w, s.Errors, "      ")
			}
		}
	}

	if len(report.Recent) > 0 {
		fmt.Fprintln(w, "\nRecent Operations:")
		for _, rec := range report.Recent {
			status := "ok"
			if !rec.Success {
				status = "error: " + rec.ErrorType
			}
			fmt.Fprintf(w, "  %s  %-24s %8.1fms  %s\n", rec.Timestamp, rec.Operation, rec.DurationMS, status)
		}
	}

	if len(report.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, r := range report.Thresholds {
			fmt.Fprintf(w, "  %s\n", r.Message)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, report Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(report)
}

func sortedOperations(stats map[string]metrics.OperationStats) []string {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if stats[names[i]].TotalRequests != stats[names[j]].TotalRequests {
			return stats[names[i]].TotalRequests > stats[names[j]].TotalRequests
		}
		return names[i] < names[j]
	})
	return names
}

func writeErrorBreakdown(w io.Writer, errs map[string]int64, indent string) {
	types := make([]string, 0, len(errs))
	for t := range errs {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "%s%s: %d (%s)\n", indent, t, errs[t], metrics.FriendlyErrorName(t))
	}
}
