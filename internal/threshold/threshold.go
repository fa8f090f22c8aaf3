package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/opspulse/opspulse/pkg/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Operation string  // operation name, or "*" for every operation
	Aggregate string  // e.g., "p95", "avg", "max", "success_rate", "count"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Operation string
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against aggregated operation stats.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided per-operation stats.
// A threshold with operation "*" expands to one result per operation.
func (e *Evaluator) Evaluate(stats map[string]metrics.OperationStats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		if t.Operation == "*" {
			for name, s := range stats {
				results = append(results, e.evaluateOne(t, name, s))
			}
			continue
		}
		s, ok := stats[t.Operation]
		if !ok {
			results = append(results, Result{
				Threshold: t,
				Operation: t.Operation,
				Pass:      false,
				Message:   fmt.Sprintf("✗ %s: no data for operation %q", t.Raw, t.Operation),
			})
			continue
		}
		results = append(results, e.evaluateOne(t, t.Operation, s))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func (e *Evaluator) evaluateOne(t Threshold, operation string, stats metrics.OperationStats) Result {
	actual, err := extractAggregate(t.Aggregate, stats)
	if err != nil {
		return Result{
			Threshold: t,
			Operation: operation,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s [%s]: %.2f %s %.2f", status, t.Raw, operation, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Operation: operation,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "fetch_page:p95 < 500"          (windowed p95 latency in ms)
// - "fetch_page:avg < 200"          (average latency in ms)
// - "*:max < 1000"                  (max latency across every operation)
// - "fetch_page:success_rate >= 99" (success rate as a percentage)
// - "fetch_page:count > 100"        (total requests)
// The operation is everything before the last colon, so names such as
// "crawl://status" work unchanged.
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: operation:aggregate operator value, e.g., 'fetch_page:p95 < 500')", s)
	}
	operation := s[:idx]
	rest := s[idx+1:]

	pattern := regexp.MustCompile(`^([a-z0-9_]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(rest)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: operation:aggregate operator value, e.g., 'fetch_page:p95 < 500')", s)
	}

	aggregate := matches[1]
	operator := matches[2]
	valueStr := matches[3]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p90, p95, p99, avg, min, max, success_rate, count, failures)", aggregate)
	}

	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Operation: operation,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

func isValidAggregate(aggregate string) bool {
	valid := []string{"p50", "p90", "p95", "p99", "avg", "min", "max", "success_rate", "count", "failures"}
	for _, v := range valid {
		if aggregate == v {
			return true
		}
	}
	return false
}

func isValidOperator(operator string) bool {
	valid := []string{"<", "<=", ">", ">=", "=="}
	for _, v := range valid {
		if operator == v {
			return true
		}
	}
	return false
}

func extractAggregate(aggregate string, stats metrics.OperationStats) (float64, error) {
	switch aggregate {
	case "p50":
		return stats.P50DurationMS, nil
	case "p90":
		return stats.P90DurationMS, nil
	case "p95":
		return stats.P95DurationMS, nil
	case "p99":
		return stats.P99DurationMS, nil
	case "avg":
		return stats.AverageDurationMS, nil
	case "min":
		return stats.MinDurationMS, nil
	case "max":
		return stats.MaxDurationMS, nil
	case "success_rate":
		return stats.SuccessRate, nil
	case "count":
		return float64(stats.TotalRequests), nil
	case "failures":
		return float64(stats.FailedRequests), nil
	default:
		return 0, fmt.Errorf("unknown aggregate: %s", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
