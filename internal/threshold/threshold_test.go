package threshold_test

import (
	"strings"
	"testing"

	"github.com/opspulse/opspulse/internal/threshold"
	"github.com/opspulse/opspulse/pkg/metrics"
)

func sampleStats() map[string]metrics.OperationStats {
	return map[string]metrics.OperationStats{
		"fetch_page": {
			Operation:          "fetch_page",
			TotalRequests:      200,
			SuccessfulRequests: 198,
			FailedRequests:     2,
			SuccessRate:        99,
			AverageDurationMS:  120,
			MinDurationMS:      40,
			MaxDurationMS:      800,
			P50DurationMS:      100,
			P90DurationMS:      250,
			P95DurationMS:      300,
			P99DurationMS:      600,
		},
		"crawl://status": {
			Operation:          "crawl://status",
			TotalRequests:      50,
			SuccessfulRequests: 50,
			SuccessRate:        100,
			AverageDurationMS:  10,
			MinDurationMS:      5,
			MaxDurationMS:      20,
			P95DurationMS:      18,
		},
	}
}

func TestParseValid(t *testing.T) {
	tests := []struct {
		input     string
		operation string
		aggregate string
		operator  string
		value     float64
	}{
		{"fetch_page:p95 < 500", "fetch_page", "p95", "<", 500},
		{"fetch_page:avg<=200", "fetch_page", "avg", "<=", 200},
		{"*:max < 1000", "*", "max", "<", 1000},
		{"fetch_page:success_rate >= 99", "fetch_page", "success_rate", ">=", 99},
		{"crawl://status:p95 < 50", "crawl://status", "p95", "<", 50},
		{"fetch_page:count > 100", "fetch_page", "count", ">", 100},
	}

	for _, tt := range tests {
		got, err := threshold.Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.input, err)
			continue
		}
		if got.Operation != tt.operation || got.Aggregate != tt.aggregate || got.Operator != tt.operator || got.Value != tt.value {
			t.Errorf("Parse(%q) = %+v", tt.input, got)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []string{
		"",
		"fetch_page",
		"fetch_page:p95",
		"fetch_page:p95 <",
		"fetch_page:nope < 10",
		"fetch_page:p95 ~ 10",
		":p95 < 10",
		"fetch_page:p95 < abc",
	}

	for _, s := range tests {
		if _, err := threshold.Parse(s); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", s)
		}
	}
}

func TestParseMultiple(t *testing.T) {
	parsed, err := threshold.ParseMultiple([]string{
		"fetch_page:p95 < 500",
		"*:success_rate >= 95",
	})
	if err != nil {
		t.Fatalf("ParseMultiple returned error: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 thresholds, got %d", len(parsed))
	}

	if _, err := threshold.ParseMultiple([]string{"fetch_page:p95 < 500", "bogus"}); err == nil {
		t.Fatal("expected error for invalid threshold in list")
	}
}

func TestEvaluatePerOperation(t *testing.T) {
	thresholds, err := threshold.ParseMultiple([]string{
		"fetch_page:p95 < 500",
		"fetch_page:max < 500",
	})
	if err != nil {
		t.Fatalf("ParseMultiple returned error: %v", err)
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(sampleStats())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Pass {
		t.Errorf("p95 threshold should pass: %s", results[0].Message)
	}
	if results[1].Pass {
		t.Errorf("max threshold should fail: %s", results[1].Message)
	}
	if threshold.AllPassed(results) {
		t.Error("AllPassed should be false when one result failed")
	}
}

func TestEvaluateWildcard(t *testing.T) {
	thresholds, err := threshold.ParseMultiple([]string{"*:success_rate >= 99"})
	if err != nil {
		t.Fatalf("ParseMultiple returned error: %v", err)
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(sampleStats())
	if len(results) != 2 {
		t.Fatalf("wildcard should expand to one result per operation, got %d", len(results))
	}
	if !threshold.AllPassed(results) {
		t.Errorf("both operations meet the success rate: %+v", results)
	}
}

func TestEvaluateMissingOperation(t *testing.T) {
	thresholds, err := threshold.ParseMultiple([]string{"unknown_op:p95 < 500"})
	if err != nil {
		t.Fatalf("ParseMultiple returned error: %v", err)
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(sampleStats())
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Pass {
		t.Error("missing operation should fail the threshold")
	}
	if !strings.Contains(results[0].Message, "no data") {
		t.Errorf("message should mention missing data: %s", results[0].Message)
	}
}

func TestEvaluateEmpty(t *testing.T) {
	if got := threshold.NewEvaluator(nil).Evaluate(sampleStats()); got != nil {
		t.Errorf("expected nil results for no thresholds, got %v", got)
	}
	if !threshold.AllPassed(nil) {
		t.Error("AllPassed of no results should be true")
	}
}
