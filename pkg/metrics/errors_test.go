package metrics_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/opspulse/opspulse/pkg/metrics"
)

type scrapeTimeoutError struct{}

func (scrapeTimeoutError) Error() string { return "scrape timed out" }

func TestErrorTypeName(t *testing.T) {
	if got := metrics.ErrorTypeName(nil); got != "" {
		t.Errorf("expected empty name for nil error, got %q", got)
	}

	got := metrics.ErrorTypeName(scrapeTimeoutError{})
	if got == "" {
		t.Fatal("expected non-empty type name")
	}
	if len(got) > 30 {
		t.Errorf("expected type name trimmed to 30 chars, got %d: %q", len(got), got)
	}
}

func TestErrorTypeNameTrimsLongTypes(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", errors.New("inner"))
	name := metrics.ErrorTypeName(err)
	if len(name) > 30 {
		t.Errorf("expected at most 30 chars, got %d", len(name))
	}
}

func TestFriendlyErrorName(t *testing.T) {
	tests := []struct {
		typeName string
		want     string
	}{
		{"", "Unknown error"},
		{"*context.deadlineExceededError", "Context deadline exceeded"},
		{"*errors.errorString", "Generic error"},
		{"metrics.scrapeTimeoutError", "Scrape Timeout Error (metrics)"},
		{"main.customError", "Custom Error"},
	}

	for _, tt := range tests {
		if got := metrics.FriendlyErrorName(tt.typeName); got != tt.want {
			t.Errorf("FriendlyErrorName(%q) = %q, want %q", tt.typeName, got, tt.want)
		}
	}
}

func TestDeadlineErrorClassifiedFriendly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	typeName := metrics.ErrorTypeName(ctx.Err())
	if got := metrics.FriendlyErrorName(typeName); got != "Context deadline exceeded" {
		t.Errorf("expected friendly deadline label, got %q", got)
	}
}
