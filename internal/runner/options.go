package runner

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Options configure the Runner.
type Options struct {
	Concurrency int           // number of worker goroutines
	Total       int           // total operations to execute (0 means unlimited until duration/end)
	Duration    time.Duration // overall time limit (0 means no duration cap)
	Rate        int           // operations per second pacing (0 means unlimited)

	// Do executes one operation. Required. A non-nil error counts as a
	// failed operation in the Result.
	Do func(ctx context.Context) error

	// LimiterFactory allows limiter injection for tests.
	LimiterFactory func(rps int) *rate.Limiter
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Total < 0 {
		o.Total = 0
	}
	if o.Rate < 0 {
		o.Rate = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = defaultLimiterFactory
	}
}

func (o *Options) limiter() *rate.Limiter {
	if o.Rate <= 0 {
		return nil
	}
	return o.LimiterFactory(o.Rate)
}

func defaultLimiterFactory(rps int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(math.Ceil(float64(rps) / 10))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
