package instrument

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/opspulse/opspulse/pkg/metrics"
)

// DefaultSlowThreshold is the duration above which a slow-operation
// warning is logged when slow logging is enabled.
const DefaultSlowThreshold = time.Second

// Instrumentor times units of work and records their outcome into a
// metrics.Registry without altering them. The host constructs one
// Instrumentor and shares it across call sites; all methods are safe
// for concurrent use.
type Instrumentor struct {
	registry      *metrics.Registry
	tracking      bool
	logSlow       bool
	slowThreshold time.Duration
	windowSize    int
	recentCap     int
	logger        *zap.Logger
	tracer        trace.Tracer
}

// Option configures an Instrumentor at construction time.
type Option func(*Instrumentor)

// WithTracking enables or disables registry updates. Disabled tracking
// is a pure pass-through: handlers still run and their results and
// errors are returned unchanged, but nothing is recorded.
func WithTracking(enabled bool) Option {
	return func(in *Instrumentor) { in.tracking = enabled }
}

// WithSlowLogging toggles the slow-operation warning.
func WithSlowLogging(enabled bool) Option {
	return func(in *Instrumentor) { in.logSlow = enabled }
}

// WithSlowThreshold sets the slow-operation warning threshold.
// Non-positive values keep the default.
func WithSlowThreshold(d time.Duration) Option {
	return func(in *Instrumentor) {
		if d > 0 {
			in.slowThreshold = d
		}
	}
}

// WithCapacities bounds the per-operation percentile window and the
// global recent buffer. Zero values keep the package defaults.
func WithCapacities(windowSize, recentCapacity int) Option {
	return func(in *Instrumentor) {
		in.windowSize = windowSize
		in.recentCap = recentCapacity
	}
}

// WithTracer attaches an OpenTelemetry tracer; each instrumented
// operation then runs under its own span.
func WithTracer(tracer trace.Tracer) Option {
	return func(in *Instrumentor) { in.tracer = tracer }
}

// NewInstrumentor creates an Instrumentor with tracking and slow
// logging enabled. A nil logger is replaced with a no-op logger.
// Hosts selecting behavior from configuration should use New instead.
func NewInstrumentor(logger *zap.Logger, opts ...Option) *Instrumentor {
	if logger == nil {
		logger = zap.NewNop()
	}
	in := &Instrumentor{
		tracking:      true,
		logSlow:       true,
		slowThreshold: DefaultSlowThreshold,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.registry = metrics.NewRegistry(in.windowSize, in.recentCap)
	return in
}

// callMeta carries optional per-call metadata.
type callMeta struct {
	method     string
	clientInfo string
}

// CallOption attaches optional metadata to a single instrumented call.
type CallOption func(*callMeta)

// WithMethod records the protocol method behind the call (for example
// "tools/call").
func WithMethod(method string) CallOption {
	return func(m *callMeta) { m.method = method }
}

// WithClientInfo records an identifier for the calling client.
func WithClientInfo(clientInfo string) CallOption {
	return func(m *callMeta) { m.clientInfo = clientInfo }
}

// Process runs handler under in's timing and outcome capture. The
// handler is invoked exactly once; its result and error are returned
// unchanged, never wrapped or converted.
//
// Process is a package-level function because Go methods cannot carry
// type parameters.
func Process[T any](ctx context.Context, in *Instrumentor, operation string, handler func(context.Context) (T, error), opts ...CallOption) (T, error) {
	var meta callMeta
	for _, opt := range opts {
		opt(&meta)
	}

	ctx, finish := in.begin(ctx, operation)
	result, err := handler(ctx)
	finish(err, meta)
	return result, err
}

// Do is Process for handlers that return only an error.
func Do(ctx context.Context, in *Instrumentor, operation string, handler func(context.Context) error, opts ...CallOption) error {
	_, err := Process(ctx, in, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, handler(ctx)
	}, opts...)
	return err
}

// Wrap returns a callable with the identical contract as handler that
// routes every invocation through Process. Arguments beyond the
// context are captured by the handler closure.
func Wrap[T any](in *Instrumentor, operation string, handler func(context.Context) (T, error), opts ...CallOption) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Process(ctx, in, operation, handler, opts...)
	}
}

// begin stamps the start of an operation and returns the completion
// callback. The callback must run immediately after control returns
// from the handler.
func (in *Instrumentor) begin(ctx context.Context, operation string) (context.Context, func(err error, meta callMeta)) {
	var span trace.Span
	if in.tracer != nil {
		ctx, span = in.tracer.Start(ctx, operation, trace.WithSpanKind(trace.SpanKindInternal))
	}

	start := time.Now()
	return ctx, func(err error, meta callMeta) {
		end := time.Now()

		if span != nil {
			span.SetAttributes(attribute.Float64("operation.duration_ms", durationMS(start, end)))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
		}

		if !in.tracking {
			return
		}

		rec := metrics.NewRecord(operation, meta.method, meta.clientInfo, start, end, err)
		in.record(rec)

		if in.logSlow && end.Sub(start) > in.slowThreshold {
			in.logger.Warn("slow operation",
				zap.String("operation", operation),
				zap.Float64("duration_ms", rec.DurationMS),
				zap.Float64("threshold_ms", float64(in.slowThreshold)/float64(time.Millisecond)),
			)
		}
	}
}

// record updates the registry. A failure while recording is an
// instrumentation-internal problem and must never reach the caller.
func (in *Instrumentor) record(rec metrics.Record) {
	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("metrics recording failed",
				zap.String("operation", rec.Operation),
				zap.Any("panic", r),
			)
		}
	}()
	in.registry.Record(rec)
}

// Stats returns a snapshot per operation observed since the last
// reset. On an internal snapshot failure it logs and returns an empty
// map rather than failing the caller.
func (in *Instrumentor) Stats() (out map[string]metrics.OperationStats) {
	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("stats snapshot failed", zap.Any("panic", r))
			out = map[string]metrics.OperationStats{}
		}
	}()
	return in.registry.SnapshotAll()
}

// RecentMetrics returns up to limit of the most recently recorded
// metrics, newest first.
func (in *Instrumentor) RecentMetrics(limit int) (out []metrics.Record) {
	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("recent metrics read failed", zap.Any("panic", r))
			out = nil
		}
	}()
	return in.registry.Recent(limit)
}

// ResetStats clears all collected state.
func (in *Instrumentor) ResetStats() {
	in.registry.Reset()
}

// Tracking reports whether registry updates are enabled.
func (in *Instrumentor) Tracking() bool {
	return in.tracking
}

// Registry exposes the underlying registry, mainly for hosts that feed
// dashboards or reports directly.
func (in *Instrumentor) Registry() *metrics.Registry {
	return in.registry
}

func durationMS(start, end time.Time) float64 {
	d := end.Sub(start)
	if d < 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
