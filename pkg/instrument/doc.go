// Package instrument wraps asynchronous units of work with transparent
// latency and outcome measurement.
//
// The wrapping is invisible on the success/failure axis: the handler's
// result and error come back unchanged, the handler runs exactly once,
// and instrumentation-internal failures are logged rather than raised.
// The only observable additions are a small latency overhead and, for
// slow operations when enabled, one structured warning.
//
//	ins := instrument.NewInstrumentor(logger)
//	page, err := instrument.Process(ctx, ins, "fetch_page", fetchPage,
//		instrument.WithMethod("tools/call"))
//
// Hosts driven by configuration use [New], which picks the basic or
// categorized variant once at construction:
//
//	v := instrument.New(instrument.Config{EnableMetrics: true}, logger)
//	stats := v.AllStats()
//
// The categorized variant keeps three independent tracks (tools,
// resources, prompts), each with its own registry and enable flag.
//
// Cancellation is out of scope: the instrumentor records what it
// observes completing. A handler torn down externally before returning
// leaves no measurement behind.
package instrument
