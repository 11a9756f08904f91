// Package trace records spans and instant events while branchlab loads,
// analyzes and runs code. It is the logging layer of the tool: every
// command threads a Tracer through its context.
//
// Spans nest by scope:
//
//	command   one CLI invocation ("extract", "run")
//	phase     load, lower, extract, instrument, run
//	func      one function ("func:example.com/p.F")
//	analysis  one analysis of a function, and per-block debug points
//
// The level decides the deepest scope that is emitted: phase keeps
// command and phase spans, detail adds functions, debug adds everything.
//
// A tracer is attached with WithTracer and read back with FromContext;
// the enclosing span travels in the context as a SpanContext:
//
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePhase, "extract", trace.CurrentSpan(ctx).SpanID)
//	defer span.End("")
//	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})
package trace
