// Package tracing provides OpenTelemetry span creation for the batch
// pipeline.
//
// Unlike the teacher's original HTTP-request tracing, this package has
// no middleware — the control API's handful of low-volume operator
// endpoints don't need request tracing. Spans here bracket the parts of
// the pipeline worth timing independently of Prometheus counters: one
// sweep across all sources, one batch run, and one article's rewrite.
//
// Example usage:
//
//	ctx, span := tracing.StartSpan(ctx, "poller.sweep")
//	defer span.End()
package tracing
