// Package metrics provides Prometheus counters for the Deduplicator and
// Quota Distributor pipeline stages.
//
// Other stages record their own metrics closer to where they run: the
// LLM provider's cost/token/duration metrics live in
// internal/infra/llm/metrics.go, and batch-run metrics live in
// internal/infra/worker. This package exists so the two stages in
// between aren't left unobserved.
//
// All metrics are registered with the Prometheus default registry via
// promauto and exposed on the /metrics endpoint.
//
// Example usage:
//
//	import "catchup-feed/internal/observability/metrics"
//
//	func dedupe(candidates []*entity.Article) Result {
//	    result := ... // exact + similarity pass
//	    metrics.RecordDedupCollapsed(len(candidates) - len(result.Unique))
//	    return result
//	}
package metrics
