// Package observability provides the pipeline's observability
// infrastructure: structured logging, Prometheus metrics, and
// OpenTelemetry tracing.
//
// Subpackages:
//   - logging: slog setup, called from cmd/worker and cmd/api's initLogger
//   - metrics: dedup/quota Prometheus counters (LLM and batch-run
//     metrics live closer to their own packages — see
//     internal/infra/llm/metrics.go and internal/infra/worker)
//   - slo: batch-run service-level-objective gauges
//   - tracing: spans around the sweep/batch/rewrite stages
//
// Example usage:
//
//	import (
//	    "catchup-feed/internal/observability/logging"
//	    "catchup-feed/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//	}
//
//	func dedupe(candidates []*entity.Article) Result {
//	    result := ... // exact + similarity pass
//	    metrics.RecordDedupCollapsed(len(candidates) - len(result.Unique))
//	    return result
//	}
package observability
