// Package metrics provides Prometheus metrics for the pipeline stages
// that don't already have a dedicated recorder of their own — the LLM
// provider's cost/token/duration metrics live next to the provider in
// internal/infra/llm/metrics.go, and batch-run metrics live in
// internal/infra/worker. This package covers the Deduplicator and Quota
// Distributor stages in between.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dedupCollapsedTotal counts articles folded into an existing
	// cluster by the Deduplicator's exact or similarity pass.
	dedupCollapsedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dedup_collapsed_total",
			Help: "Total number of candidate articles collapsed into an existing duplicate cluster",
		},
	)

	// quotaRejectedTotal counts candidates the Quota Distributor
	// dropped because their category's remaining daily quota or
	// per-category cap was already exhausted, labeled by category.
	quotaRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_rejected_total",
			Help: "Total number of candidate articles rejected by the quota distributor, by category",
		},
		[]string{"category"},
	)
)
