// Package slo tracks the pipeline's service level objectives: how often a
// batch run completes cleanly, how long a run takes, and what fraction of
// runs produce errors.
package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets for the batch pipeline.
const (
	// AvailabilitySLO is the target fraction of batch runs that complete
	// with no errors (99.9%).
	AvailabilitySLO = 99.9

	// LatencyP95SLO is the target p95 batch duration in seconds (2 minutes).
	LatencyP95SLO = 120.0

	// LatencyP99SLO is the target p99 batch duration in seconds (5 minutes).
	LatencyP99SLO = 300.0

	// ErrorRateSLO is the maximum acceptable fraction of batch runs that
	// report at least one error (1%).
	ErrorRateSLO = 0.01
)

// SLO tracking gauges, updated once per batch run from Poller.recordBatchMetrics.
var (
	// SLOAvailability tracks the rolling fraction of clean batch runs (0-1).
	SLOAvailability = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_batch_availability_ratio",
			Help: "Rolling fraction of batch runs with zero errors, target: 0.999",
		},
	)

	// SLOLatencyP95 tracks the current p95 batch duration in seconds.
	SLOLatencyP95 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_batch_latency_p95_seconds",
			Help: "Current p95 batch duration in seconds, target: 120",
		},
	)

	// SLOLatencyP99 tracks the current p99 batch duration in seconds.
	SLOLatencyP99 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_batch_latency_p99_seconds",
			Help: "Current p99 batch duration in seconds, target: 300",
		},
	)

	// SLOErrorRate tracks the rolling fraction of batch runs with at least
	// one error (0-1).
	SLOErrorRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_batch_error_rate_ratio",
			Help: "Rolling fraction of batch runs reporting an error, target: 0.01",
		},
	)
)

// UpdateAvailability sets the current batch availability ratio.
func UpdateAvailability(ratio float64) {
	SLOAvailability.Set(ratio)
}

// UpdateLatencyP95 sets the current p95 batch duration in seconds.
func UpdateLatencyP95(seconds float64) {
	SLOLatencyP95.Set(seconds)
}

// UpdateLatencyP99 sets the current p99 batch duration in seconds.
func UpdateLatencyP99(seconds float64) {
	SLOLatencyP99.Set(seconds)
}

// UpdateErrorRate sets the current batch error rate ratio.
func UpdateErrorRate(ratio float64) {
	SLOErrorRate.Set(ratio)
}
