package worker

import (
	"catchup-feed/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// worker-specific metrics for the Poller's batch run execution.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - worker_batch_runs_total: Total batch runs by status (success/failure)
//   - worker_batch_duration_seconds: Duration histogram of batch run execution
//   - worker_batch_articles_processed_total: Total articles processed per batch run
//   - worker_batch_last_success_timestamp: Unix timestamp of last successful run
//
// Example usage:
//
//	metrics := NewWorkerMetrics()
//	metrics.MustRegister()
//
//	// Record configuration load
//	metrics.RecordLoadTimestamp()
//
//	// Record batch run execution
//	start := time.Now()
//	defer func() {
//	    duration := time.Since(start).Seconds()
//	    metrics.RecordBatchRun("success")
//	    metrics.RecordBatchDuration(duration)
//	    metrics.RecordArticlesProcessed(42)
//	    metrics.RecordLastSuccess()
//	}()
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// BatchRunsTotal counts the total number of batch runs.
	// Type: Counter
	// Labels: status (success, failure)
	// Usage: Increment after each batch run based on success/failure
	BatchRunsTotal *prometheus.CounterVec

	// BatchDurationSeconds measures the duration of batch run execution.
	// Type: Histogram
	// Labels: none
	// Buckets: 1s, 5s, 30s, 1m, 5m, 15m, 30m (optimized for typical batch durations)
	// Usage: Observe duration at the end of each batch run
	BatchDurationSeconds prometheus.Histogram

	// BatchArticlesProcessedTotal counts the total number of articles processed per batch.
	// Type: Counter
	// Labels: none
	// Usage: Add the number of articles processed after each successful batch run
	BatchArticlesProcessedTotal prometheus.Counter

	// BatchLastSuccessTimestamp records the Unix timestamp of the last successful run.
	// Type: Gauge
	// Labels: none
	// Usage: Set to current time when a batch run completes successfully
	BatchLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics initialized.
// Metrics are created but not registered with Prometheus. Call MustRegister() to register.
//
// Returns:
//   - *WorkerMetrics: Initialized metrics ready for registration
//
// Example:
//
//	metrics := NewWorkerMetrics()
//	metrics.MustRegister()  // Register with Prometheus
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		BatchRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_batch_runs_total",
			Help: "Total number of batch runs by status (success/failure)",
		}, []string{"status"}),

		BatchDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_batch_duration_seconds",
			Help:    "Duration of the Poller batch run in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800}, // 1s, 5s, 30s, 1m, 5m, 15m, 30m
		}),

		BatchArticlesProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_batch_articles_processed_total",
			Help: "Total number of articles processed across all batch runs",
		}),

		BatchLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_batch_last_success_timestamp",
			Help: "Unix timestamp of the last successful batch run",
		}),
	}
}

// MustRegister is a no-op method for API compatibility.
// Metrics are automatically registered via promauto when created in NewWorkerMetrics.
//
// This method exists to maintain consistency with the expected metrics initialization pattern:
//
//	metrics := NewWorkerMetrics()
//	metrics.MustRegister()
//
// Even though registration happens automatically, this explicit call makes the
// initialization intent clear and maintains compatibility with future changes.
func (m *WorkerMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto
}

// RecordBatchRun increments the batch run counter for the given status.
// Status should be either "success" or "failure".
//
// Parameters:
//   - status: Batch run status ("success" or "failure")
//
// Example:
//
//	if err := poller.TriggerManualBatch(ctx); err != nil {
//	    metrics.RecordBatchRun("failure")
//	} else {
//	    metrics.RecordBatchRun("success")
//	}
func (m *WorkerMetrics) RecordBatchRun(status string) {
	m.BatchRunsTotal.WithLabelValues(status).Inc()
}

// RecordBatchDuration observes the duration of one Poller batch run.
// Duration should be in seconds.
//
// Parameters:
//   - seconds: Batch run duration in seconds
//
// Example:
//
//	start := time.Now()
//	result, err := poller.TriggerManualBatch(ctx)
//	duration := time.Since(start).Seconds()
//	metrics.RecordBatchDuration(duration)
func (m *WorkerMetrics) RecordBatchDuration(seconds float64) {
	m.BatchDurationSeconds.Observe(seconds)
}

// RecordArticlesProcessed adds the number of articles processed to the total counter.
//
// Parameters:
//   - count: Number of articles processed in this batch run
//
// Example:
//
//	result, err := poller.TriggerManualBatch(ctx)
//	if err == nil {
//	    metrics.RecordArticlesProcessed(result.ArticlesProcessed)
//	}
func (m *WorkerMetrics) RecordArticlesProcessed(count int) {
	m.BatchArticlesProcessedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful batch completion.
//
// Example:
//
//	if err == nil {
//	    metrics.RecordLastSuccess()
//	}
func (m *WorkerMetrics) RecordLastSuccess() {
	m.BatchLastSuccessTimestamp.SetToCurrentTime()
}
