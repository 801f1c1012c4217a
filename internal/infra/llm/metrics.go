package llm

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CompletionMetricsRecorder abstracts metrics recording so it can be
// mocked in tests or swapped for another metrics backend, and shared
// identically by every Provider implementation.
type CompletionMetricsRecorder interface {
	RecordDuration(provider string, d time.Duration)
	RecordTokens(provider string, input, output int)
	RecordCost(provider string, costUSD float64)
}

// PrometheusCompletionMetrics implements CompletionMetricsRecorder
// using Prometheus metrics, labeled by provider so Claude and OpenAI
// traffic stay distinguishable.
type PrometheusCompletionMetrics struct {
	durationHistogram *prometheus.HistogramVec
	tokenHistogram    *prometheus.HistogramVec
	costCounter       *prometheus.CounterVec
}

var (
	prometheusMetricsInstance *PrometheusCompletionMetrics
	prometheusMetricsOnce     sync.Once
)

func getOrCreateHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
		return promauto.NewHistogramVec(opts, labels)
	}
	return h
}

func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// NewPrometheusCompletionMetrics creates a new Prometheus-based metrics
// recorder. Uses a singleton to avoid duplicate metric registration
// when multiple providers are constructed.
func NewPrometheusCompletionMetrics() *PrometheusCompletionMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusCompletionMetrics{
			durationHistogram: getOrCreateHistogramVec(prometheus.HistogramOpts{
				Name:    "brief_rewriter_llm_call_duration_seconds",
				Help:    "Time taken for one LLM completion call",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			}, []string{"provider"}),
			tokenHistogram: getOrCreateHistogramVec(prometheus.HistogramOpts{
				Name:    "brief_rewriter_llm_tokens",
				Help:    "Distribution of approximate input/output token counts per call",
				Buckets: []float64{100, 300, 600, 900, 1200, 1800, 2500, 4000},
			}, []string{"provider", "direction"}),
			costCounter: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "brief_rewriter_llm_cost_usd_total",
				Help: "Cumulative estimated LLM spend in USD",
			}, []string{"provider"}),
		}
	})
	return prometheusMetricsInstance
}

// RecordDuration implements CompletionMetricsRecorder.
func (p *PrometheusCompletionMetrics) RecordDuration(provider string, d time.Duration) {
	p.durationHistogram.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordTokens implements CompletionMetricsRecorder.
func (p *PrometheusCompletionMetrics) RecordTokens(provider string, input, output int) {
	p.tokenHistogram.WithLabelValues(provider, "input").Observe(float64(input))
	p.tokenHistogram.WithLabelValues(provider, "output").Observe(float64(output))
}

// RecordCost implements CompletionMetricsRecorder.
func (p *PrometheusCompletionMetrics) RecordCost(provider string, costUSD float64) {
	p.costCounter.WithLabelValues(provider).Add(costUSD)
}
