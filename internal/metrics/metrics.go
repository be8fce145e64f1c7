// Package metrics provides Prometheus metrics for the summarization pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "newssummarizer"

// Result and outcome label values.
const (
	ResultDone    = "done"
	ResultError   = "error"
	ResultOK      = "ok"
	ResultFailed  = "failed"
	HintQueued    = "queued"
	HintDuplicate = "duplicate"
	HintStale     = "stale"
	HintClaimed   = "claimed"
)

// Metrics owns a private registry so several instances can coexist in tests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	summariesTotal    *prometheus.CounterVec
	summarizeDuration prometheus.Histogram
	feedFetchesTotal  *prometheus.CounterVec
	queueHintsTotal   *prometheus.CounterVec
}

// New registers all collectors, including Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		summariesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "summaries_total",
				Help:      "Summaries attempted by the worker, by result",
			},
			[]string{"result"},
		),
		summarizeDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "summarize_duration_seconds",
				Help:      "Duration of summarizer calls in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
			},
		),
		feedFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feed_fetches_total",
				Help:      "Topic refreshes against the feed source, by result",
			},
			[]string{"result"},
		),
		queueHintsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_hints_total",
				Help:      "Priority queue hints, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordSummary records one summarizer call.
func (m *Metrics) RecordSummary(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.summariesTotal.WithLabelValues(result).Inc()
	m.summarizeDuration.Observe(duration.Seconds())
}

// RecordFetch records one topic refresh.
func (m *Metrics) RecordFetch(result string) {
	if m == nil {
		return
	}
	m.feedFetchesTotal.WithLabelValues(result).Inc()
}

// RecordHint records what happened to a priority queue hint.
func (m *Metrics) RecordHint(outcome string) {
	if m == nil {
		return
	}
	m.queueHintsTotal.WithLabelValues(outcome).Inc()
}

// WatchQueueDepth exposes the current queue length as a gauge.
func (m *Metrics) WatchQueueDepth(depth func() int) {
	if m == nil || depth == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "priority_queue_depth",
			Help:      "Article IDs currently waiting in the priority queue",
		},
		func() float64 { return float64(depth()) },
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
