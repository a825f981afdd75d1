// Package metrics registers the Prometheus metrics for moviechat's domain
// operations: seeding, memory search, and chat completions. HTTP-level
// metrics live with the server.
//
// Every method is safe to call on a nil *Metrics, so components take an
// optional *Metrics without guarding each call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace prefixes every metric name.
const namespace = "moviechat"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the domain metrics.
type Metrics struct {
	// ingestRecordsTotal counts per-record save attempts by outcome.
	ingestRecordsTotal *prometheus.CounterVec

	// ingestClearedTotal counts entries removed by the clear step.
	ingestClearedTotal prometheus.Counter

	// searchRequestsTotal counts memory searches issued through the search
	// tool, partitioned by outcome.
	searchRequestsTotal *prometheus.CounterVec

	// searchDurationSeconds records search latency including the query embedding.
	searchDurationSeconds prometheus.Histogram

	// searchResults records how many results each search returned.
	searchResults prometheus.Histogram

	// completionsTotal counts chat completions by outcome.
	completionsTotal *prometheus.CounterVec

	// completionDurationSeconds records the latency of each chat completion,
	// including any tool calls the model made.
	completionDurationSeconds prometheus.Histogram
}

// New registers all metrics against reg. promauto.With(reg) keeps tests
// hermetic when they pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ingestRecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Movie records processed by the seeding workflow, partitioned by outcome.",
		}, []string{"outcome"}),

		ingestClearedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "cleared_total",
			Help:      "Memory entries removed before re-seeding.",
		}),

		searchRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Memory searches performed by the search tool, partitioned by outcome.",
		}, []string{"outcome"}),

		searchDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Latency of memory searches including query embedding.",
			Buckets:   prometheus.DefBuckets,
		}),

		searchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "results",
			Help:      "Number of results returned per memory search.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50},
		}),

		completionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "completions_total",
			Help:      "Chat completions requested from the model, partitioned by outcome.",
		}, []string{"outcome"}),

		completionDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "completion_duration_seconds",
			Help:      "Wall-clock duration of chat completions including tool calls.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}
}

// outcome maps an error to an outcome label.
func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// RecordSave counts one per-record save attempt.
func (m *Metrics) RecordSave(err error) {
	if m == nil {
		return
	}
	m.ingestRecordsTotal.WithLabelValues(outcome(err)).Inc()
}

// RecordCleared counts n entries removed by the clear step.
func (m *Metrics) RecordCleared(n int) {
	if m == nil {
		return
	}
	m.ingestClearedTotal.Add(float64(n))
}

// RecordSearch records one search with its latency and result count.
func (m *Metrics) RecordSearch(d time.Duration, results int, err error) {
	if m == nil {
		return
	}
	m.searchRequestsTotal.WithLabelValues(outcome(err)).Inc()
	m.searchDurationSeconds.Observe(d.Seconds())
	if err == nil {
		m.searchResults.Observe(float64(results))
	}
}

// RecordCompletion records one chat completion.
func (m *Metrics) RecordCompletion(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(outcome(err)).Inc()
	m.completionDurationSeconds.Observe(d.Seconds())
}
