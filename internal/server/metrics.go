package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// labelHandler partitions metrics by logical endpoint name rather than the
// raw URL path.
const labelHandler = "handler"

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// One instance is created in New so tests can inject a fresh registry.
type serverMetrics struct {
	// httpRequestsTotal counts all instrumented requests, partitioned by
	// method, handler, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of instrumented requests.
	httpDurationSeconds *prometheus.HistogramVec

	// httpInFlight is the number of instrumented requests being served.
	httpInFlight prometheus.Gauge

	// rateLimited counts searches rejected with 429, by route.
	rateLimited *prometheus.CounterVec

	// authFailures counts searches rejected with 401, by reason.
	authFailures *prometheus.CounterVec
}

// newServerMetrics registers the server metrics against reg via
// promauto.With so nothing lands in the global default registry.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviechat",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "moviechat",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),

		httpInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "moviechat",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of HTTP requests currently being served.",
		}),

		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviechat",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client search rate limit.",
		}, []string{"route"}),

		authFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviechat",
			Subsystem: "http",
			Name:      "auth_failures_total",
			Help:      "Search requests rejected for a missing or invalid API key.",
		}, []string{"reason"}),
	}
}

// instrument wraps next so every request is counted and timed under handler.
func (s *Server) instrument(handler string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := s.metrics
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r)

		m.httpDurationSeconds.WithLabelValues(r.Method, handler).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, handler, strconv.Itoa(rw.status)).Inc()
	})
}
