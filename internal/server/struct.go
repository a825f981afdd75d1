package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, slog.Default() is used.
	Logger *slog.Logger
	// Pingers are the backing services checked by GET /api/ready.
	Pingers []Pinger
	// Seed reports the last reseed to GET /api/ready. When nil, readiness
	// depends on Pingers alone.
	Seed SeedStatus
	// RateLimit is the sustained searches per second allowed per client IP.
	// Defaults to 5.
	RateLimit float64
	// RateBurst is the per-client search burst. Defaults to 10.
	RateBurst int
	// APIKey is the Bearer token required on /api/search. Empty disables
	// authentication.
	APIKey string
	// MetricsRegistry receives the server's HTTP metrics. Defaults to a fresh
	// registry.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer is served on GET /metrics. Defaults to MetricsRegistry
	// when that is a *prometheus.Registry.
	MetricsGatherer prometheus.Gatherer
}

// searcher is the interface handleSearch calls. The search_information tool
// satisfies it; tests inject a fake.
type searcher interface {
	InvokableRun(ctx context.Context, argumentsInJSON string, opts ...tool.Option) (string, error)
}

// Server exposes the movie search tool and operational endpoints over HTTP.
type Server struct {
	// search runs search_information for /api/search.
	search searcher
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers are checked by GET /api/ready.
	pingers []Pinger
	// metrics holds the HTTP-level Prometheus collectors.
	metrics *serverMetrics
	// limiter throttles /api/search per client.
	limiter *rateLimiter
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// searchRequest is the JSON body for POST /api/search. Its fields mirror the
// search_information tool arguments.
type searchRequest struct {
	// Query is the free-text search.
	Query string `json:"query"`
	// Collection optionally names the collection; it must match the seeded one.
	Collection string `json:"collection,omitempty"`
	// Limit caps the number of results. Zero uses the tool default.
	Limit int `json:"limit,omitempty"`
}
