// Package server implements the HTTP server that exposes the movie search
// tool plus liveness, readiness and Prometheus endpoints.
// The server is started by the `moviechat serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/moviechat-go/internal/logging"
	"github.com/54b3r/moviechat-go/internal/tools"
)

// New constructs a Server around the search tool.
func New(search searcher, cfg *Config) (*Server, error) {
	if search == nil {
		return nil, fmt.Errorf("server: search tool must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Covers one embedding round-trip plus the vector query.
		cfg.WriteTimeout = time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultSearchRate
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultSearchBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.NewRegistry()
	}
	if cfg.MetricsGatherer == nil {
		g, ok := cfg.MetricsRegistry.(prometheus.Gatherer)
		if !ok {
			return nil, fmt.Errorf("server: MetricsGatherer is required when MetricsRegistry cannot gather")
		}
		cfg.MetricsGatherer = g
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		search:  search,
		cfg:     cfg,
		log:     log,
		pingers: cfg.Pingers,
		metrics: newServerMetrics(cfg.MetricsRegistry),
	}

	if cfg.APIKey == "" {
		log.Warn("server: authentication disabled, set MOVIECHAT_API_KEY to protect /api/search")
	}

	s.limiter, s.stopRL = newRateLimiter(cfg.RateLimit, cfg.RateBurst, func(route string) {
		s.metrics.rateLimited.WithLabelValues(route).Inc()
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, s.routes()),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// routes builds the mux. Only /api/search is authenticated and rate limited;
// probes and metrics stay open for orchestrators and scrapers.
func (s *Server) routes() http.Handler {
	search := s.instrument("search", authMiddleware(s.cfg.APIKey, func(reason string) {
		s.metrics.authFailures.WithLabelValues(reason).Inc()
	}, s.limiter.middleware("search", http.HandlerFunc(s.handleSearch))))

	mux := http.NewServeMux()
	mux.Handle("POST /api/search", search)
	mux.Handle("GET /api/search", search)
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.cfg.MetricsGatherer, promhttp.HandlerOpts{}))
	return mux
}

// Handler returns the fully wrapped HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleSearch handles /api/search. POST takes a JSON body; GET reads the
// q, collection and limit query parameters. The response body is the JSON
// array produced by search_information.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	req, err := decodeSearchRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	annotate(r.Context(), slog.Int("limit", req.Limit), slog.Int("query_len", len(req.Query)))

	args, err := json.Marshal(req)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	out, err := s.search.InvokableRun(r.Context(), string(args))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, tools.ErrCollectionMismatch) || errors.Is(err, tools.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		log.Error("search failed", slog.String("query", req.Query), slog.Any("error", err))
		http.Error(w, err.Error(), status)
		return
	}

	var results []json.RawMessage
	if err := json.Unmarshal([]byte(out), &results); err == nil {
		annotate(r.Context(), slog.Int("results", len(results)))
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(out)); err != nil {
		log.Error("search write error", slog.Any("error", err))
	}
}

// decodeSearchRequest reads a searchRequest from the body (POST) or the
// query string (GET).
func decodeSearchRequest(r *http.Request) (searchRequest, error) {
	var req searchRequest
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("invalid request body")
		}
		return req, nil
	}

	q := r.URL.Query()
	req.Query = q.Get("q")
	req.Collection = q.Get("collection")
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("limit must be an integer")
		}
		req.Limit = n
	}
	return req, nil
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		logging.FromContext(r.Context()).Error("health encode error", slog.Any("error", err))
	}
}
