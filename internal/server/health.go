package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/54b3r/moviechat-go/internal/ingestion"
	"github.com/54b3r/moviechat-go/internal/logging"
)

// dependencyTimeout bounds each dependency check behind /api/ready.
const dependencyTimeout = 5 * time.Second

// Pinger is a backing service /api/ready checks: the Ollama embedder, the
// MongoDB source, or the Qdrant or Redis store. Implementations must be safe
// for concurrent use.
type Pinger interface {
	Ping(ctx context.Context) error
	// Name labels the dependency in readiness output, e.g. "mongo".
	Name() string
}

// SeedStatus reports the most recent rebuild of the movie collection.
// *ingestion.Reseeder implements it.
type SeedStatus interface {
	LastRun() (ingestion.Run, bool)
}

// dependencyCheck is one dependency's line in the readiness response.
type dependencyCheck struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// seedSummary describes the collection /api/search runs against.
type seedSummary struct {
	Collection string    `json:"collection"`
	Entries    int       `json:"entries"`
	Attempted  int       `json:"attempted"`
	Failed     int       `json:"failed"`
	Cleared    int       `json:"cleared"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// readyResponse is the body of GET /api/ready.
type readyResponse struct {
	Ready  bool              `json:"ready"`
	Reason string            `json:"reason,omitempty"`
	Seed   *seedSummary      `json:"seed,omitempty"`
	Checks []dependencyCheck `json:"checks"`
}

// checkDependencies pings every dependency concurrently, each under its own
// timeout. Results keep the order of pingers.
func checkDependencies(ctx context.Context, pingers []Pinger, timeout time.Duration) []dependencyCheck {
	checks := make([]dependencyCheck, len(pingers))
	var wg sync.WaitGroup
	for i, p := range pingers {
		wg.Add(1)
		go func(i int, p Pinger) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := p.Ping(pctx)
			checks[i] = dependencyCheck{
				Name:      p.Name(),
				OK:        err == nil,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				checks[i].Error = err.Error()
			}
		}(i, p)
	}
	wg.Wait()
	return checks
}

// CheckDependencies pings every dependency and joins the failures, each
// prefixed with its name. It returns nil when all are reachable.
func CheckDependencies(ctx context.Context, pingers ...Pinger) error {
	var errs []error
	for _, c := range checkDependencies(ctx, pingers, dependencyTimeout) {
		if !c.OK {
			errs = append(errs, fmt.Errorf("%s: %s", c.Name, c.Error))
		}
	}
	return errors.Join(errs...)
}

// summariseSeed converts the last reseed into its readiness form. reason is
// non-empty when search results cannot be trusted yet.
func summariseSeed(status SeedStatus) (summary *seedSummary, reason string) {
	if status == nil {
		return nil, ""
	}
	run, ok := status.LastRun()
	if !ok {
		return nil, "movie collection has not been seeded yet"
	}
	summary = &seedSummary{
		Collection: run.Collection,
		Entries:    run.Report.Saved,
		Attempted:  run.Report.Attempted,
		Failed:     len(run.Report.Failures),
		Cleared:    run.Report.Cleared,
		FinishedAt: run.Finished.UTC(),
	}
	if run.Err != nil {
		summary.Error = run.Err.Error()
		return summary, "last reseed of " + run.Collection + " failed"
	}
	return summary, ""
}

// handleReady handles GET /api/ready. It answers 200 when the collection has
// been seeded and every dependency responds, and 503 otherwise. Seeding with
// some failed records still counts as ready; the counts show the gap.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	resp := readyResponse{Checks: checkDependencies(r.Context(), s.pingers, dependencyTimeout)}
	resp.Seed, resp.Reason = summariseSeed(s.cfg.Seed)

	var failed []string
	for _, c := range resp.Checks {
		if !c.OK {
			failed = append(failed, c.Name)
			log.Warn("readiness: dependency unreachable",
				slog.String("dependency", c.Name),
				slog.String("error", c.Error),
			)
		}
	}
	if resp.Reason == "" && len(failed) > 0 {
		resp.Reason = fmt.Sprintf("unreachable: %v", failed)
	}
	resp.Ready = resp.Reason == ""
	if resp.Seed != nil {
		annotate(r.Context(), slog.Int("entries", resp.Seed.Entries))
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("ready encode error", slog.Any("error", err))
	}
}
