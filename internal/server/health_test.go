package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/54b3r/moviechat-go/internal/ingestion"
)

// fakePinger is a dependency with a fixed outcome and optional latency.
type fakePinger struct {
	name  string
	err   error
	delay time.Duration
}

func (f *fakePinger) Name() string { return f.name }

func (f *fakePinger) Ping(ctx context.Context) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

// fakeSeed is a SeedStatus with a fixed last run.
type fakeSeed struct {
	run ingestion.Run
	ok  bool
}

func (f fakeSeed) LastRun() (ingestion.Run, bool) { return f.run, f.ok }

func seededRun(saved, failed int) fakeSeed {
	report := ingestion.Report{Cleared: 4, Attempted: saved + failed, Saved: saved}
	for i := 0; i < failed; i++ {
		report.Failures = append(report.Failures, ingestion.Failure{ID: "x", Err: errors.New("embed failed")})
	}
	return fakeSeed{ok: true, run: ingestion.Run{
		Collection: "embedded_movies",
		Finished:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Report:     report,
	}}
}

func getReady(t *testing.T, s *Server) (int, readyResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	s.handleReady(w, httptest.NewRequest(http.MethodGet, "/api/ready", nil))
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode readiness: %v", err)
	}
	return w.Code, resp
}

func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	newTestServer().handleHealth(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("health: got %d %s", w.Code, w.Body.String())
	}
}

func TestHandleReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		seed        SeedStatus
		pingers     []Pinger
		wantStatus  int
		wantEntries int
		wantReason  string
	}{
		{
			name:       "no seed status and no dependencies",
			wantStatus: http.StatusOK,
		},
		{
			name:        "seeded with healthy dependencies",
			seed:        seededRun(12, 0),
			pingers:     []Pinger{&fakePinger{name: "mongo"}, &fakePinger{name: "qdrant"}},
			wantStatus:  http.StatusOK,
			wantEntries: 12,
		},
		{
			name:        "partial seed is still ready",
			seed:        seededRun(9, 3),
			wantStatus:  http.StatusOK,
			wantEntries: 9,
		},
		{
			name:       "not seeded yet",
			seed:       fakeSeed{},
			wantStatus: http.StatusServiceUnavailable,
			wantReason: "not been seeded",
		},
		{
			name: "last reseed failed",
			seed: func() fakeSeed {
				f := seededRun(0, 0)
				f.run.Err = errors.New("ingestion: fetch movies: server selection timeout")
				return f
			}(),
			wantStatus: http.StatusServiceUnavailable,
			wantReason: "last reseed of embedded_movies failed",
		},
		{
			name:        "store unreachable",
			seed:        seededRun(12, 0),
			pingers:     []Pinger{&fakePinger{name: "mongo"}, &fakePinger{name: "redis", err: errors.New("connection refused")}},
			wantStatus:  http.StatusServiceUnavailable,
			wantEntries: 12,
			wantReason:  "redis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer()
			s.cfg.Seed = tt.seed
			s.pingers = tt.pingers

			code, resp := getReady(t, s)
			if code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", code, tt.wantStatus)
			}
			if resp.Ready != (tt.wantStatus == http.StatusOK) {
				t.Errorf("ready: got %v", resp.Ready)
			}
			if !strings.Contains(resp.Reason, tt.wantReason) || (tt.wantReason == "" && resp.Reason != "") {
				t.Errorf("reason: got %q, want containing %q", resp.Reason, tt.wantReason)
			}
			if len(resp.Checks) != len(tt.pingers) {
				t.Errorf("checks: got %d, want %d", len(resp.Checks), len(tt.pingers))
			}
			if tt.wantEntries > 0 {
				if resp.Seed == nil || resp.Seed.Entries != tt.wantEntries || resp.Seed.Collection != "embedded_movies" {
					t.Errorf("seed: got %+v, want %d entries in embedded_movies", resp.Seed, tt.wantEntries)
				}
			}
		})
	}
}

func TestHandleReady_ReportsSeedCounts(t *testing.T) {
	t.Parallel()

	s := newTestServer()
	s.cfg.Seed = seededRun(9, 3)

	_, resp := getReady(t, s)
	want := seedSummary{
		Collection: "embedded_movies",
		Entries:    9,
		Attempted:  12,
		Failed:     3,
		Cleared:    4,
		FinishedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	if resp.Seed == nil || *resp.Seed != want {
		t.Errorf("seed: got %+v, want %+v", resp.Seed, want)
	}
}

func TestCheckDependencies_Concurrent(t *testing.T) {
	t.Parallel()

	pingers := []Pinger{
		&fakePinger{name: "ollama", delay: 100 * time.Millisecond},
		&fakePinger{name: "mongo", delay: 100 * time.Millisecond},
		&fakePinger{name: "qdrant", delay: time.Second},
	}

	start := time.Now()
	checks := checkDependencies(context.Background(), pingers, 200*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 700*time.Millisecond {
		t.Errorf("checks should run concurrently under their timeout, took %v", elapsed)
	}

	if len(checks) != 3 || checks[0].Name != "ollama" || checks[2].Name != "qdrant" {
		t.Fatalf("checks out of order: %+v", checks)
	}
	if !checks[0].OK || !checks[1].OK {
		t.Errorf("fast dependencies should pass: %+v", checks[:2])
	}
	if checks[2].OK || !strings.Contains(checks[2].Error, "deadline") {
		t.Errorf("slow dependency should time out: %+v", checks[2])
	}
}

func TestCheckDependencies_JoinsFailures(t *testing.T) {
	t.Parallel()

	if err := CheckDependencies(context.Background(), &fakePinger{name: "ollama"}); err != nil {
		t.Errorf("healthy: got %v", err)
	}

	err := CheckDependencies(context.Background(),
		&fakePinger{name: "ollama"},
		&fakePinger{name: "mongo", err: errors.New("auth failed")},
		&fakePinger{name: "qdrant", err: errors.New("unavailable")},
	)
	if err == nil {
		t.Fatal("expected failures")
	}
	for _, want := range []string{"mongo: auth failed", "qdrant: unavailable"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
	if strings.Contains(err.Error(), "ollama") {
		t.Errorf("healthy dependency reported: %v", err)
	}
}
