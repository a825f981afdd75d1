package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// captureLogger returns a JSON logger writing into buf.
func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// lastLogLine decodes the final JSON line written to buf.
func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return entry
}

func TestRequestLogger_SearchLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := &Server{search: &fakeSearcher{out: `[{"relevance":0.8},{"relevance":0.5}]`}, cfg: &Config{}}
	h := requestLogger(captureLogger(&buf), http.HandlerFunc(s.handleSearch))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"space battle","limit":2}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}

	entry := lastLogLine(t, &buf)
	if entry["msg"] != "request" || entry["level"] != "INFO" {
		t.Errorf("log line: got %v", entry)
	}
	for key, want := range map[string]float64{"status": 200, "limit": 2, "query_len": 12, "results": 2} {
		if got, _ := entry[key].(float64); got != want {
			t.Errorf("%s: got %v, want %v", key, entry[key], want)
		}
	}
	if got, _ := entry["bytes"].(float64); int(got) != w.Body.Len() {
		t.Errorf("bytes: got %v, want %d", entry["bytes"], w.Body.Len())
	}
	if entry["request_id"] != w.Header().Get(requestIDHeader) {
		t.Errorf("request_id %v not echoed in %s", entry["request_id"], requestIDHeader)
	}
}

func TestRequestLogger_RejectedSearchLogsWarn(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := requestLogger(captureLogger(&buf), authMiddleware("s3cret", nil, okHandler))
	h.ServeHTTP(httptest.NewRecorder(), searchFrom("10.0.0.3:1"))

	if entry := lastLogLine(t, &buf); entry["level"] != "WARN" || entry["status"] != float64(401) {
		t.Errorf("log line: got %v", entry)
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"caller id kept", "search-7f3a", true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"control characters", "abc\ndef", false},
		{"spaces", "two words", false},
	}
	for _, tt := range tests {
		got := requestID(tt.incoming)
		if tt.keep {
			if got != tt.incoming {
				t.Errorf("%s: got %q, want %q", tt.name, got, tt.incoming)
			}
			continue
		}
		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("%s: got %q, want a fresh UUID", tt.name, got)
		}
	}
}

func TestAnnotate_OutsideRequestLogger(t *testing.T) {
	t.Parallel()
	// Handlers called directly in tests have no collector to write to.
	annotate(httptest.NewRequest(http.MethodGet, "/", nil).Context(), slog.Int("results", 1))
}
