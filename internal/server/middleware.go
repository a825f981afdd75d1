package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/54b3r/moviechat-go/internal/logging"
)

// requestIDHeader carries the request id in both directions.
const requestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds caller-supplied ids before they reach the logs.
const maxRequestIDLen = 64

// requestAttrs collects fields handlers attach to the request's log line,
// such as the search limit and result count.
type requestAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

type requestAttrsKey struct{}

// annotate adds attrs to the completion line logged by requestLogger. It is a
// no-op outside requestLogger.
func annotate(ctx context.Context, attrs ...slog.Attr) {
	ra, ok := ctx.Value(requestAttrsKey{}).(*requestAttrs)
	if !ok {
		return
	}
	ra.mu.Lock()
	ra.attrs = append(ra.attrs, attrs...)
	ra.mu.Unlock()
}

// requestLogger tags each request with an id, taken from X-Request-ID when the
// caller sent a usable one, puts a logger carrying it into the context, echoes
// the id back, and logs one line on completion with status, size, latency and
// any fields handlers added through annotate.
func requestLogger(base *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := requestID(r.Header.Get(requestIDHeader))
		w.Header().Set(requestIDHeader, reqID)

		log := base.With(
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		ra := &requestAttrs{}
		ctx := logging.WithLogger(r.Context(), log)
		ctx = context.WithValue(ctx, requestAttrsKey{}, ra)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rw, r.WithContext(ctx))

		ra.mu.Lock()
		attrs := append([]slog.Attr{
			slog.Int("status", rw.status),
			slog.Int("bytes", rw.written),
			slog.Duration("duration", time.Since(start)),
		}, ra.attrs...)
		ra.mu.Unlock()

		log.LogAttrs(ctx, levelFor(rw.status), "request", attrs...)
	})
}

// levelFor logs server errors at ERROR and rejected requests at WARN.
func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// requestID returns incoming when it is a short printable token, otherwise a
// fresh UUID.
func requestID(incoming string) string {
	if incoming == "" || len(incoming) > maxRequestIDLen {
		return uuid.NewString()
	}
	for _, c := range incoming {
		if c <= ' ' || c > '~' {
			return uuid.NewString()
		}
	}
	return incoming
}

// responseWriter records the status code and body size written by a handler.
type responseWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}
