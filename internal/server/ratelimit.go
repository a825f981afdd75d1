package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/54b3r/moviechat-go/internal/logging"
)

// Every search costs one embedding round trip plus a vector query, so the
// defaults sit well below what the probes and metrics endpoints could take.
const (
	defaultSearchRate  = 5
	defaultSearchBurst = 10
)

const (
	// limiterIdleTTL is how long a client's bucket survives without traffic.
	limiterIdleTTL = 5 * time.Minute
	// evictInterval is how often idle buckets are swept.
	evictInterval = time.Minute
)

// clientBucket is one client's token bucket and when it was last used.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter throttles /api/search per client IP.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	rps     rate.Limit
	burst   int

	// onReject is called once per rejected request with the route name.
	onReject func(route string)
}

// newRateLimiter returns a limiter allowing rps searches per second with the
// given burst per client, and a stop function for its eviction goroutine.
// onReject may be nil.
func newRateLimiter(rps float64, burst int, onReject func(route string)) (*rateLimiter, func()) {
	if onReject == nil {
		onReject = func(string) {}
	}
	rl := &rateLimiter{
		buckets:  make(map[string]*clientBucket),
		rps:      rate.Limit(rps),
		burst:    burst,
		onReject: onReject,
	}

	stopCh := make(chan struct{})
	var once sync.Once
	go rl.evictLoop(stopCh)

	return rl, func() { once.Do(func() { close(stopCh) }) }
}

// reserve takes a token for client. It returns zero when the request may
// proceed, or how long the client should wait before retrying.
func (rl *rateLimiter) reserve(client string, now time.Time) time.Duration {
	rl.mu.Lock()
	b, ok := rl.buckets[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[client] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return time.Second
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		// Rejected requests must not consume future capacity.
		r.CancelAt(now)
	}
	return delay
}

func (rl *rateLimiter) evictLoop(stopCh <-chan struct{}) {
	ticker := time.NewTicker(evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

// evict drops buckets idle for longer than limiterIdleTTL.
func (rl *rateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-limiterIdleTTL)
	for client, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, client)
		}
	}
}

// size reports the number of tracked clients.
func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// middleware rejects requests over the client's budget with 429 and a
// Retry-After header in whole seconds.
func (rl *rateLimiter) middleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		wait := rl.reserve(client, time.Now())
		if wait > 0 {
			rl.onReject(route)
			logging.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("route", route),
				slog.String("client", client),
				slog.Duration("retry_after", wait),
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			http.Error(w, "too many searches, slow down", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the remote IP without its port. X-Forwarded-For is not
// trusted; the server binds to localhost by default.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
