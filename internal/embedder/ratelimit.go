package embedder

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/54b3r/moviechat-go/internal/rag"
)

// RateLimited wraps a rag.Embedder with a token-bucket limiter. Each Embed
// call consumes one token regardless of batch size.
type RateLimited struct {
	next    rag.Embedder
	limiter *rate.Limiter
}

// NewRateLimited returns next throttled to rps calls per second with the
// given burst. A burst below 1 is raised to 1.
func NewRateLimited(next rag.Embedder, rps float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Embed waits for a token, then delegates to the wrapped embedder.
func (r *RateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedder: rate limit wait: %w", err)
	}
	return r.next.Embed(ctx, texts)
}
