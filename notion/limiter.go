package notion

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter gates outbound Notion calls with a token bucket. Burst is fixed
// at 1 so consecutive acquisitions are spaced at the configured rate even
// after an idle period; Notion rejects bursts above its documented ceiling
// of roughly three requests per second.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter creates a limiter for the given request rate.
// Non-positive rates fall back to the Notion default of 3 req/s.
func NewLimiter(requestsPerSecond float64) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 3
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Acquire blocks until a token is available or the context is cancelled.
// Callers must acquire immediately before each HTTP request, not once per
// job, so multi-call jobs cannot burst past the ceiling.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}
