package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limiter guards an external service with a token bucket and a cap on
// in-flight calls.
type Limiter struct {
	bucket   *rate.Limiter
	inflight *semaphore.Weighted

	mu       sync.Mutex
	acquired int
}

// New allows rps requests per second with the given burst, and at most
// maxConcurrent calls in flight.
func New(rps float64, burst, maxConcurrent int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limiter{
		bucket:   rate.NewLimiter(rate.Limit(rps), burst),
		inflight: semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Unlimited never waits; useful in tests.
func Unlimited() *Limiter {
	return &Limiter{
		bucket:   rate.NewLimiter(rate.Inf, 1),
		inflight: semaphore.NewWeighted(1 << 30),
	}
}

// Acquire blocks until a token and a concurrency slot are available. The
// returned release must be called once the call completes.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if err := l.inflight.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for concurrency slot: %w", err)
	}
	if err := l.bucket.Wait(ctx); err != nil {
		l.inflight.Release(1)
		return nil, fmt.Errorf("waiting for rate limit: %w", err)
	}

	l.mu.Lock()
	l.acquired++
	l.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { l.inflight.Release(1) }) }, nil
}

// Acquired reports how many calls have been admitted.
func (l *Limiter) Acquired() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired
}
