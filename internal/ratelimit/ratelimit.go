package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	// Allow checks if a request from the given key is allowed
	Allow(ctx context.Context, key string) bool
}

// InMemoryRateLimiter implements rate limiting using in-memory token buckets.
// Suitable for single-instance deployments.
type InMemoryRateLimiter struct {
	rate  rate.Limit
	burst int
	clock quartz.Clock

	mu       sync.Mutex
	limiters map[string]*entry

	cleanupInterval time.Duration
	maxAge          time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Option configures an InMemoryRateLimiter.
type Option func(*InMemoryRateLimiter)

// WithClock overrides the clock used for token refill and cleanup.
func WithClock(c quartz.Clock) Option {
	return func(l *InMemoryRateLimiter) {
		l.clock = c
	}
}

// NewInMemoryRateLimiter creates a new in-memory rate limiter
// rps: requests per second (e.g., 10 for 10 req/sec)
// burst: maximum burst size
func NewInMemoryRateLimiter(rps float64, burst int, opts ...Option) *InMemoryRateLimiter {
	l := &InMemoryRateLimiter{
		rate:            rate.Limit(rps),
		burst:           burst,
		clock:           quartz.NewReal(),
		limiters:        make(map[string]*entry),
		cleanupInterval: 5 * time.Minute,
		maxAge:          10 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.cleanup()

	return l
}

// Allow checks if a single request is allowed
func (l *InMemoryRateLimiter) Allow(_ context.Context, key string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastAccess = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// cleanup periodically removes old limiters to prevent memory leaks
func (l *InMemoryRateLimiter) cleanup() {
	ticker := l.clock.NewTicker(l.cleanupInterval, "ratelimit", "cleanup")
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupOldLimiters()
		case <-l.stopCleanup:
			return
		}
	}
}

// cleanupOldLimiters removes limiters that haven't been used recently
func (l *InMemoryRateLimiter) cleanupOldLimiters() int {
	cutoff := l.clock.Now().Add(-l.maxAge)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.limiters {
		if e.lastAccess.Before(cutoff) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Stop stops the cleanup goroutine
func (l *InMemoryRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCleanup) })
}

// Size returns the number of tracked keys.
func (l *InMemoryRateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
