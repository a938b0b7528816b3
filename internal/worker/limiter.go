package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (client IP, provider name).
// Buckets are created on first use and dropped by Evict once idle.
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	limit rate.Limit
	burst int
	now   func() time.Time
}

type bucket struct {
	*rate.Limiter
	lastSeen atomic.Int64 // Unix nanoseconds
}

// NewLimiter creates a limiter allowing requestsPerSecond per key with the given burst (default 5)
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// Wait blocks until key may proceed or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.bucketFor(key).Wait(ctx)
}

// Allow reports whether key may proceed now, consuming a token if so
func (l *Limiter) Allow(key string) bool {
	return l.bucketFor(key).Allow()
}

func (l *Limiter) bucketFor(key string) *bucket {
	seen := l.now().UnixNano()

	l.mu.RLock()
	b := l.buckets[key]
	l.mu.RUnlock()

	if b == nil {
		l.mu.Lock()
		if b = l.buckets[key]; b == nil {
			b = &bucket{Limiter: rate.NewLimiter(l.limit, l.burst)}
			l.buckets[key] = b
		}
		l.mu.Unlock()
	}

	b.lastSeen.Store(seen)
	return b
}

// Evict drops buckets idle for longer than maxIdle and returns how many were removed
func (l *Limiter) Evict(maxIdle time.Duration) int {
	cutoff := l.now().Add(-maxIdle).UnixNano()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.lastSeen.Load() < cutoff {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}
