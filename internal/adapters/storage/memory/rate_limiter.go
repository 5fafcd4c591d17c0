// Package memory holds single-instance fallbacks for the storage ports.
package memory

import (
	"context"
	"sync"
	"time"
)

// sweepEvery is how many calls pass between scans for idle keys.
const sweepEvery = 1024

// RateLimiter is an in-process sliding-log limiter. It is used when no Redis address is configured.
type RateLimiter struct {
	mu      sync.Mutex
	hits    map[string][]time.Time
	windows map[string]time.Duration
	calls   int
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		hits:    make(map[string][]time.Time),
		windows: make(map[string]time.Duration),
		now:     time.Now,
	}
}

// IsAllowed records the request and reports whether the key stayed within limit for the window.
func (l *RateLimiter) IsAllowed(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hits := prune(l.hits[key], now.Add(-window))
	hits = append(hits, now)
	l.hits[key] = hits
	l.windows[key] = window

	l.calls++
	if l.calls%sweepEvery == 0 {
		l.sweep(now)
	}

	return len(hits) <= limit, nil
}

// sweep drops keys whose newest hit has left their window.
func (l *RateLimiter) sweep(now time.Time) {
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(now.Add(-l.windows[key])) {
			delete(l.hits, key)
			delete(l.windows, key)
		}
	}
}

// prune drops timestamps at or before cutoff. hits is kept in ascending order.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

// Len returns the number of tracked keys.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}
