// Package ratelimit throttles API clients with a token bucket per key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter keeps one token bucket per key (the client IP). Buckets hold
// burst tokens and refill at perMinute tokens per minute.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time // injectable clock for testing
}

// New creates a Limiter allowing perMinute requests per minute with bursts of
// up to burst requests. A non-positive burst defaults to perMinute.
func New(perMinute, burst int) *Limiter {
	if burst <= 0 {
		burst = perMinute
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		now:      time.Now,
	}
}

// get returns the bucket for key, creating a full one if needed.
// Must be called with l.mu held.
func (l *Limiter) get(key string, now time.Time) *visitor {
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.seen = now
	return v
}

// Allow consumes one token for key and reports whether the request may
// proceed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	return l.get(key, now).lim.AllowN(now, 1)
}

// Status returns the bucket size, the tokens left (floored) and the time at
// which the bucket for key is full again.
func (l *Limiter) Status(key string) (limit int, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	tokens := l.get(key, now).lim.TokensAt(now)

	limit = l.burst
	remaining = int(tokens)
	if remaining < 0 {
		remaining = 0
	}

	resetAt = now
	if deficit := float64(l.burst) - tokens; deficit > 0 && l.limit > 0 {
		resetAt = now.Add(time.Duration(deficit / float64(l.limit) * float64(time.Second)))
	}
	return limit, remaining, resetAt
}

// Prune drops buckets idle for longer than maxIdle and returns how many were
// removed.
func (l *Limiter) Prune(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxIdle)
	removed := 0
	for key, v := range l.visitors {
		if v.seen.Before(cutoff) {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}
