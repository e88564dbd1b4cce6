package ratelimit

import (
	"sync"
	"time"
)

// WriteLimiter enforces a fixed daily allowance of mutating requests per
// client IP. The window is anchored to UTC midnight so every client's
// quota renews together with the nightly data reset.
type WriteLimiter struct {
	limit int

	mu     sync.Mutex
	counts map[string]int
	window time.Time

	now func() time.Time
}

// NewWriteLimiter creates a limiter allowing limit writes per IP per UTC
// day.
func NewWriteLimiter(limit int) *WriteLimiter {
	if limit <= 0 {
		limit = 100
	}
	return &WriteLimiter{
		limit:  limit,
		counts: make(map[string]int),
		now:    time.Now,
	}
}

// Limit returns the daily allowance.
func (l *WriteLimiter) Limit() int { return l.limit }

// Allow records one write for ip. It reports whether the write may
// proceed, the writes left today, and the Unix time the window resets.
func (l *WriteLimiter) Allow(ip string) (allowed bool, remaining int, resetUnix int64) {
	now := l.now().UTC()
	window := now.Truncate(24 * time.Hour)
	reset := window.Add(24 * time.Hour)

	l.mu.Lock()
	defer l.mu.Unlock()

	if !window.Equal(l.window) {
		l.counts = make(map[string]int)
		l.window = window
	}

	if l.counts[ip] >= l.limit {
		return false, 0, reset.Unix()
	}
	l.counts[ip]++
	return true, l.limit - l.counts[ip], reset.Unix()
}
