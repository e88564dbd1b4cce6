// Package ratelimit provides the two limiters the server runs: a per-IP
// token bucket over all requests and a fixed-window daily quota over
// writes.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	cleanupInterval = time.Minute
	entryTTL        = 10 * time.Minute
)

// PerIPConfig configures a PerIPLimiter.
type PerIPConfig struct {
	// Rate is the sustained allowance in requests per second.
	Rate float64

	// Burst is the bucket capacity. Defaults to twice the rate.
	Burst int

	// TrustProxy makes ClientIP honor X-Forwarded-For and X-Real-IP.
	TrustProxy bool
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// PerIPLimiter is a token-bucket limiter keyed by client IP. Stale
// buckets are evicted by a background goroutine; call Stop when done.
type PerIPLimiter struct {
	rate       float64
	burst      int
	trustProxy bool

	mu      sync.RWMutex
	buckets map[string]*bucket

	stopCh    chan struct{}
	stoppedCh chan struct{}

	now func() time.Time
}

// NewPerIPLimiter creates a limiter and starts its cleanup goroutine.
func NewPerIPLimiter(cfg PerIPConfig) *PerIPLimiter {
	rate := cfg.Rate
	if rate <= 0 {
		rate = 100
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(rate * 2)
	}

	l := &PerIPLimiter{
		rate:       rate,
		burst:      burst,
		trustProxy: cfg.TrustProxy,
		buckets:    make(map[string]*bucket),
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
		now:        time.Now,
	}
	go l.cleanupLoop()
	return l
}

// Burst returns the bucket capacity, exposed in X-RateLimit-Limit.
func (l *PerIPLimiter) Burst() int { return l.burst }

// Allow consumes one token for ip. It reports whether the request may
// proceed, the remaining tokens, and the seconds until the bucket refills
// (or until retry is worthwhile when denied).
func (l *PerIPLimiter) Allow(ip string) (allowed bool, remaining int, resetSec int64) {
	now := l.now()

	l.mu.RLock()
	b, ok := l.buckets[ip]
	l.mu.RUnlock()
	if !ok {
		l.mu.Lock()
		b, ok = l.buckets[ip]
		if !ok {
			b = &bucket{tokens: float64(l.burst), lastUpdate: now}
			l.buckets[ip] = b
		}
		l.mu.Unlock()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastUpdate).Seconds() * l.rate
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		refill := int64((float64(l.burst) - b.tokens) / l.rate)
		if refill < 1 {
			refill = 1
		}
		return true, int(b.tokens), refill
	}

	retry := int64((1 - b.tokens) / l.rate)
	if retry < 1 {
		retry = 1
	}
	return false, 0, retry
}

// ClientIP extracts the calling address for keying. Proxy headers are
// only honored when the limiter was configured to trust them.
func (l *PerIPLimiter) ClientIP(r *http.Request) string {
	if l.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
			return xri
		}
	}
	return remoteIP(r.RemoteAddr)
}

// Stop terminates the cleanup goroutine and waits for it to exit.
func (l *PerIPLimiter) Stop() {
	close(l.stopCh)
	<-l.stoppedCh
}

func (l *PerIPLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	defer close(l.stoppedCh)

	for {
		select {
		case <-ticker.C:
			l.evictStale()
		case <-l.stopCh:
			return
		}
	}
}

func (l *PerIPLimiter) evictStale() {
	cutoff := l.now().Add(-entryTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.buckets {
		b.mu.Lock()
		if b.lastUpdate.Before(cutoff) {
			delete(l.buckets, ip)
		}
		b.mu.Unlock()
	}
}

// remoteIP strips the port from a host:port RemoteAddr.
func remoteIP(remoteAddr string) string {
	ip, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return ip
}
