package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, cfg PerIPConfig) *PerIPLimiter {
	t.Helper()
	l := NewPerIPLimiter(cfg)
	t.Cleanup(l.Stop)
	return l
}

func TestPerIPAllowConsumesBurst(t *testing.T) {
	l := newTestLimiter(t, PerIPConfig{Rate: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		allowed, _, _ := l.Allow("10.0.0.1")
		assert.True(t, allowed, "request %d", i)
	}
	allowed, remaining, retry := l.Allow("10.0.0.1")
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.GreaterOrEqual(t, retry, int64(1))
}

func TestPerIPBucketsAreIndependent(t *testing.T) {
	l := newTestLimiter(t, PerIPConfig{Rate: 1, Burst: 1})

	allowed, _, _ := l.Allow("10.0.0.1")
	require.True(t, allowed)
	allowed, _, _ = l.Allow("10.0.0.1")
	require.False(t, allowed)

	allowed, _, _ = l.Allow("10.0.0.2")
	assert.True(t, allowed)
}

func TestPerIPRefillsOverTime(t *testing.T) {
	l := newTestLimiter(t, PerIPConfig{Rate: 10, Burst: 1})
	current := time.Now()
	l.now = func() time.Time { return current }

	allowed, _, _ := l.Allow("10.0.0.1")
	require.True(t, allowed)
	allowed, _, _ = l.Allow("10.0.0.1")
	require.False(t, allowed)

	current = current.Add(200 * time.Millisecond)
	allowed, _, _ = l.Allow("10.0.0.1")
	assert.True(t, allowed)
}

func TestClientIPIgnoresProxyHeadersByDefault(t *testing.T) {
	l := newTestLimiter(t, PerIPConfig{Rate: 1})

	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.RemoteAddr = "192.0.2.7:12345"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")

	assert.Equal(t, "192.0.2.7", l.ClientIP(r))
}

func TestClientIPTrustsProxyHeadersWhenConfigured(t *testing.T) {
	l := newTestLimiter(t, PerIPConfig{Rate: 1, TrustProxy: true})

	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.RemoteAddr = "192.0.2.7:12345"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.1")
	assert.Equal(t, "203.0.113.9", l.ClientIP(r))

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-IP", "203.0.113.10")
	assert.Equal(t, "203.0.113.10", l.ClientIP(r))

	r.Header.Set("X-Real-IP", "not-an-ip")
	assert.Equal(t, "192.0.2.7", l.ClientIP(r))
}

func TestEvictStaleDropsIdleBuckets(t *testing.T) {
	l := newTestLimiter(t, PerIPConfig{Rate: 1, Burst: 1})
	current := time.Now()
	l.now = func() time.Time { return current }

	l.Allow("10.0.0.1")
	current = current.Add(entryTTL + time.Second)
	l.evictStale()

	l.mu.RLock()
	defer l.mu.RUnlock()
	assert.Empty(t, l.buckets)
}

func TestMiddlewareSetsHeadersAnd429(t *testing.T) {
	l := newTestLimiter(t, PerIPConfig{Rate: 1, Burst: 1})
	handler := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/users", nil)
	r.RemoteAddr = "10.0.0.1:5000"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Too Many Requests")
}

func TestMiddlewareNilLimiterPassesThrough(t *testing.T) {
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}
