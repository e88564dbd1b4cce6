package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLimiterExhaustsDailyBudget(t *testing.T) {
	l := NewWriteLimiter(3)

	for i := 0; i < 3; i++ {
		allowed, remaining, _ := l.Allow("10.0.0.1")
		require.True(t, allowed, "write %d", i)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, remaining, reset := l.Allow("10.0.0.1")
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.Greater(t, reset, time.Now().UTC().Unix())
}

func TestWriteLimiterWindowRollsAtMidnightUTC(t *testing.T) {
	l := NewWriteLimiter(1)
	current := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return current }

	allowed, _, reset := l.Allow("10.0.0.1")
	require.True(t, allowed)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC).Unix(), reset)

	allowed, _, _ = l.Allow("10.0.0.1")
	require.False(t, allowed)

	current = time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC)
	allowed, _, _ = l.Allow("10.0.0.1")
	assert.True(t, allowed)
}

func TestWriteLimiterCountsPerIP(t *testing.T) {
	l := NewWriteLimiter(1)

	allowed, _, _ := l.Allow("10.0.0.1")
	require.True(t, allowed)
	allowed, _, _ = l.Allow("10.0.0.2")
	assert.True(t, allowed)
}

func TestWriteMiddlewareOnlyGuardsWrites(t *testing.T) {
	l := NewWriteLimiter(1)
	clientIP := func(r *http.Request) string { return "10.0.0.1" }
	handler := WriteMiddleware(l, clientIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/todos", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/todos", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/todos/1", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Daily write limit")
}
