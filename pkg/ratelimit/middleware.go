package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/apimockr/apimockr/pkg/httputil"
)

// Middleware enforces the per-IP limiter on every request. A nil limiter
// passes through.
func Middleware(limiter *PerIPLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, reset := limiter.Allow(limiter.ClientIP(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(reset, 10))
				httputil.WriteTooManyRequests(w, "Too many requests. Please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteMiddleware enforces the daily write allowance on mutating methods.
// Reads pass through untouched. A nil limiter passes through.
func WriteMiddleware(limiter *WriteLimiter, clientIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, resetUnix := limiter.Allow(clientIP(r))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetUnix, 10))

			if !allowed {
				httputil.WriteTooManyRequests(w,
					"Daily write limit reached. The allowance resets at midnight UTC.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
