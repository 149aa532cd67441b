package middleware

import (
	"net"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/utils"
)

// limiterTableSize bounds how many clients are tracked; the least recently
// seen client is evicted first
const limiterTableSize = 10000

// RateLimiter hands out a token bucket per key
type RateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	cache, _ := lru.New[string, *rate.Limiter](limiterTableSize)
	return &RateLimiter{
		limiters: cache,
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	limiter, ok := rl.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		if prev, found, _ := rl.limiters.PeekOrAdd(key, limiter); found {
			limiter = prev
		}
	}
	return limiter.Allow()
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	return rl.limiters.Len()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit returns a middleware that rate limits requests by client IP
func RateLimit(requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow("ip:" + clientIP(r)) {
				utils.WriteError(w, errors.RateLimited("Too many requests. Please try again later."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserRateLimit returns a middleware that rate limits requests per user,
// falling back to the client IP for anonymous requests
func UserRateLimit(requestsPerSecond float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(requestsPerSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			if userID, ok := GetUserID(r); ok {
				key = "user:" + userID
			}
			if !limiter.Allow(key) {
				utils.WriteError(w, errors.RateLimited("Too many requests. Please try again later."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
