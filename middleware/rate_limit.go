package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// KeyFunc is a function that returns a unique key for rate limiting (defaults to IP)
	KeyFunc func(c echo.Context) string
	// Message is the error message returned when rate limit is exceeded
	Message string
}

// RateLimiter is a fixed window limiter keyed per client. Counters expire with their window.
type RateLimiter struct {
	config RateLimitConfig
	hits   *cache.Cache
	mu     sync.Mutex
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}

	return &RateLimiter{
		config: config,
		hits:   cache.New(config.Window, time.Minute),
	}
}

// Allow counts a request for key and reports whether it is within the limit
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	count, err := rl.hits.IncrementInt(key, 1)
	if err != nil {
		// First request of a window
		rl.hits.Set(key, 1, cache.DefaultExpiration)
		count = 1
	}
	return count <= rl.config.Requests
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(rl.config.KeyFunc(c)) {
				return echo.NewHTTPError(http.StatusTooManyRequests, rl.config.Message)
			}
			return next(c)
		}
	}
}

// Pre-configured rate limiters for the public endpoints

// VerificationIssueRateLimiter limits code requests to 5 per 10 minutes per IP
var VerificationIssueRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 5,
	Window:   10 * time.Minute,
	Message:  "Too many verification code requests. Please try again later.",
})

// VerificationConfirmRateLimiter limits confirmation attempts to 10 per minute per IP
var VerificationConfirmRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 10,
	Window:   1 * time.Minute,
	Message:  "Too many verification attempts. Please wait before trying again.",
})

// APIRateLimiter limits general API requests to 120 per minute per IP
var APIRateLimiter = NewRateLimiter(RateLimitConfig{
	Requests: 120,
	Window:   1 * time.Minute,
	Message:  "Rate limit exceeded. Please slow down your requests.",
})
