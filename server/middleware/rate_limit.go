package middleware

import (
	"context"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/hrygo/ispkb/server/auth"
	"github.com/hrygo/ispkb/server/internal/errors"
)

// maxTrackedKeys bounds the number of limiters kept in memory. The least
// recently used key loses its limiter and starts again with a full bucket.
const maxTrackedKeys = 10000

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	limits *lru.Cache[string, *rate.Limiter]
	every  time.Duration
	burst  int
}

// NewRateLimiter allows perMinute requests per key and minute, with bursts
// of up to perMinute requests.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	// The size is a positive constant, so New cannot fail.
	limits, _ := lru.New[string, *rate.Limiter](maxTrackedKeys)
	return &RateLimiter{
		limits: limits,
		every:  time.Minute / time.Duration(perMinute),
		burst:  perMinute,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limits.Get(key); ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(rl.every), rl.burst)
	if previous, ok, _ := rl.limits.PeekOrAdd(key, limiter); ok {
		return previous
	}
	return limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Wait waits for a request to be allowed.
// Returns error if the context is cancelled or rate limit exceeded.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// RateLimit rejects requests of a user beyond the limiter's budget. Requests
// without an authenticated user are keyed by client IP.
func RateLimit(rl *RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if userID := auth.GetUserID(c.Request().Context()); userID != 0 {
				key = "user:" + strconv.FormatInt(int64(userID), 10)
			}
			if !rl.Allow(key) {
				return errors.RateLimitExceeded("too many requests, please slow down")
			}
			return next(c)
		}
	}
}
