package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pharmabill/backend/internal/interfaces/http/dto"
)

// RateLimiter is a fixed-window in-memory limiter keyed by caller
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*window
	limit   int
	window  time.Duration
	now     func() time.Time
}

type window struct {
	tokens  int
	resetAt time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window
func NewRateLimiter(limit int, every time.Duration) *RateLimiter {
	return &RateLimiter{
		callers: make(map[string]*window),
		limit:   limit,
		window:  every,
		now:     time.Now,
	}
}

// StartCleanup drops idle callers every two windows until ctx is done
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window * 2)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, w := range rl.callers {
		if now.Sub(w.resetAt) > rl.window {
			delete(rl.callers, key)
		}
	}
}

// Allow consumes a token for key and reports the tokens left
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.callers[key]
	if !exists || !now.Before(w.resetAt) {
		rl.callers[key] = &window{tokens: rl.limit - 1, resetAt: now.Add(rl.window)}
		return true, rl.limit - 1
	}
	if w.tokens > 0 {
		w.tokens--
		return true, w.tokens
	}
	return false, 0
}

// RateLimit limits each pharmacy, falling back to the client IP for
// requests that are not scoped yet.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		if pharmacyID, ok := GetPharmacyID(c); ok {
			return "pharmacy:" + pharmacyID.String()
		}
		return "ip:" + c.ClientIP()
	})
}

// RateLimitByKey returns a rate limiting middleware with custom key extractor
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining := limiter.Allow(keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}
