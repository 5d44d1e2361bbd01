// Package middleware provides HTTP middleware for the podrestore API.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/persistorai/podrestore/internal/httputil"
)

// maxBuckets caps the number of tracked keys to bound memory.
const maxBuckets = 100_000

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// ByClientIP charges requests to the caller's IP. c.ClientIP() cannot be
// spoofed through X-Forwarded-For because the router trusts no proxies.
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByAccount charges requests to the target account when the route names one,
// falling back to the caller's IP. Restores of one account from many
// addresses then share a single budget.
func ByAccount(c *gin.Context) string {
	if username := c.Param("username"); username != "" {
		return "account:" + username
	}

	return "ip:" + c.ClientIP()
}

// RateLimiter is a token bucket rate limiter keyed by KeyFunc.
type RateLimiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex
	rate    int
	burst   int
	key     KeyFunc
}

type bucket struct {
	tokens     int
	lastFill   time.Time
	ratePerSec int
	burst      int
}

func (b *bucket) allow() bool {
	now := time.Now()
	refill := int(now.Sub(b.lastFill).Seconds() * float64(b.ratePerSec))

	if refill > 0 {
		b.tokens = min(b.tokens+refill, b.burst)
		b.lastFill = now
	}

	if b.tokens > 0 {
		b.tokens--

		return true
	}

	return false
}

// NewRateLimiter creates a RateLimiter with the given requests per second and
// burst size. A nil key charges by client IP. Stale buckets are evicted by a
// background goroutine that stops when ctx is cancelled.
func NewRateLimiter(ctx context.Context, ratePerSec, burst int, key KeyFunc) *RateLimiter {
	if key == nil {
		key = ByClientIP
	}

	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    ratePerSec,
		burst:   burst,
		key:     key,
	}
	go rl.startCleanup(ctx)

	return rl
}

func (rl *RateLimiter) startCleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	const maxAge = 10 * time.Minute

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for k, b := range rl.buckets {
				if now.Sub(b.lastFill) > maxAge {
					delete(rl.buckets, k)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Handler returns Gin middleware that applies the limit.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		k := rl.key(c)

		rl.mu.Lock()
		b, ok := rl.buckets[k]
		if !ok {
			if len(rl.buckets) >= maxBuckets {
				rl.mu.Unlock()
				httputil.RespondError(c, http.StatusTooManyRequests, "rate_limited", "too many clients")

				return
			}

			b = &bucket{
				tokens:     rl.burst,
				lastFill:   time.Now(),
				ratePerSec: rl.rate,
				burst:      rl.burst,
			}
			rl.buckets[k] = b
		}

		allowed := b.allow()
		rl.mu.Unlock()

		if !allowed {
			httputil.RespondError(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")

			return
		}

		c.Next()
	}
}
