// Package ratelimit provides a sliding-window request limiter for the HTTP
// API, keyed by client IP.
package ratelimit

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Limiter tracks request timestamps per client inside a sliding window.
type Limiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxRequests int
	requests    map[string][]time.Time
	now         func() time.Time
}

// NewLimiter creates a limiter allowing maxRequests per window per client.
func NewLimiter(window time.Duration, maxRequests int) *Limiter {
	return &Limiter{
		window:      window,
		maxRequests: maxRequests,
		requests:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Allow reports whether the client may proceed. When denied it also returns
// how long the client should wait before the oldest tracked request leaves
// the window.
func (l *Limiter) Allow(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.requests[client][:0]
	for _, ts := range l.requests[client] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.maxRequests {
		l.requests[client] = kept
		retryAfter := kept[0].Add(l.window).Sub(now)
		return false, retryAfter
	}

	l.requests[client] = append(kept, now)
	return true, 0
}

// Middleware returns a gin handler that rejects over-limit clients with 429
// and a Retry-After header.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		ok, retryAfter := l.Allow(client)
		if !ok {
			seconds := int(retryAfter.Seconds()) + 1
			log.Warnf("Rate limit exceeded for %s, retry after %ds", client, seconds)
			c.Header("Retry-After", fmt.Sprintf("%d", seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": seconds,
			})
			return
		}
		c.Next()
	}
}
