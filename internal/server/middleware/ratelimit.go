// file: internal/server/middleware/ratelimit.go
// version: 2.0.0
// guid: 1331705a-85cb-4158-92f5-5ce203d8a0e7

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jdfalk/media-acquirer/internal/metrics"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter is a per-client token bucket limiter. Buckets idle for
// longer than idleTTL are evicted on the next lookup.
type ClientRateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	perSecond rate.Limit
	burst     int
	idleTTL   time.Duration
	exempt    map[string]bool
	now       func() time.Time
}

// NewClientRateLimiter builds a limiter allowing perSecond requests per
// client with the given burst. Paths listed in exempt are never limited.
func NewClientRateLimiter(perSecond float64, burst int, exempt ...string) *ClientRateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	r := &ClientRateLimiter{
		entries:   make(map[string]*limiterEntry),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		idleTTL:   15 * time.Minute,
		exempt:    make(map[string]bool, len(exempt)),
		now:       time.Now,
	}
	for _, p := range exempt {
		r.exempt[p] = true
	}
	return r
}

func (r *ClientRateLimiter) limiterFor(client string) *rate.Limiter {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, entry := range r.entries {
		if now.Sub(entry.lastSeen) > r.idleTTL {
			delete(r.entries, key)
		}
	}

	entry, ok := r.entries[client]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.perSecond, r.burst)}
		r.entries[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Clients returns the number of tracked buckets.
func (r *ClientRateLimiter) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Middleware returns a Gin middleware that enforces the configured limit.
func (r *ClientRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.exempt[c.Request.URL.Path] {
			c.Next()
			return
		}
		client := c.ClientIP()
		if client == "" {
			client = "unknown"
		}
		if !r.limiterFor(client).AllowN(r.now(), 1) {
			metrics.IncRateLimited()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
