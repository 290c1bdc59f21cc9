// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter keyed by the
// authenticated actor or, failing that, the client IP. The router installs
// it on the upload route only: each import parses a whole file and runs
// several batched queries, so uploads are the expensive path.
//
// Features:
//   - Per-key token buckets using golang.org/x/time/rate
//   - Identity from the auth middleware's actor, else the client IP
//   - Opportunistic eviction of idle buckets to bound memory
//   - Replays served from a stored import result (see IdempotencyValidator)
//     skip the limiter
//
// Notes:
//   - Buckets are process-local. Several replicas each enforce their own
//     limit, so the effective limit scales with the replica count.
//   - The X-User-ID header is never used as a key; it is caller-controlled.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByActorOrIP buckets by the actor set by auth middleware ("actor:<id>")
// and falls back to the client IP ("ip:<addr>"). The X-User-ID header is not
// used here because any client can set it.
func KeyByActorOrIP() keyFunc {
	return func(c *gin.Context) string {
		if a := authenticatedActor(c); a != "" {
			return "actor:" + a
		}
		return "ip:" + c.ClientIP()
	}
}

// visitor holds a single rate limiter and the last time it was seen.
// Used to opportunistically evict idle buckets.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token-bucket limiter.
//
// Buckets are created on first use and kept in a map guarded by a mutex.
// Buckets idle for longer than ttl (10 minutes) are removed during lookups,
// so a quiet client starts again with a full burst.
//
// RateLimiter is safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter builds a limiter keyed by keyFn.
//
//   - rps:   uploads replenished per second per key (RATE_RPS).
//   - burst: uploads allowed back to back (RATE_BURST); values <= 0 become 1.
//   - keyFn: maps a request to its bucket, usually KeyByActorOrIP().
//
// Install it on a route with Handler().
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor returns the limiter for key, creating it if absent. Every 5000
// lookups it first evicts buckets idle for at least ttl, so the bucket being
// fetched can itself be evicted and recreated.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		lim := v.limiter
		rl.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	rl.mu.Unlock()
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as
// a replay.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass) // set by IdempotencyValidator
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns a Gin middleware that enforces per-key limits.
//
// Behavior:
//   - If IsRateBypass(c) is true (an idempotent replay), limiting is skipped
//     and no token is spent.
//   - Otherwise the request takes a token from its key's bucket. With a token
//     it proceeds; without one it is aborted before the upload is read.
//
// Over-limit requests receive:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 1
//	{
//	  "request_id": "<uuid>",
//	  "code":       "too_many_requests",
//	  "message":    "rate limit exceeded"
//	}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		lim := rl.getVisitor(key)

		if lim.Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
