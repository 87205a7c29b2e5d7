// Package middleware contains the Gin middleware of the ops and intake API.
//
// This file implements a process-local token-bucket rate limiter keyed by
// client identity. Buckets live in a bounded LRU, so a flood of distinct
// clients evicts the least recently seen buckets instead of growing memory.
// Probe endpoints can be exempted so orchestrators are never throttled.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// defaultMaxClients bounds the number of tracked buckets.
const defaultMaxClients = 10000

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByDonorOrIP keys donor routes by the donor path parameter and
// everything else by client IP. Keys are prefixed so the namespaces never
// collide.
func KeyByDonorOrIP() keyFunc {
	return func(c *gin.Context) string {
		if id := c.Param("donorId"); id != "" {
			return "donor:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimiter implements a per-key token-bucket rate limiter. It is safe for
// concurrent use.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	keyFn   keyFunc
	buckets *lru.Cache[string, *rate.Limiter]
	exempt  map[string]struct{}
}

// NewRateLimiter constructs a RateLimiter with the given tokens-per-second
// and burst size. burst values <= 0 are coerced to 1. Requests whose route
// pattern is listed in exemptPaths are never limited.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc, exemptPaths ...string) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	// only fails for a non-positive size
	buckets, _ := lru.New[string, *rate.Limiter](defaultMaxClients)
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		keyFn:   keyFn,
		buckets: buckets,
		exempt:  exempt,
	}
}

// limiter returns the bucket of key, creating it if absent.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if lim, ok := rl.buckets.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	if prev, ok, _ := rl.buckets.PeekOrAdd(key, lim); ok {
		return prev
	}
	return lim
}

// Handler returns the Gin middleware. A denied request gets 429 with the
// standard error envelope and Retry-After: 1.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := rl.exempt[c.FullPath()]; ok {
			c.Next()
			return
		}
		if rl.limiter(rl.keyFn(c)).Allow() {
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
