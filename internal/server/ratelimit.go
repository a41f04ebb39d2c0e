package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	limiterTTL     = 10 * time.Minute
	limiterCleanup = 5 * time.Minute
)

// ipRateLimiter keeps one token bucket per client IP. Buckets idle past the
// TTL are evicted, so the map cannot grow without bound. The limit is
// process-local; multiple instances multiply the effective allowance.
type ipRateLimiter struct {
	buckets *gocache.Cache
	limit   rate.Limit
	burst   int
}

func newIPRateLimiter(perSecond float64, burst int) *ipRateLimiter {
	return &ipRateLimiter{
		buckets: gocache.New(limiterTTL, limiterCleanup),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (l *ipRateLimiter) allow(clientIP string) bool {
	if cached, ok := l.buckets.Get(clientIP); ok {
		limiter := cached.(*rate.Limiter)
		l.buckets.Set(clientIP, limiter, gocache.DefaultExpiration)
		return limiter.Allow()
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.buckets.Set(clientIP, limiter, gocache.DefaultExpiration)
	return limiter.Allow()
}

func (l *ipRateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}
