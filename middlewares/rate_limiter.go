package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	rate     int
	interval time.Duration
	ips      map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewRateLimiter allows limit requests per interval seconds from each IP.
func NewRateLimiter(limit int, interval int) *RateLimiter {
	return &RateLimiter{
		rate:     limit,
		interval: time.Duration(interval) * time.Second,
		ips:      make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	l, ok := rl.ips[ip]
	if !ok {
		l = rate.NewLimiter(rate.Every(rl.interval/time.Duration(rl.rate)), rl.rate)
		rl.ips[ip] = l
	}
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  false,
				"message": "too many requests",
			})
			return
		}
		c.Next()
	}
}

// NewStrictRateLimiter shares one small bucket across all callers, for
// endpoints that talk to the API server on every call.
func NewStrictRateLimiter(every time.Duration, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Every(every), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  false,
				"message": "too many attempts, wait a moment",
			})
			return
		}
		c.Next()
	}
}
