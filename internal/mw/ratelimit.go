package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"miner-scanner/config"
)

// limiterIdle is how long a client's bucket survives without traffic.
const limiterIdle = 10 * time.Minute

// IPRateLimiter keeps one token bucket per client IP. Buckets of clients that went
// quiet are evicted by the cache janitor.
type IPRateLimiter struct {
	buckets *cache.Cache
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

// NewIPRateLimiter creates an IPRateLimiter whose buckets expire after idle.
func NewIPRateLimiter(r rate.Limit, b int, idle time.Duration) *IPRateLimiter {
	if idle <= 0 {
		idle = limiterIdle
	}
	return &IPRateLimiter{
		buckets: cache.New(idle, idle),
		r:       r,
		b:       b,
	}
}

// ReadLimiter builds the limiter for read endpoints from cfg.RateLimitPerSec.
func ReadLimiter(cfg config.ServerConfig) *IPRateLimiter {
	rps := cfg.RateLimitPerSec
	if rps <= 0 {
		rps = 5
	}
	return NewIPRateLimiter(rate.Limit(rps), int(rps*2)+1, limiterIdle)
}

// ScanLimiter builds the limiter shared by the scan triggers from
// cfg.ScanRateLimitPerMin.
func ScanLimiter(cfg config.ServerConfig) *IPRateLimiter {
	perMin := cfg.ScanRateLimitPerMin
	if perMin <= 0 {
		perMin = 12
	}
	return NewIPRateLimiter(rate.Limit(perMin/60), 3, limiterIdle)
}

// Limiter returns the bucket for ip, creating it on first use. Each call pushes the
// bucket's expiry back.
func (l *IPRateLimiter) Limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	var limiter *rate.Limiter
	if v, ok := l.buckets.Get(ip); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(l.r, l.b)
	}
	l.buckets.SetDefault(ip, limiter)
	return limiter
}

// Clients reports how many client buckets are live.
func (l *IPRateLimiter) Clients() int {
	return l.buckets.ItemCount()
}

// Middleware rejects clients that exhausted their bucket. onLimit renders the
// rejection; nil answers 429 with a Retry-After hint.
func (l *IPRateLimiter) Middleware(onLimit gin.HandlerFunc) gin.HandlerFunc {
	if onLimit == nil {
		retryAfter := "1"
		if l.r > 0 {
			retryAfter = strconv.Itoa(int(math.Ceil(1 / float64(l.r))))
		}
		onLimit = func(c *gin.Context) {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatus(http.StatusTooManyRequests)
		}
	}
	return func(c *gin.Context) {
		if !l.Limiter(c.ClientIP()).Allow() {
			onLimit(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
