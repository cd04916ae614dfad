package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleEvict  = 10 * time.Minute
)

// clientLimiters holds one token bucket per client IP. Audit recording is
// bursty around batch uploads, so buckets are created lazily and evicted once
// a client has been quiet for limiterIdleEvict.
type clientLimiters struct {
	mu    sync.Mutex
	rps   int
	burst int
	byIP  map[string]*clientBucket
}

type clientBucket struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func (cl *clientLimiters) get(ip string) *rate.Limiter {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	b, ok := cl.byIP[ip]
	if !ok {
		b = &clientBucket{bucket: rate.NewLimiter(rate.Limit(cl.rps), cl.burst)}
		cl.byIP[ip] = b
	}
	b.lastSeen = time.Now()
	return b.bucket
}

func (cl *clientLimiters) sweep() {
	for {
		time.Sleep(limiterSweepEvery)
		cl.mu.Lock()
		for ip, b := range cl.byIP {
			if time.Since(b.lastSeen) > limiterIdleEvict {
				delete(cl.byIP, ip)
			}
		}
		cl.mu.Unlock()
	}
}

// RateLimiter returns a Gin middleware enforcing a per-IP token bucket. rps
// is the steady-state request rate; burst is the bucket depth.
func RateLimiter(rps, burst int) gin.HandlerFunc {
	cl := &clientLimiters{rps: rps, burst: burst, byIP: make(map[string]*clientBucket)}
	go cl.sweep()

	return func(c *gin.Context) {
		if !cl.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
