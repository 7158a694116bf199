package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "go-gin-gorm-users/internal/transport/http/response"
)

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimitPerIP applies a token bucket per client IP. Buckets idle for
// longer than idleTTL are dropped on the next sweep.
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	const idleTTL = 10 * time.Minute
	var (
		mu        sync.Mutex
		buckets   = make(map[string]*visitor)
		lastSweep = time.Now()
	)
	retry := strconv.Itoa(int(math.Ceil(1 / float64(rps))))

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > idleTTL {
			for k, v := range buckets {
				if now.Sub(v.seen) > idleTTL {
					delete(buckets, k)
				}
			}
			lastSweep = now
		}
		v, ok := buckets[ip]
		if !ok {
			v = &visitor{lim: rate.NewLimiter(rps, burst)}
			buckets[ip] = v
		}
		v.seen = now
		allowed := v.lim.AllowN(now, 1)
		mu.Unlock()

		if allowed {
			c.Next()
			return
		}
		c.Header("Retry-After", retry)
		resp.Abort(c, resp.Error(resp.CodeTooManyRequests, "too many requests"))
	}
}
