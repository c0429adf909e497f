// README: Per-actor token bucket for the delivery verification endpoint.
package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit throttles code submissions per driver. The core imposes no cap
// on wrong-code retries, so this is the only brake on brute-forcing a
// six-character code. perMinute <= 0 disables the limiter.
func RateLimit(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}

	var limiters sync.Map // actor id -> *rate.Limiter

	return func(c *gin.Context) {
		key := string(ActorFrom(c).ID)
		if key == "" {
			key = c.ClientIP()
		}

		v, _ := limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst))
		if !v.(*rate.Limiter).Allow() {
			c.Header("Retry-After", "2")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
			return
		}
		c.Next()
	}
}
