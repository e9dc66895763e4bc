package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// RateLimit counts requests per client IP in fixed windows using Redis
// INCR+EXPIRE. A nil client disables limiting, and Redis errors fail open.
func RateLimit(rdb *redis.Client, prefix string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rl:%s:%s", prefix, c.ClientIP())
		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.WithError(err).WithField("component", "ratelimit").Warn("rate limit check failed")
			c.Next()
			return
		}
		if count == 1 {
			_ = rdb.Expire(c.Request.Context(), key, window).Err()
		}
		if count > int64(limit) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
