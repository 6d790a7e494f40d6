package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"lumenstage/api/internal/apperr"
)

// RateLimit is a fixed-window per-IP limiter kept in Redis rather than a
// process-local map, so it holds across replicas. On Redis errors the
// request is let through; the limiter is protection, not a dependency.
func RateLimit(client *redis.Client, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), time.Now().Unix()/int64(window.Seconds()))

		count, err := client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(c.Request.Context(), key, window)
		}

		if count > int64(maxRequests) {
			code, msg := apperr.Public(apperr.ErrRateLimited)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": code, "error": msg})
			return
		}

		c.Next()
	}
}
