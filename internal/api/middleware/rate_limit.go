package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"watch-reserve/backend/pkg/redis"
	"watch-reserve/backend/pkg/response"
)

// RateLimit 基于 Redis 滑动窗口的限流。
// bucket 为限流分组名（如 "auth"、"status_write"），同组路由共享计数；
// 已认证请求按用户计数，其余按来源 IP。rdb 为 nil 或 Redis 出错时放行。
func RateLimit(rdb *redis.Client, bucket string, limit int, window time.Duration) gin.HandlerFunc {
	limitHeader := strconv.Itoa(limit)
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}

		subject := c.GetString("user_id")
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}

		allowed, err := rdb.CheckRateLimit(c.Request.Context(), "rate_limit:"+bucket+":"+subject, limit, window)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", limitHeader)
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.TooManyRequests(c)
			c.Abort()
			return
		}

		c.Next()
	}
}
