package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// slowRequest 超过该耗时的成功请求按 Warn 记录（目录筛选与 Excel 导出是主要热点）
const slowRequest = time.Second

// Logger 请求日志中间件（基于 Zap 结构化日志）。
// 健康检查不记录。
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.Int("bytes", c.Writer.Size()),
		}
		if rid := c.GetString(requestIDKey); rid != "" {
			fields = append(fields, zap.String("request_id", rid))
		}
		if uid := c.GetString("user_id"); uid != "" {
			fields = append(fields, zap.String("user_id", uid), zap.String("role", c.GetString("role")))
		}
		if model := c.Param("model"); model != "" {
			fields = append(fields, zap.String("model_number", model))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		switch {
		case status >= 500:
			logger.Error("请求处理失败", fields...)
		case status >= 400:
			logger.Warn("客户端错误", fields...)
		case latency > slowRequest:
			logger.Warn("慢请求", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}
