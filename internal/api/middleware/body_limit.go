package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"watch-reserve/backend/pkg/response"
)

// BodyLimit 请求体大小限制。
// 声明了 Content-Length 的请求在读取前直接拒绝；其余请求在绑定时由 MaxBytesReader 截断。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.PayloadTooLarge(c)
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, e := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(e.Err, &tooLarge) {
				response.PayloadTooLarge(c)
				return
			}
		}
	}
}
