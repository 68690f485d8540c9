package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// apiCSP 接口只返回 JSON 与导出文件，不渲染任何页面
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// SecurityHeaders 安全响应头。
// /api 下的响应携带按数据范围区分的买入状态，禁止任何中间缓存。
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", apiCSP)
		h.Set("Cross-Origin-Resource-Policy", "same-site")

		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			h.Set("Cache-Control", "no-store")
			h.Set("Vary", "Authorization, Origin")
		}

		c.Next()
	}
}
