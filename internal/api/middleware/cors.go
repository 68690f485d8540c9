package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS 跨域中间件。
// 允许列表支持 "https://*.example.com" 形式的子域通配；
// 刷新 Token 依赖 Cookie，故开启 AllowCredentials 并回显具体 Origin。
// 不在列表中的跨域请求直接返回 403。
func CORS(allowOrigins []string) gin.HandlerFunc {
	origins := make([]string, 0, len(allowOrigins))
	for _, o := range allowOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}

	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowWildcard:    true,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID", "X-RateLimit-Limit", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	if len(origins) == 0 {
		// 未配置前端域名时拒绝全部跨域请求
		cfg.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(cfg)
}
