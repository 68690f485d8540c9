package router

import (
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"watch-reserve/backend/config"
	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/api/handler"
	"watch-reserve/backend/internal/api/middleware"
	"watch-reserve/backend/pkg/jwt"
	"watch-reserve/backend/pkg/redis"
)

// 请求体上限与公开接口限流参数
const (
	maxBodyBytes     = 1 << 20
	authRateLimit    = 20
	authRateWindow   = time.Minute
	statusRateLimit  = 120
	statusRateWindow = time.Minute
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, "auth", authRateLimit, authRateWindow))
		{
			auth.POST("/google", h.Auth.GoogleLogin)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.GET("/invite/:code", h.Invite.ValidateInvite)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.POST("/auth/signup", h.Auth.Signup)
			authorized.GET("/auth/me", h.Auth.GetMe)

			// 邀请码
			authorized.GET("/invite-codes/me", h.Invite.ListMine)

			// 商品模块
			watches := authorized.Group("/watches")
			{
				watches.GET("", middleware.FeatureAuth(access.TabCatalog), h.Watch.ListWatches)
				watches.GET("/filters", h.Watch.GetFilterOptions)
				watches.GET("/:model/image", h.Watch.GetImage)
				watches.PUT("/:model/status",
					middleware.FeatureAuth(access.EditWatchStatus),
					middleware.RateLimit(rdb, "status_write", statusRateLimit, statusRateWindow),
					h.Watch.UpdateStatus,
				)
			}
			authorized.GET("/watch-status-logs", middleware.FeatureAuth(access.TabHistory), h.Watch.ListLogs)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.PUT("/me/data-source", middleware.FeatureAuth(access.ViewOtherScope), h.Watch.SetDataSource)
				users.GET("", middleware.FeatureAuth(access.ManageUsers), h.User.ListUsers)
				users.PUT("/:id/approve", middleware.FeatureAuth(access.ManageUsers), h.User.Approve)
				users.PUT("/:id/reject", middleware.FeatureAuth(access.ManageUsers), h.User.Reject)
				users.GET("/:id/role-preview", middleware.FeatureAuth(access.ManageUsers), h.User.PreviewRoleChange)
				users.PUT("/:id/role", middleware.FeatureAuth(access.ManageUsers), h.User.ChangeRole)
			}

			// 报表与导出
			authorized.GET("/reports/team", middleware.FeatureAuth(access.TabReports), h.Report.Team)
			authorized.GET("/export/buy-list", middleware.FeatureAuth(access.TabReports), h.Export.ExportBuyList)
		}
	}

	return r
}
