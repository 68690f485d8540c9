package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"watch-reserve/backend/internal/service"
	"watch-reserve/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// tokenMeta 提取当前 Access Token 的 jti 与过期时间（登出加入黑名单用）
func tokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString("token_jti")
	exp, _ := c.Get("token_exp")
	expiresAt, _ := exp.(time.Time)
	return jti, expiresAt
}

// handleCommonError 处理跨模块共享的业务错误，未匹配时返回 false
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrNotApproved):
		response.Forbidden(c, 10006, "账号尚未通过审核")
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权限访问")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 10007, "用户不存在")
	case errors.Is(err, service.ErrCodeSpaceExhausted):
		response.ServiceUnavailable(c, 10008, "邀请码生成失败，请稍后重试")
	default:
		return false
	}
	return true
}

func handleUnknownError(c *gin.Context, err error) {
	if !handleCommonError(c, err) {
		_ = c.Error(err)
		response.InternalError(c)
	}
}
