package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"watch-reserve/backend/config"
	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/internal/service"
	"watch-reserve/backend/pkg/response"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc      service.AuthService
	secureCookie bool
}

// NewAuthHandler 创建 AuthHandler；server 为 nil 时 Cookie 不带 Secure 标记
func NewAuthHandler(authSvc service.AuthService, server *config.ServerConfig) *AuthHandler {
	secure := server != nil && strings.HasPrefix(server.BaseURL, "https://")
	return &AuthHandler{authSvc: authSvc, secureCookie: secure}
}

// GoogleLogin Google 账号登录（首次登录自动建档）
// POST /api/v1/auth/google
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req dto.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.GoogleLogin(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// RefreshToken 刷新 Token，优先读取请求体，其次读取 Cookie
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		token, _ = c.Cookie(refreshCookieName)
	}
	if token == "" {
		response.BadRequest(c, 10001, "缺少 refresh_token")
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), token)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// Logout 登出，当前 Access Token 加入黑名单
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, expiresAt := tokenMeta(c)
	if err := h.authSvc.Logout(c.Request.Context(), jti, expiresAt); err != nil {
		response.InternalError(c)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", h.secureCookie, true)
	response.OK(c, nil)
}

// Signup 提交注册资料（邀请码 + 昵称 + 电话）
// POST /api/v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.authSvc.Signup(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// GetMe 当前用户信息、数据范围与功能开关
// GET /api/v1/auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	me, err := h.authSvc.GetMe(c.Request.Context(), userID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, me)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, token, 0, refreshCookiePath, "", h.secureCookie, true)
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidIDToken):
		response.Unauthorized(c, 11001, "Google 登录凭证无效")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Unauthorized(c, 11002, "RefreshToken 无效或已过期")
	case errors.Is(err, service.ErrAlreadySignedUp):
		response.Conflict(c, 11003, "已提交过注册资料")
	case errors.Is(err, service.ErrInvalidInviteCode):
		response.BadRequest(c, 11004, "邀请码无效或已停用")
	case errors.Is(err, service.ErrNicknameTaken):
		response.Conflict(c, 11005, "昵称已被使用")
	case errors.Is(err, service.ErrNicknameRequired):
		response.BadRequest(c, 11006, "昵称不能为空")
	default:
		handleUnknownError(c, err)
	}
}
