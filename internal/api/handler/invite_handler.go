package handler

import (
	"github.com/gin-gonic/gin"

	"watch-reserve/backend/internal/service"
	"watch-reserve/backend/pkg/response"
)

// InviteHandler 邀请码 HTTP 处理器
type InviteHandler struct {
	inviteSvc service.InviteService
}

// NewInviteHandler 创建 InviteHandler
func NewInviteHandler(inviteSvc service.InviteService) *InviteHandler {
	return &InviteHandler{inviteSvc: inviteSvc}
}

// ValidateInvite 验证邀请码（注册页实时校验，无需登录）
// GET /api/v1/auth/invite/:code
func (h *InviteHandler) ValidateInvite(c *gin.Context) {
	result, err := h.inviteSvc.Check(c.Request.Context(), c.Param("code"))
	if err != nil {
		handleUnknownError(c, err)
		return
	}
	response.OK(c, result)
}

// ListMine 当前用户持有的有效邀请码
// GET /api/v1/invite-codes/me
func (h *InviteHandler) ListMine(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	codes, err := h.inviteSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		handleUnknownError(c, err)
		return
	}
	response.OK(c, gin.H{"list": codes})
}
