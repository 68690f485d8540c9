package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/internal/service"
	"watch-reserve/backend/pkg/response"
)

// UserHandler 用户管理 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// ListUsers 用户列表（manager 仅可见自己名下）
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), callerID, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// Approve 审核通过
// PUT /api/v1/users/:id/approve
func (h *UserHandler) Approve(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.Approve(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// Reject 审核拒绝
// PUT /api/v1/users/:id/reject
func (h *UserHandler) Reject(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.Reject(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// PreviewRoleChange 角色变更影响预览
// GET /api/v1/users/:id/role-preview?role=xxx
func (h *UserHandler) PreviewRoleChange(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.RolePreviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	preview, err := h.userSvc.PreviewRoleChange(c.Request.Context(), c.Param("id"), callerID, req.Role)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, preview)
}

// ChangeRole 变更角色（含级联）
// PUT /api/v1/users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.userSvc.ChangeRole(c.Request.Context(), c.Param("id"), callerID, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	var confirmErr *service.CascadeConfirmError
	switch {
	case errors.As(err, &confirmErr):
		response.ErrorWithData(c, http.StatusConflict, 14001, "降级将拒绝该用户的全部下属，需确认后执行",
			gin.H{"affected_subordinates": confirmErr.Affected})
	case errors.Is(err, service.ErrInvalidRole):
		response.BadRequest(c, 14002, "无效的角色")
	case errors.Is(err, service.ErrUserSelfRoleChange):
		response.BadRequest(c, 14003, "不能修改自己的角色")
	case errors.Is(err, service.ErrUserNotPending):
		response.Conflict(c, 14004, "该用户不是待审核状态")
	case errors.Is(err, service.ErrUserNotApproved):
		response.Conflict(c, 14005, "目标用户未通过审核")
	case errors.Is(err, service.ErrSignupIncomplete):
		response.Conflict(c, 14006, "该用户尚未提交注册资料")
	case errors.Is(err, service.ErrOutOfScope):
		response.Forbidden(c, 14007, "目标用户不在你的管理范围内")
	default:
		handleUnknownError(c, err)
	}
}
