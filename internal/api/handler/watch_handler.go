package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/internal/service"
	"watch-reserve/backend/pkg/response"
)

// WatchHandler 商品与买入状态 HTTP 处理器
type WatchHandler struct {
	watchSvc service.WatchService
	auditSvc service.AuditService
}

// NewWatchHandler 创建 WatchHandler
func NewWatchHandler(watchSvc service.WatchService, auditSvc service.AuditService) *WatchHandler {
	return &WatchHandler{watchSvc: watchSvc, auditSvc: auditSvc}
}

// ListWatches 商品列表（按调用者数据范围合并状态）
// GET /api/v1/watches
func (h *WatchHandler) ListWatches(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.WatchListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.watchSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleWatchError(c, err)
		return
	}

	response.OK(c, result)
}

// GetFilterOptions 筛选项（类别、系列、材质、状态、可切换的数据源）
// GET /api/v1/watches/filters
func (h *WatchHandler) GetFilterOptions(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.watchSvc.FilterOptions(c.Request.Context(), userID)
	if err != nil {
		h.handleWatchError(c, err)
		return
	}

	response.OK(c, result)
}

// GetImage 商品图片地址
// GET /api/v1/watches/:model/image
func (h *WatchHandler) GetImage(c *gin.Context) {
	result, err := h.watchSvc.ImageURL(c.Request.Context(), c.Param("model"))
	if err != nil {
		h.handleWatchError(c, err)
		return
	}

	response.OK(c, result)
}

// UpdateStatus 修改买入状态
// PUT /api/v1/watches/:model/status
func (h *WatchHandler) UpdateStatus(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.watchSvc.UpdateStatus(c.Request.Context(), userID, c.Param("model"), &req)
	if err != nil {
		// 写入失败时附带结果，客户端据此回滚到 effective 状态
		if errors.Is(err, service.ErrStatusWriteFailed) && result != nil {
			response.ErrorWithData(c, http.StatusInternalServerError, 13006, "状态保存失败，已恢复为原状态", result)
			return
		}
		h.handleWatchError(c, err)
		return
	}

	response.OK(c, result)
}

// ListLogs 状态变更历史
// GET /api/v1/watch-status-logs
func (h *WatchHandler) ListLogs(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.LogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	logs, total, err := h.auditSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleWatchError(c, err)
		return
	}

	response.OKPage(c, logs, total, req.GetPage(), req.GetPageSize())
}

// SetDataSource owner 切换查看的 manager 数据
// PUT /api/v1/users/me/data-source
func (h *WatchHandler) SetDataSource(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SetDataSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	scope, err := h.watchSvc.SetDataSource(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleWatchError(c, err)
		return
	}

	response.OK(c, scope)
}

func (h *WatchHandler) handleWatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWatchNotFound):
		response.NotFound(c, 13001, "商品不存在")
	case errors.Is(err, service.ErrImageNotFound):
		response.NotFound(c, 13002, "商品图片不存在")
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 13003, "无效的买入状态")
	case errors.Is(err, service.ErrInvalidDateRange):
		response.BadRequest(c, 13004, "日期范围无效")
	case errors.Is(err, service.ErrInvalidDataSource):
		response.BadRequest(c, 13005, "数据源必须是已审核的 manager")
	case errors.Is(err, service.ErrStatusWriteFailed):
		response.Error(c, http.StatusInternalServerError, 13006, "状态保存失败，已恢复为原状态")
	default:
		handleUnknownError(c, err)
	}
}
