package handler

import (
	"github.com/gin-gonic/gin"

	"watch-reserve/backend/internal/service"
	"watch-reserve/backend/pkg/response"
)

// ReportHandler 团队报表 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// Team 团队报表
// GET /api/v1/reports/team
func (h *ReportHandler) Team(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	report, err := h.reportSvc.Team(c.Request.Context(), callerID)
	if err != nil {
		handleUnknownError(c, err)
		return
	}

	response.OK(c, report)
}
