package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"watch-reserve/backend/internal/service"
	"watch-reserve/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportBuyList 导出当前数据范围的买入清单
// GET /api/v1/export/buy-list
func (h *ExportHandler) ExportBuyList(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportBuyList(c.Request.Context(), callerID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Disposition", contentDisposition(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// contentDisposition 同时给出 ASCII 回退名与 RFC 5987 编码的韩文原名
func contentDisposition(filename string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return -1
		}
		return r
	}, filename)
	if fallback != filename {
		fallback = "buy-list" + fallback
	}
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
		fallback, url.PathEscape(filename))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 16001, "导出文件生成失败")
	default:
		handleUnknownError(c, err)
	}
}
