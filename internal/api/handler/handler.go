package handler

import (
	"watch-reserve/backend/config"
	"watch-reserve/backend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth   *AuthHandler
	Invite *InviteHandler
	Watch  *WatchHandler
	User   *UserHandler
	Report *ReportHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:   NewAuthHandler(svc.Auth, &cfg.Server),
		Invite: NewInviteHandler(svc.Invite),
		Watch:  NewWatchHandler(svc.Watch, svc.Audit),
		User:   NewUserHandler(svc.User),
		Report: NewReportHandler(svc.Report),
		Export: NewExportHandler(svc.Export),
	}
}
