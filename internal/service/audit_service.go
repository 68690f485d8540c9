package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/internal/model"
	"watch-reserve/backend/internal/repository"
	"watch-reserve/backend/pkg/alert"
)

// AuditService 状态变更审计接口
type AuditService interface {
	// RecordChange 追加一条变更日志；失败只记录并上报，不影响已完成的状态写入
	RecordChange(ctx context.Context, scopeID, modelNumber string, previous, next catalog.Status, actor *model.User)
	List(ctx context.Context, callerID string, req *dto.LogListRequest) ([]dto.LogResponse, int64, error)
}

type auditService struct {
	repo     *repository.Repository
	catalog  *catalog.Catalog
	reporter alert.Reporter
	logger   *zap.Logger
}

// NewAuditService 创建 AuditService 实例
func NewAuditService(repo *repository.Repository, cat *catalog.Catalog, reporter alert.Reporter, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, catalog: cat, reporter: reporter, logger: logger}
}

// ────────────────────── RecordChange ──────────────────────

func (s *auditService) RecordChange(ctx context.Context, scopeID, modelNumber string, previous, next catalog.Status, actor *model.User) {
	// 客户端断开不应丢失日志
	ctx = context.WithoutCancel(ctx)

	entry := &model.WatchStatusLog{
		ScopeID:        scopeID,
		ModelNumber:    modelNumber,
		PreviousStatus: previous,
		NewStatus:      next,
		ActorID:        actor.UserID,
		ActorName:      actor.Name(),
		CreatedAt:      time.Now(),
	}
	if err := s.repo.WatchStatusLog.Create(ctx, entry); err != nil {
		s.reporter.Report(err, "记录状态变更日志失败", map[string]string{
			"scope_id":     scopeID,
			"model_number": modelNumber,
			"actor_id":     actor.UserID,
		})
	}
}

// ────────────────────── List ──────────────────────

func (s *auditService) List(ctx context.Context, callerID string, req *dto.LogListRequest) ([]dto.LogResponse, int64, error) {
	caller, err := requireFeature(ctx, s.repo, s.logger, callerID, access.TabHistory)
	if err != nil {
		return nil, 0, err
	}
	scope := access.ResolveScope(caller.Actor())

	filters := &repository.LogListFilters{
		ScopeID: scope.BucketID(),
		Keyword: strings.TrimSpace(req.Keyword),
	}
	if req.Status != "" {
		statuses, err := parseStatuses(req.Status)
		if err != nil {
			return nil, 0, err
		}
		for _, st := range statuses {
			filters.Statuses = append(filters.Statuses, string(st))
		}
	}
	if req.From != "" {
		from, err := time.ParseInLocation("2006-01-02", req.From, time.Local)
		if err != nil {
			return nil, 0, ErrInvalidDateRange
		}
		filters.From = &from
	}
	if req.To != "" {
		to, err := time.ParseInLocation("2006-01-02", req.To, time.Local)
		if err != nil {
			return nil, 0, ErrInvalidDateRange
		}
		end := to.AddDate(0, 0, 1)
		filters.To = &end
	}
	if filters.From != nil && filters.To != nil && !filters.From.Before(*filters.To) {
		return nil, 0, ErrInvalidDateRange
	}

	logs, total, err := s.repo.WatchStatusLog.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询变更日志失败", zap.String("scope_id", filters.ScopeID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.LogResponse, 0, len(logs))
	for _, l := range logs {
		item := dto.LogResponse{
			ID:             l.LogID,
			ModelNumber:    l.ModelNumber,
			PreviousStatus: string(l.PreviousStatus),
			NewStatus:      string(l.NewStatus),
			ActorID:        l.ActorID,
			ActorName:      l.ActorName,
			CreatedAt:      l.CreatedAt.Format(time.RFC3339),
		}
		if w, ok := s.catalog.Get(l.ModelNumber); ok {
			item.Title = w.Title
		}
		result = append(result, item)
	}
	return result, total, nil
}
