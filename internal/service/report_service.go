package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/internal/model"
	"watch-reserve/backend/internal/repository"
)

// ReportService 团队报表业务接口
type ReportService interface {
	// Team 当前作用域的成员、状态分布与各成员变更次数
	Team(ctx context.Context, callerID string) (*dto.TeamReportResponse, error)
}

type reportService struct {
	repo    *repository.Repository
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo *repository.Repository, cat *catalog.Catalog, logger *zap.Logger) ReportService {
	return &reportService{repo: repo, catalog: cat, logger: logger}
}

func (s *reportService) Team(ctx context.Context, callerID string) (*dto.TeamReportResponse, error) {
	caller, err := requireFeature(ctx, s.repo, s.logger, callerID, access.TabReports)
	if err != nil {
		return nil, err
	}
	scope := access.ResolveScope(caller.Actor())
	bucketID := scope.BucketID()

	// 1. 状态分布
	rows, err := s.repo.WatchStatus.ListByScope(ctx, bucketID)
	if err != nil {
		s.logger.Error("查询作用域状态失败", zap.String("scope_id", bucketID), zap.Error(err))
		return nil, err
	}
	counts := catalog.CountByStatus(s.catalog.All(), overridesOf(rows))

	// 2. 变更次数
	actorCounts, err := s.repo.WatchStatusLog.CountByActor(ctx, bucketID)
	if err != nil {
		s.logger.Error("统计变更次数失败", zap.String("scope_id", bucketID), zap.Error(err))
		return nil, err
	}
	changes := make(map[string]int64, len(actorCounts))
	var total int64
	for _, ac := range actorCounts {
		changes[ac.ActorID] = ac.Count
		total += ac.Count
	}

	// 3. 成员：作用域所有者 + 其名下用户
	var members []model.User
	if scope.Kind != access.ScopeLegacy {
		owner, err := loadUser(ctx, s.repo, s.logger, scope.ManagerID)
		switch {
		case err == nil:
			members = append(members, *owner)
		case errors.Is(err, ErrUserNotFound):
		default:
			return nil, err
		}

		subs, err := s.repo.User.ListByManager(ctx, scope.ManagerID)
		if err != nil {
			s.logger.Error("查询团队成员失败", zap.String("manager_id", scope.ManagerID), zap.Error(err))
			return nil, err
		}
		members = append(members, subs...)
	}

	result := &dto.TeamReportResponse{
		Scope:        toScopeResponse(scope),
		Members:      make([]dto.TeamMemberResponse, 0, len(members)),
		StatusCounts: statusCounts(counts),
		TotalChanges: total,
	}
	for _, m := range members {
		result.Members = append(result.Members, dto.TeamMemberResponse{
			ID:          m.UserID,
			Name:        m.Name(),
			Email:       m.Email,
			Role:        string(m.Role),
			Status:      string(m.Status),
			ChangeCount: changes[m.UserID],
		})
	}
	return result, nil
}
