package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"watch-reserve/backend/internal/model"
)

// LogListFilters 状态变更日志筛选条件
type LogListFilters struct {
	ScopeID  string
	Statuses []string // 匹配 new_status
	From     *time.Time
	To       *time.Time
	Keyword  string // 模糊匹配型号 / 操作人
}

// ActorChangeCount 操作人变更次数统计
type ActorChangeCount struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	Count     int64  `json:"count"`
}

// WatchStatusLogRepository 状态变更日志数据访问接口（只增不改）
type WatchStatusLogRepository interface {
	Create(ctx context.Context, log *model.WatchStatusLog) error
	List(ctx context.Context, filters *LogListFilters, offset, limit int) ([]model.WatchStatusLog, int64, error)
	CountByActor(ctx context.Context, scopeID string) ([]ActorChangeCount, error)
}

type watchStatusLogRepo struct {
	db *gorm.DB
}

// NewWatchStatusLogRepo 创建 WatchStatusLogRepository 实例
func NewWatchStatusLogRepo(db *gorm.DB) WatchStatusLogRepository {
	return &watchStatusLogRepo{db: db}
}

func (r *watchStatusLogRepo) Create(ctx context.Context, log *model.WatchStatusLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *watchStatusLogRepo) List(ctx context.Context, filters *LogListFilters, offset, limit int) ([]model.WatchStatusLog, int64, error) {
	var logs []model.WatchStatusLog
	var total int64

	db := r.db.WithContext(ctx).Model(&model.WatchStatusLog{}).
		Where("scope_id = ?", filters.ScopeID)
	if len(filters.Statuses) > 0 {
		db = db.Where("new_status IN ?", filters.Statuses)
	}
	if filters.From != nil {
		db = db.Where("created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		db = db.Where("created_at < ?", *filters.To)
	}
	if filters.Keyword != "" {
		kw := containsPattern(filters.Keyword)
		db = db.Where("model_number ILIKE ? OR actor_name ILIKE ?", kw, kw)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, total, err
}

func (r *watchStatusLogRepo) CountByActor(ctx context.Context, scopeID string) ([]ActorChangeCount, error) {
	var rows []ActorChangeCount
	err := r.db.WithContext(ctx).Model(&model.WatchStatusLog{}).
		Select("actor_id, MAX(actor_name) AS actor_name, COUNT(*) AS count").
		Where("scope_id = ?", scopeID).
		Group("actor_id").
		Order("count DESC").
		Scan(&rows).Error
	return rows, err
}
