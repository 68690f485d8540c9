package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/model"
)

const initBatchSize = 500

// WatchStatusRepository 作用域买入状态数据访问接口
type WatchStatusRepository interface {
	ListByScope(ctx context.Context, scopeID string) ([]model.WatchStatus, error)
	Get(ctx context.Context, scopeID, modelNumber string) (*model.WatchStatus, error)
	// Upsert 写入单个型号状态，后写覆盖先写
	Upsert(ctx context.Context, status *model.WatchStatus) error
	// InitBucket 为作用域补齐所有型号（默认 no），已存在的行保持不变
	InitBucket(ctx context.Context, scopeID string, modelNumbers []string, operatorID string) error
	DeleteBucket(ctx context.Context, scopeID string) (int64, error)
}

type watchStatusRepo struct {
	db *gorm.DB
}

// NewWatchStatusRepo 创建 WatchStatusRepository 实例
func NewWatchStatusRepo(db *gorm.DB) WatchStatusRepository {
	return &watchStatusRepo{db: db}
}

func (r *watchStatusRepo) ListByScope(ctx context.Context, scopeID string) ([]model.WatchStatus, error) {
	var rows []model.WatchStatus
	err := r.db.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Find(&rows).Error
	return rows, err
}

func (r *watchStatusRepo) Get(ctx context.Context, scopeID, modelNumber string) (*model.WatchStatus, error) {
	var row model.WatchStatus
	err := r.db.WithContext(ctx).
		Where("scope_id = ? AND model_number = ?", scopeID, modelNumber).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *watchStatusRepo) Upsert(ctx context.Context, status *model.WatchStatus) error {
	status.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope_id"}, {Name: "model_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at", "updated_by"}),
		}).
		Create(status).Error
}

func (r *watchStatusRepo) InitBucket(ctx context.Context, scopeID string, modelNumbers []string, operatorID string) error {
	if len(modelNumbers) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]model.WatchStatus, 0, len(modelNumbers))
	for _, m := range modelNumbers {
		rows = append(rows, model.WatchStatus{
			ScopeID:     scopeID,
			ModelNumber: m,
			Status:      catalog.StatusNo,
			UpdatedAt:   now,
			UpdatedBy:   model.StringPtr(operatorID),
		})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, initBatchSize).Error
}

func (r *watchStatusRepo) DeleteBucket(ctx context.Context, scopeID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Delete(&model.WatchStatus{})
	return result.RowsAffected, result.Error
}
