package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"watch-reserve/backend/internal/model"
)

// InviteCodeRepository 邀请码数据访问接口
type InviteCodeRepository interface {
	Create(ctx context.Context, code *model.InviteCode) error
	// Exists 邀请码是否已存在（含已停用的码）
	Exists(ctx context.Context, code string) (bool, error)
	GetByCode(ctx context.Context, code string) (*model.InviteCode, error)
	ListActiveByOwner(ctx context.Context, ownerID string) ([]model.InviteCode, error)
	// DeactivateByOwner 停用该用户全部有效邀请码，返回受影响行数
	DeactivateByOwner(ctx context.Context, ownerID string) (int64, error)
	// DeactivateByManager 停用归属该 manager 作用域的全部有效邀请码（含下属发出的码）
	DeactivateByManager(ctx context.Context, managerID string) (int64, error)
}

type inviteCodeRepo struct {
	db *gorm.DB
}

// NewInviteCodeRepo 创建 InviteCodeRepository 实例
func NewInviteCodeRepo(db *gorm.DB) InviteCodeRepository {
	return &inviteCodeRepo{db: db}
}

func (r *inviteCodeRepo) Create(ctx context.Context, code *model.InviteCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *inviteCodeRepo) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.InviteCode{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

func (r *inviteCodeRepo) GetByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	var invite model.InviteCode
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *inviteCodeRepo) ListActiveByOwner(ctx context.Context, ownerID string) ([]model.InviteCode, error) {
	var codes []model.InviteCode
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND active", ownerID).
		Order("created_at ASC").
		Find(&codes).Error
	return codes, err
}

func (r *inviteCodeRepo) DeactivateByOwner(ctx context.Context, ownerID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.InviteCode{}).
		Where("owner_id = ? AND active", ownerID).
		Updates(map[string]interface{}{
			"active":         false,
			"deactivated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *inviteCodeRepo) DeactivateByManager(ctx context.Context, managerID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.InviteCode{}).
		Where("manager_id = ? AND active", managerID).
		Updates(map[string]interface{}{
			"active":         false,
			"deactivated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}
