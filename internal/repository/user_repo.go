package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/model"
)

// UserListFilters 用户列表筛选条件
type UserListFilters struct {
	ManagerID string // 非空时仅返回该 manager 名下的用户
	Role      string
	Status    string
	Keyword   string // 模糊匹配昵称 / 显示名 / 邮箱
}

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*model.User, error)
	// NicknameTaken 昵称是否已被其他用户占用（忽略大小写）
	NicknameTaken(ctx context.Context, nickname, excludeUserID string) (bool, error)
	Update(ctx context.Context, user *model.User) error
	ListWithFilters(ctx context.Context, filters *UserListFilters, offset, limit int) ([]model.User, int64, error)
	ListByManager(ctx context.Context, managerID string) ([]model.User, error)
	// ListScopeOwners 列出 manager 及以上角色的已审核用户
	ListScopeOwners(ctx context.Context) ([]model.User, error)
	// CountActiveSubordinates 统计 manager 名下未被拒绝的下属数量
	CountActiveSubordinates(ctx context.Context, managerID string) (int64, error)
	// RejectSubordinates 将 manager 名下所有未被拒绝的下属置为 rejected，返回受影响行数
	RejectSubordinates(ctx context.Context, managerID, operatorID string) (int64, error)
	// ClearDataSourceOverrides 清除所有指向该 manager 的数据源覆盖
	ClearDataSourceOverrides(ctx context.Context, managerID string) error
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByGoogleSub(ctx context.Context, sub string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("google_sub = ?", sub).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) NicknameTaken(ctx context.Context, nickname, excludeUserID string) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.User{}).
		Where("LOWER(nickname) = LOWER(?)", nickname)
	if excludeUserID != "" {
		db = db.Where("user_id <> ?", excludeUserID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepo) ListWithFilters(ctx context.Context, filters *UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := r.db.WithContext(ctx).Model(&model.User{})
	if filters != nil {
		if filters.ManagerID != "" {
			db = db.Where("manager_id = ?", filters.ManagerID)
		}
		if filters.Role != "" {
			db = db.Where("role = ?", filters.Role)
		}
		if filters.Status != "" {
			db = db.Where("status = ?", filters.Status)
		}
		if filters.Keyword != "" {
			kw := containsPattern(filters.Keyword)
			db = db.Where("nickname ILIKE ? OR display_name ILIKE ? OR email ILIKE ?", kw, kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepo) ListByManager(ctx context.Context, managerID string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("manager_id = ?", managerID).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListScopeOwners(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role IN ? AND status = ?",
			[]access.Role{access.RoleManager, access.RoleOwner}, access.StatusApproved).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) CountActiveSubordinates(ctx context.Context, managerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("manager_id = ? AND status <> ?", managerID, access.StatusRejected).
		Count(&count).Error
	return count, err
}

func (r *userRepo) RejectSubordinates(ctx context.Context, managerID, operatorID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("manager_id = ? AND status <> ?", managerID, access.StatusRejected).
		Updates(map[string]interface{}{
			"status":     access.StatusRejected,
			"updated_at": time.Now(),
			"updated_by": operatorID,
		})
	return result.RowsAffected, result.Error
}

func (r *userRepo) ClearDataSourceOverrides(ctx context.Context, managerID string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("data_source_manager_id = ?", managerID).
		Update("data_source_manager_id", nil).Error
}
