package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/internal/model"
	"watch-reserve/backend/internal/repository"
	"watch-reserve/backend/pkg/invitecode"
)

// ── 用户模块业务错误 ──

var (
	ErrInvalidRole         = errors.New("无效的角色")
	ErrUserSelfRoleChange  = errors.New("不能修改自己的角色")
	ErrUserNotPending      = errors.New("该用户不是待审核状态")
	ErrUserNotApproved     = errors.New("目标用户未通过审核")
	ErrSignupIncomplete    = errors.New("该用户尚未提交注册资料")
	ErrOutOfScope          = errors.New("目标用户不在你的管理范围内")
	ErrCascadeNeedsConfirm = errors.New("降级将拒绝该用户的全部下属，需确认后执行")
)

// CascadeConfirmError 降级前需确认，携带受影响的下属数量
type CascadeConfirmError struct {
	Affected int64
}

func (e *CascadeConfirmError) Error() string {
	return fmt.Sprintf("%s（受影响下属 %d 人）", ErrCascadeNeedsConfirm.Error(), e.Affected)
}

func (e *CascadeConfirmError) Unwrap() error { return ErrCascadeNeedsConfirm }

// manager 只能在这些角色之间调整下属
var managerAssignableRoles = map[access.Role]bool{
	access.RoleMember:     true,
	access.RoleDealer:     true,
	access.RoleSubManager: true,
}

// UserService 用户管理业务接口
type UserService interface {
	List(ctx context.Context, callerID string, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Approve(ctx context.Context, targetID, callerID string) (*dto.UserResponse, error)
	Reject(ctx context.Context, targetID, callerID string) (*dto.UserResponse, error)
	// PreviewRoleChange 返回变更将影响的下属数量，供前端确认
	PreviewRoleChange(ctx context.Context, targetID, callerID, role string) (*dto.RolePreviewResponse, error)
	// ChangeRole 角色变更及其级联（事务内完成）
	ChangeRole(ctx context.Context, targetID, callerID string, req *dto.ChangeRoleRequest) (*dto.ChangeRoleResponse, error)
}

type userService struct {
	repo    *repository.Repository
	catalog *catalog.Catalog
	minter  *codeMinter
	logger  *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, cat *catalog.Catalog, gen *invitecode.Generator, logger *zap.Logger) UserService {
	return &userService{
		repo:    repo,
		catalog: cat,
		minter:  newCodeMinter(gen, logger),
		logger:  logger,
	}
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, callerID string, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	caller, err := requireFeature(ctx, s.repo, s.logger, callerID, access.ManageUsers)
	if err != nil {
		return nil, 0, err
	}

	filters := &repository.UserListFilters{
		Role:    req.Role,
		Status:  req.Status,
		Keyword: req.Keyword,
	}
	// manager 仅能看到自己名下的用户
	if caller.Role != access.RoleOwner {
		filters.ManagerID = caller.UserID
	}

	users, total, err := s.repo.User.ListWithFilters(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ────────────────────── Approve / Reject ──────────────────────

func (s *userService) Approve(ctx context.Context, targetID, callerID string) (*dto.UserResponse, error) {
	caller, target, err := s.loadManaged(ctx, targetID, callerID)
	if err != nil {
		return nil, err
	}
	if target.Status != access.StatusPending {
		return nil, ErrUserNotPending
	}
	if !target.SignedUp() {
		return nil, ErrSignupIncomplete
	}

	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		target.Status = access.StatusApproved
		target.UpdatedBy = &caller.UserID
		// 通过邀请码注册的 manager 与升级而来的 manager 一样，从全部 "no" 的作用域开始
		if access.IsScopeOwner(target.Role) {
			if err := txRepo.WatchStatus.InitBucket(ctx, target.UserID, s.catalog.ModelNumbers(), caller.UserID); err != nil {
				return err
			}
		}
		if _, err := s.minter.createCodesForUser(ctx, txRepo, target, target.Role, codeScopeFor(target, target.Role)); err != nil {
			return err
		}
		return txRepo.User.Update(ctx, target)
	})
	if err != nil {
		s.logger.Error("审核通过失败", zap.String("id", targetID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户审核通过", zap.String("id", targetID), zap.String("operator", callerID))
	return toUserResponse(target), nil
}

func (s *userService) Reject(ctx context.Context, targetID, callerID string) (*dto.UserResponse, error) {
	caller, target, err := s.loadManaged(ctx, targetID, callerID)
	if err != nil {
		return nil, err
	}
	if target.Status != access.StatusPending {
		return nil, ErrUserNotPending
	}

	target.Status = access.StatusRejected
	target.UpdatedBy = &caller.UserID
	if err := s.repo.User.Update(ctx, target); err != nil {
		s.logger.Error("审核拒绝失败", zap.String("id", targetID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户审核拒绝", zap.String("id", targetID), zap.String("operator", callerID))
	return toUserResponse(target), nil
}

// loadManaged 加载调用者与目标用户，并校验调用者对目标的管理权
func (s *userService) loadManaged(ctx context.Context, targetID, callerID string) (*model.User, *model.User, error) {
	caller, err := requireFeature(ctx, s.repo, s.logger, callerID, access.ManageUsers)
	if err != nil {
		return nil, nil, err
	}
	target, err := loadUser(ctx, s.repo, s.logger, targetID)
	if err != nil {
		return nil, nil, err
	}
	if caller.Role != access.RoleOwner && model.StringValue(target.ManagerID) != caller.UserID {
		return nil, nil, ErrOutOfScope
	}
	return caller, target, nil
}

// ────────────────────── PreviewRoleChange ──────────────────────

func (s *userService) PreviewRoleChange(ctx context.Context, targetID, callerID, role string) (*dto.RolePreviewResponse, error) {
	_, target, newRole, err := s.authorizeRoleChange(ctx, targetID, callerID, role)
	if err != nil {
		return nil, err
	}

	var affected int64
	if isDowngradeOutOfScopeOwner(target.Role, newRole) {
		affected, err = s.repo.User.CountActiveSubordinates(ctx, target.UserID)
		if err != nil {
			s.logger.Error("统计下属失败", zap.String("id", targetID), zap.Error(err))
			return nil, err
		}
	}

	return &dto.RolePreviewResponse{
		UserID:               target.UserID,
		FromRole:             string(target.Role),
		ToRole:               string(newRole),
		AffectedSubordinates: affected,
		RequiresConfirm:      affected > 0,
	}, nil
}

// ────────────────────── ChangeRole ──────────────────────

func (s *userService) ChangeRole(ctx context.Context, targetID, callerID string, req *dto.ChangeRoleRequest) (*dto.ChangeRoleResponse, error) {
	caller, target, newRole, err := s.authorizeRoleChange(ctx, targetID, callerID, req.Role)
	if err != nil {
		return nil, err
	}

	result := &dto.ChangeRoleResponse{}
	if target.Role == newRole {
		result.User = *toUserResponse(target)
		return result, nil
	}

	oldRole := target.Role
	downgrade := isDowngradeOutOfScopeOwner(oldRole, newRole)
	upgrade := !access.IsScopeOwner(oldRole) && access.IsScopeOwner(newRole)

	// 降级且有下属时必须显式确认
	if downgrade {
		affected, err := s.repo.User.CountActiveSubordinates(ctx, target.UserID)
		if err != nil {
			s.logger.Error("统计下属失败", zap.String("id", targetID), zap.Error(err))
			return nil, err
		}
		if affected > 0 && !req.Confirm {
			return nil, &CascadeConfirmError{Affected: affected}
		}
	}

	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		// 1. 停用旧邀请码
		n, err := txRepo.InviteCode.DeactivateByOwner(ctx, target.UserID)
		if err != nil {
			return err
		}
		result.DeactivatedCodes = n

		// 2. 作用域级联
		if downgrade {
			rejected, err := txRepo.User.RejectSubordinates(ctx, target.UserID, caller.UserID)
			if err != nil {
				return err
			}
			result.RejectedSubordinates = rejected
			// 下属发出的邀请码指向同一作用域，一并停用
			n, err := txRepo.InviteCode.DeactivateByManager(ctx, target.UserID)
			if err != nil {
				return err
			}
			result.DeactivatedCodes += n
			if _, err := txRepo.WatchStatus.DeleteBucket(ctx, target.UserID); err != nil {
				return err
			}
			if err := txRepo.User.ClearDataSourceOverrides(ctx, target.UserID); err != nil {
				return err
			}
			result.BucketDeleted = true
		}
		if upgrade {
			if err := txRepo.WatchStatus.InitBucket(ctx, target.UserID, s.catalog.ModelNumbers(), caller.UserID); err != nil {
				return err
			}
			result.BucketInitialized = true
		}

		// 3. 更新角色并按新角色重新发码
		target.Role = newRole
		target.UpdatedBy = &caller.UserID
		if !access.CanAccess(newRole, access.ViewOtherScope) {
			target.DataSourceManagerID = nil
		}
		if _, err := s.minter.createCodesForUser(ctx, txRepo, target, newRole, codeScopeFor(target, newRole)); err != nil {
			return err
		}
		return txRepo.User.Update(ctx, target)
	})
	if err != nil {
		s.logger.Error("角色变更失败",
			zap.String("id", targetID),
			zap.String("from", string(oldRole)),
			zap.String("to", string(newRole)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("角色已变更",
		zap.String("id", targetID),
		zap.String("from", string(oldRole)),
		zap.String("to", string(newRole)),
		zap.Int64("rejected_subordinates", result.RejectedSubordinates),
		zap.String("operator", callerID),
	)
	result.User = *toUserResponse(target)
	return result, nil
}

// authorizeRoleChange owner 可调整除自己外的任何人；
// manager 只能在 member/dealer/sub_manager 之间调整自己的下属
func (s *userService) authorizeRoleChange(ctx context.Context, targetID, callerID, role string) (*model.User, *model.User, access.Role, error) {
	newRole, ok := access.ParseRole(role)
	if !ok {
		return nil, nil, "", ErrInvalidRole
	}
	if targetID == callerID {
		return nil, nil, "", ErrUserSelfRoleChange
	}

	caller, target, err := s.loadManaged(ctx, targetID, callerID)
	if err != nil {
		return nil, nil, "", err
	}
	if caller.Role != access.RoleOwner {
		if !managerAssignableRoles[target.Role] || !managerAssignableRoles[newRole] {
			return nil, nil, "", ErrNoPermission
		}
	}
	if target.Status != access.StatusApproved {
		return nil, nil, "", ErrUserNotApproved
	}
	return caller, target, newRole, nil
}

func isDowngradeOutOfScopeOwner(from, to access.Role) bool {
	return access.IsScopeOwner(from) && !access.IsScopeOwner(to)
}
