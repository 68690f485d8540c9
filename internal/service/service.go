package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"watch-reserve/backend/config"
	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/internal/model"
	"watch-reserve/backend/internal/repository"
	"watch-reserve/backend/pkg/alert"
	"watch-reserve/backend/pkg/googleauth"
	"watch-reserve/backend/pkg/invitecode"
	"watch-reserve/backend/pkg/jwt"
)

// ── 通用业务错误 ──

var (
	ErrUserNotFound = errors.New("用户不存在")
	ErrNoPermission = errors.New("无权限执行此操作")
	ErrNotApproved  = errors.New("账号尚未通过审核")
)

// ── 外部依赖接口 ──

// IdentityVerifier 外部登录凭证校验
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*googleauth.Identity, error)
}

// TokenBlacklist Token 黑名单（Redis）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// ImageStore 商品图片存储
type ImageStore interface {
	PresignedURL(ctx context.Context, object string) (string, error)
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth   AuthService
	Invite InviteService
	User   UserService
	Watch  WatchService
	Audit  AuditService
	Report ReportService
	Export ExportService
}

// NewService 创建 Service 聚合
// blacklist / images 可为 nil：Redis 或对象存储未启用时对应功能降级
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cat *catalog.Catalog,
	jwtMgr *jwt.Manager,
	verifier IdentityVerifier,
	blacklist TokenBlacklist,
	images ImageStore,
	reporter alert.Reporter,
	logger *zap.Logger,
) *Service {
	gen := invitecode.NewGenerator()
	audit := NewAuditService(repo, cat, reporter, logger)
	return &Service{
		Auth:   NewAuthService(cfg, repo, jwtMgr, verifier, blacklist, gen, cat, logger),
		Invite: NewInviteService(repo, gen, logger),
		User:   NewUserService(repo, cat, gen, logger),
		Watch:  NewWatchService(repo, cat, images, audit, cfg.Catalog.PageLimit, logger),
		Audit:  audit,
		Report: NewReportService(repo, cat, logger),
		Export: NewExportService(repo, cat, logger),
	}
}

// ── 共享辅助函数 ──

// loadUser 查询用户并将 gorm.ErrRecordNotFound 转为 ErrUserNotFound
func loadUser(ctx context.Context, repo *repository.Repository, logger *zap.Logger, id string) (*model.User, error) {
	user, err := repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

// requireFeature 加载调用者并校验功能权限；未审核账号返回 ErrNotApproved
func requireFeature(ctx context.Context, repo *repository.Repository, logger *zap.Logger, callerID string, f access.Feature) (*model.User, error) {
	caller, err := loadUser(ctx, repo, logger, callerID)
	if err != nil {
		return nil, err
	}
	if caller.Status != access.StatusApproved {
		return nil, ErrNotApproved
	}
	if !access.Allowed(caller.Actor(), f) {
		return nil, ErrNoPermission
	}
	return caller, nil
}

// runInTx 在事务中执行 fn，出错回滚；mock 聚合下 BeginTx 返回 nil，直接执行
func runInTx(ctx context.Context, repo *repository.Repository, logger *zap.Logger, fn func(txRepo *repository.Repository) error) error {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

func toScopeResponse(scope access.Scope) dto.ScopeResponse {
	return dto.ScopeResponse{
		Kind:      scope.Kind.String(),
		ManagerID: scope.ManagerID,
		BucketID:  scope.BucketID(),
	}
}

func toUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:                  u.UserID,
		Email:               u.Email,
		DisplayName:         u.DisplayName,
		Nickname:            model.StringValue(u.Nickname),
		Phone:               u.Phone,
		AvatarURL:           u.AvatarURL,
		Role:                string(u.Role),
		Status:              string(u.Status),
		ManagerID:           model.StringValue(u.ManagerID),
		InviteCodes:         u.Codes(),
		DataSourceManagerID: model.StringValue(u.DataSourceManagerID),
		SignupCompleted:     u.SignedUp(),
		CreatedAt:           u.CreatedAt.Format(time.RFC3339),
	}
}

// overridesOf 作用域状态行转为 型号→状态 映射
func overridesOf(rows []model.WatchStatus) map[string]catalog.Status {
	m := make(map[string]catalog.Status, len(rows))
	for _, r := range rows {
		m[r.ModelNumber] = r.Status
	}
	return m
}

func statusCounts(counts map[catalog.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return out
}
