package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"watch-reserve/backend/config"
	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/internal/model"
	"watch-reserve/backend/internal/repository"
	"watch-reserve/backend/pkg/invitecode"
	"watch-reserve/backend/pkg/jwt"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidIDToken      = errors.New("Google 登录凭证无效")
	ErrInvalidRefreshToken = errors.New("Refresh Token 无效或已过期")
	ErrAlreadySignedUp     = errors.New("已完成注册，无需重复提交")
	ErrNicknameTaken       = errors.New("昵称已被使用")
	ErrNicknameRequired    = errors.New("昵称不能为空")
)

// AuthService 认证业务接口
type AuthService interface {
	// GoogleLogin 校验 Google ID Token，首次登录时创建空资料账号
	GoogleLogin(ctx context.Context, req *dto.GoogleLoginRequest) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 将 access token 的 jti 加入黑名单
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	// Signup 使用邀请码提交注册资料，之后等待审核。
	// 角色在此时才确定，因此重新签发携带新角色的 Token
	Signup(ctx context.Context, userID string, req *dto.SignupRequest) (*dto.TokenResponse, error)
	// GetMe 读取数据库中的最新角色，不依赖 Token 内的角色
	GetMe(ctx context.Context, userID string) (*dto.MeResponse, error)
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	verifier  IdentityVerifier
	blacklist TokenBlacklist
	minter    *codeMinter
	catalog   *catalog.Catalog
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	verifier IdentityVerifier,
	blacklist TokenBlacklist,
	gen *invitecode.Generator,
	cat *catalog.Catalog,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		verifier:  verifier,
		blacklist: blacklist,
		minter:    newCodeMinter(gen, logger),
		catalog:   cat,
		logger:    logger,
	}
}

// ────────────────────── GoogleLogin ──────────────────────

func (s *authService) GoogleLogin(ctx context.Context, req *dto.GoogleLoginRequest) (*dto.TokenResponse, error) {
	// 1. 校验 ID Token
	identity, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		s.logger.Warn("Google ID Token 校验失败", zap.Error(err))
		return nil, ErrInvalidIDToken
	}

	// 2. 查询或创建用户
	user, err := s.repo.User.GetByGoogleSub(ctx, identity.Subject)
	switch {
	case err == nil:
		if s.syncProfile(user, identity.Email, identity.Name, identity.AvatarURL) {
			if err := s.repo.User.Update(ctx, user); err != nil {
				s.logger.Error("更新用户资料失败", zap.String("id", user.UserID), zap.Error(err))
				return nil, err
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.createUser(ctx, identity.Subject, identity.Email, identity.Name, identity.AvatarURL)
		if err != nil {
			return nil, err
		}
	default:
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 3. 生成 Token 对
	return s.issueTokens(user, req.RememberMe)
}

// createUser 首次登录建档；白名单邮箱直接成为已审核的 owner
func (s *authService) createUser(ctx context.Context, sub, email, name, avatar string) (*model.User, error) {
	user := &model.User{
		GoogleSub:   sub,
		Email:       email,
		DisplayName: name,
		AvatarURL:   avatar,
		Status:      access.StatusPending,
	}
	user.SetCodes(map[string]string{})

	bootstrapOwner := s.cfg.Bootstrap.IsOwnerEmail(email)
	err := runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.User.Create(ctx, user); err != nil {
			s.logger.Error("创建用户失败", zap.String("email", email), zap.Error(err))
			return err
		}
		if !bootstrapOwner {
			return nil
		}

		now := time.Now()
		user.Role = access.RoleOwner
		user.Status = access.StatusApproved
		user.SignupCompletedAt = &now
		if err := txRepo.WatchStatus.InitBucket(ctx, user.UserID, s.catalog.ModelNumbers(), user.UserID); err != nil {
			return err
		}
		if _, err := s.minter.createCodesForUser(ctx, txRepo, user, access.RoleOwner, codeScopeFor(user, access.RoleOwner)); err != nil {
			return err
		}
		return txRepo.User.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	if bootstrapOwner {
		s.logger.Info("初始 owner 账号已创建", zap.String("id", user.UserID), zap.String("email", email))
	}
	return user, nil
}

// syncProfile 同步外部身份中的邮箱 / 显示名 / 头像，返回是否有变化
func (s *authService) syncProfile(user *model.User, email, name, avatar string) bool {
	changed := false
	if email != "" && user.Email != email {
		user.Email = email
		changed = true
	}
	if name != "" && user.DisplayName != name {
		user.DisplayName = name
		changed = true
	}
	if avatar != "" && user.AvatarURL != avatar {
		user.AvatarURL = avatar
		changed = true
	}
	return changed
}

func (s *authService) issueTokens(user *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, string(user.Role))
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, string(user.Role), rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         *toUserResponse(user),
	}, nil
}

// ────────────────────── RefreshToken ──────────────────────

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != "refresh" {
		return nil, ErrInvalidRefreshToken
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("检查 Token 黑名单失败", zap.Error(err))
		} else if revoked {
			return nil, ErrInvalidRefreshToken
		}
	}

	// 角色可能已变更，以数据库为准
	user, err := loadUser(ctx, s.repo, s.logger, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	result, err := s.issueTokens(user, claims.RememberMe)
	if err != nil {
		return nil, err
	}

	// 旧 Refresh Token 轮换后作废
	if s.blacklist != nil && claims.ExpiresAt != nil {
		if err := s.blacklist.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			s.logger.Warn("作废旧 RefreshToken 失败", zap.Error(err))
		}
	}
	return result, nil
}

// ────────────────────── Logout ──────────────────────

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.blacklist == nil || jti == "" {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Signup ──────────────────────

func (s *authService) Signup(ctx context.Context, userID string, req *dto.SignupRequest) (*dto.TokenResponse, error) {
	user, err := loadUser(ctx, s.repo, s.logger, userID)
	if err != nil {
		return nil, err
	}
	if user.SignedUp() {
		return nil, ErrAlreadySignedUp
	}

	// 1. 校验邀请码
	invite, err := s.minter.validate(ctx, s.repo.InviteCode, req.InviteCode)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return nil, ErrInvalidInviteCode
	}

	// 2. 昵称唯一性
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		return nil, ErrNicknameRequired
	}
	taken, err := s.repo.User.NicknameTaken(ctx, nickname, user.UserID)
	if err != nil {
		s.logger.Error("检查昵称失败", zap.Error(err))
		return nil, err
	}
	if taken {
		return nil, ErrNicknameTaken
	}

	// 3. 写入资料，等待审核
	now := time.Now()
	user.Nickname = &nickname
	user.Phone = strings.TrimSpace(req.Phone)
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		user.DisplayName = name
	}
	user.Role = invite.Role
	user.ManagerID = invite.ManagerID
	user.Status = access.StatusPending
	user.SignupCompletedAt = &now
	user.UpdatedBy = &user.UserID

	if err := s.repo.User.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNicknameTaken
		}
		s.logger.Error("保存注册资料失败", zap.String("id", user.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户提交注册",
		zap.String("id", user.UserID),
		zap.String("role", string(user.Role)),
		zap.String("invite_code", invite.Code),
	)
	return s.issueTokens(user, false)
}

// ────────────────────── GetMe ──────────────────────

func (s *authService) GetMe(ctx context.Context, userID string) (*dto.MeResponse, error) {
	user, err := loadUser(ctx, s.repo, s.logger, userID)
	if err != nil {
		return nil, err
	}
	actor := user.Actor()
	return &dto.MeResponse{
		User:     *toUserResponse(user),
		Scope:    toScopeResponse(access.ResolveScope(actor)),
		Features: access.Flags(actor),
	}, nil
}
