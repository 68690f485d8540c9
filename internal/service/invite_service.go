package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/internal/model"
	"watch-reserve/backend/internal/repository"
	"watch-reserve/backend/pkg/invitecode"
)

// ── 邀请码模块业务错误 ──

var (
	// ErrCodeSpaceExhausted 连续碰撞超过重试上限，需要人工介入
	ErrCodeSpaceExhausted = errors.New("邀请码生成失败：重试次数已用尽")
	ErrInvalidInviteCode  = errors.New("邀请码无效或已停用")
)

const maxCodeAttempts = 10

// InviteService 邀请码业务接口
type InviteService interface {
	// CreateUnique 生成一个当前库中不存在的邀请码（不落库）
	CreateUnique(ctx context.Context) (string, error)
	// CreateCodesForUser 按角色可发放的码类型为用户各生成一个码，落库并写回 users.invite_codes
	CreateCodesForUser(ctx context.Context, userID string, role access.Role, managerID *string) (map[string]string, error)
	// Validate 规范化后查询；不存在或已停用返回 nil, nil
	Validate(ctx context.Context, code string) (*model.InviteCode, error)
	// Check 公开校验接口使用
	Check(ctx context.Context, code string) (*dto.InviteValidateResponse, error)
	DeactivateAll(ctx context.Context, ownerID string) (int64, error)
	ListMine(ctx context.Context, callerID string) ([]dto.InviteCodeResponse, error)
}

type inviteService struct {
	repo   *repository.Repository
	minter *codeMinter
	logger *zap.Logger
}

// NewInviteService 创建 InviteService 实例
func NewInviteService(repo *repository.Repository, gen *invitecode.Generator, logger *zap.Logger) InviteService {
	return &inviteService{repo: repo, minter: newCodeMinter(gen, logger), logger: logger}
}

// ────────────────────── CreateUnique ──────────────────────

func (s *inviteService) CreateUnique(ctx context.Context) (string, error) {
	return s.minter.createUnique(ctx, s.repo.InviteCode)
}

// ────────────────────── CreateCodesForUser ──────────────────────

func (s *inviteService) CreateCodesForUser(ctx context.Context, userID string, role access.Role, managerID *string) (map[string]string, error) {
	user, err := loadUser(ctx, s.repo, s.logger, userID)
	if err != nil {
		return nil, err
	}

	var codes map[string]string
	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		var err error
		codes, err = s.minter.createCodesForUser(ctx, txRepo, user, role, managerID)
		if err != nil {
			return err
		}
		return txRepo.User.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// ────────────────────── Validate ──────────────────────

func (s *inviteService) Validate(ctx context.Context, code string) (*model.InviteCode, error) {
	return s.minter.validate(ctx, s.repo.InviteCode, code)
}

func (s *inviteService) Check(ctx context.Context, code string) (*dto.InviteValidateResponse, error) {
	invite, err := s.Validate(ctx, code)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return &dto.InviteValidateResponse{Valid: false}, nil
	}
	return &dto.InviteValidateResponse{
		Valid:      true,
		Role:       string(invite.Role),
		IssuerName: invite.IssuerName,
	}, nil
}

// ────────────────────── DeactivateAll ──────────────────────

func (s *inviteService) DeactivateAll(ctx context.Context, ownerID string) (int64, error) {
	n, err := s.repo.InviteCode.DeactivateByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("停用邀请码失败", zap.String("owner_id", ownerID), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// ────────────────────── ListMine ──────────────────────

func (s *inviteService) ListMine(ctx context.Context, callerID string) ([]dto.InviteCodeResponse, error) {
	codes, err := s.repo.InviteCode.ListActiveByOwner(ctx, callerID)
	if err != nil {
		s.logger.Error("查询邀请码失败", zap.String("owner_id", callerID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.InviteCodeResponse, 0, len(codes))
	for _, c := range codes {
		result = append(result, dto.InviteCodeResponse{
			Code:      c.Code,
			Role:      string(c.Role),
			Active:    c.Active,
			CreatedAt: c.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, nil
}

// ═══════════════════════════════════════════════════════════
// codeMinter 邀请码生成与发放，可绑定事务内的 Repository
// ═══════════════════════════════════════════════════════════

type codeMinter struct {
	gen    *invitecode.Generator
	logger *zap.Logger
}

func newCodeMinter(gen *invitecode.Generator, logger *zap.Logger) *codeMinter {
	return &codeMinter{gen: gen, logger: logger}
}

func (m *codeMinter) createUnique(ctx context.Context, codes repository.InviteCodeRepository) (string, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := m.gen.Generate()
		if err != nil {
			return "", fmt.Errorf("生成邀请码失败: %w", err)
		}
		exists, err := codes.Exists(ctx, code)
		if err != nil {
			m.logger.Error("查询邀请码失败", zap.Error(err))
			return "", err
		}
		if !exists {
			return code, nil
		}
		m.logger.Warn("邀请码冲突，重新生成", zap.Int("attempt", attempt))
	}
	m.logger.Error("邀请码重试次数已用尽", zap.Int("attempts", maxCodeAttempts))
	return "", ErrCodeSpaceExhausted
}

// createCodesForUser 为 issuer 生成 role 可发放的全部码类型，结果写入 issuer.InviteCodes（调用方负责保存用户）
func (m *codeMinter) createCodesForUser(ctx context.Context, repo *repository.Repository, issuer *model.User, role access.Role, managerID *string) (map[string]string, error) {
	types := access.IssuableCodeTypes(role)
	codes := make(map[string]string, len(types))
	for _, t := range types {
		code, err := m.createUnique(ctx, repo.InviteCode)
		if err != nil {
			return nil, err
		}
		invite := &model.InviteCode{
			Code:        code,
			OwnerID:     issuer.UserID,
			Role:        t,
			ManagerID:   managerID,
			Active:      true,
			IssuerName:  issuer.Name(),
			IssuerEmail: issuer.Email,
		}
		if err := repo.InviteCode.Create(ctx, invite); err != nil {
			m.logger.Error("保存邀请码失败", zap.String("owner_id", issuer.UserID), zap.Error(err))
			return nil, err
		}
		codes[string(t)] = code
	}
	issuer.SetCodes(codes)
	return codes, nil
}

func (m *codeMinter) validate(ctx context.Context, codes repository.InviteCodeRepository, code string) (*model.InviteCode, error) {
	code = invitecode.Normalize(code)
	if !invitecode.WellFormed(code) {
		return nil, nil
	}
	invite, err := codes.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		m.logger.Error("查询邀请码失败", zap.Error(err))
		return nil, err
	}
	if !invite.Active {
		return nil, nil
	}
	return invite, nil
}

// codeScopeFor 用户以 role 发放的码所归属的作用域：
// manager 及以上归属自己，其他角色归属其上级
func codeScopeFor(user *model.User, role access.Role) *string {
	if access.IsScopeOwner(role) {
		id := user.UserID
		return &id
	}
	return user.ManagerID
}
