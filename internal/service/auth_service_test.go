package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/pkg/googleauth"
)

// ── 测试辅助 ──

func setupTestAuthService(env *testEnv, identity *googleauth.Identity) (AuthService, *fakeBlacklist) {
	bl := newFakeBlacklist()
	verifier := &fakeVerifier{identity: identity}
	if identity == nil {
		verifier.err = googleauth.ErrInvalidToken
	}
	return NewAuthService(env.cfg, env.repo, env.jwtMgr, verifier, bl, env.gen, env.catalog, env.logger), bl
}

func googleIdentity(sub, email string) *googleauth.Identity {
	return &googleauth.Identity{Subject: sub, Email: email, Name: "홍길동", AvatarURL: "https://lh3.example.com/a.png"}
}

// ── GoogleLogin 测试 ──

func TestGoogleLogin_NewUserIsPending(t *testing.T) {
	env := newTestEnv()
	svc, _ := setupTestAuthService(env, googleIdentity("g-1", "new@example.com"))

	result, err := svc.GoogleLogin(context.Background(), &dto.GoogleLoginRequest{IDToken: "tok"})
	if err != nil {
		t.Fatalf("GoogleLogin 应成功: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("Token 不应为空")
	}
	if result.User.Status != string(access.StatusPending) || result.User.Role != "" {
		t.Errorf("新用户应为 pending 且无角色, got %s/%s", result.User.Status, result.User.Role)
	}
	if result.User.SignupCompleted {
		t.Error("新用户尚未提交注册资料")
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
}

func TestGoogleLogin_BootstrapOwner(t *testing.T) {
	env := newTestEnv()
	svc, _ := setupTestAuthService(env, googleIdentity("g-boss", "Boss@Example.com"))

	result, err := svc.GoogleLogin(context.Background(), &dto.GoogleLoginRequest{IDToken: "tok"})
	if err != nil {
		t.Fatalf("GoogleLogin 应成功: %v", err)
	}
	if result.User.Role != string(access.RoleOwner) || result.User.Status != string(access.StatusApproved) {
		t.Errorf("白名单邮箱应成为已审核 owner, got %s/%s", result.User.Role, result.User.Status)
	}
	if len(result.User.InviteCodes) != 4 {
		t.Errorf("owner 应获得 4 个邀请码, got %v", result.User.InviteCodes)
	}
	bucket := env.statuses.buckets[result.User.ID]
	if len(bucket) != env.catalog.Len() {
		t.Fatalf("初始 owner 应初始化作用域, got %d 行", len(bucket))
	}
	for mn, row := range bucket {
		if row.Status != catalog.StatusNo {
			t.Errorf("%s 初始状态应为 no, got %s", mn, row.Status)
		}
	}
}

func TestGoogleLogin_ExistingUserSyncsProfile(t *testing.T) {
	env := newTestEnv()
	u := env.addUser("u-1", access.RoleMember, access.StatusApproved, "mgr-1")
	svc, _ := setupTestAuthService(env, &googleauth.Identity{Subject: u.GoogleSub, Email: u.Email, Name: "새이름"})

	result, err := svc.GoogleLogin(context.Background(), &dto.GoogleLoginRequest{IDToken: "tok"})
	if err != nil {
		t.Fatalf("GoogleLogin 应成功: %v", err)
	}
	if result.User.ID != "u-1" || result.User.DisplayName != "새이름" {
		t.Errorf("应返回已有用户并同步显示名, got %+v", result.User)
	}
	if len(env.users.users) != 1 {
		t.Error("不应创建新用户")
	}
}

func TestGoogleLogin_InvalidToken(t *testing.T) {
	env := newTestEnv()
	svc, _ := setupTestAuthService(env, nil)

	_, err := svc.GoogleLogin(context.Background(), &dto.GoogleLoginRequest{IDToken: "bad"})
	if !errors.Is(err, ErrInvalidIDToken) {
		t.Errorf("期望 ErrInvalidIDToken，实际: %v", err)
	}
}

// ── Signup 测试 ──

func newSignupUser(env *testEnv) string {
	u := env.addUser("new-1", "", access.StatusPending, "")
	u.Nickname = nil
	u.SignupCompletedAt = nil
	return u.UserID
}

func TestSignup_Success(t *testing.T) {
	env := newTestEnv()
	env.addUser("mgr-1", access.RoleManager, access.StatusApproved, "owner-1")
	env.addCode("DLR234", "mgr-1", access.RoleDealer, "mgr-1", true)
	id := newSignupUser(env)
	svc, _ := setupTestAuthService(env, nil)

	result, err := svc.Signup(context.Background(), id, &dto.SignupRequest{
		InviteCode: "dlr234",
		Nickname:   " 딜러킴 ",
		Phone:      "010-1234-5678",
	})
	if err != nil {
		t.Fatalf("Signup 应成功: %v", err)
	}
	user := result.User
	if user.Role != string(access.RoleDealer) || user.ManagerID != "mgr-1" {
		t.Errorf("角色与上级应取自邀请码, got %s/%s", user.Role, user.ManagerID)
	}
	if user.Status != string(access.StatusPending) || !user.SignupCompleted {
		t.Errorf("注册后应等待审核, got %+v", user)
	}
	if user.Nickname != "딜러킴" {
		t.Errorf("昵称应去除首尾空白, got %q", user.Nickname)
	}

	// 首次登录签发的 Token 角色为空，注册后重新签发
	claims, err := env.jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.Role != string(access.RoleDealer) {
		t.Errorf("新 Token 应携带邀请码角色, got %q", claims.Role)
	}
	if result.RefreshToken == "" {
		t.Error("应同时返回新的 RefreshToken")
	}
}

func TestSignup_InvalidCode(t *testing.T) {
	env := newTestEnv()
	env.addCode("OLD234", "mgr-1", access.RoleDealer, "mgr-1", false)
	id := newSignupUser(env)
	svc, _ := setupTestAuthService(env, nil)

	for _, code := range []string{"OLD234", "NONE22", "abc"} {
		_, err := svc.Signup(context.Background(), id, &dto.SignupRequest{InviteCode: code, Nickname: "nick", Phone: "010"})
		if !errors.Is(err, ErrInvalidInviteCode) {
			t.Errorf("%s: 期望 ErrInvalidInviteCode，实际: %v", code, err)
		}
	}
}

func TestSignup_DuplicateNickname(t *testing.T) {
	env := newTestEnv()
	env.addUser("other", access.RoleMember, access.StatusApproved, "mgr-1") // 昵称 nick-other
	env.addCode("MEM234", "mgr-1", access.RoleMember, "mgr-1", true)
	id := newSignupUser(env)
	svc, _ := setupTestAuthService(env, nil)

	_, err := svc.Signup(context.Background(), id, &dto.SignupRequest{InviteCode: "MEM234", Nickname: "NICK-OTHER", Phone: "010"})
	if !errors.Is(err, ErrNicknameTaken) {
		t.Errorf("期望 ErrNicknameTaken，实际: %v", err)
	}
}

func TestSignup_AlreadySignedUp(t *testing.T) {
	env := newTestEnv()
	env.addUser("u-1", access.RoleMember, access.StatusApproved, "mgr-1")
	svc, _ := setupTestAuthService(env, nil)

	_, err := svc.Signup(context.Background(), "u-1", &dto.SignupRequest{InviteCode: "MEM234", Nickname: "x", Phone: "010"})
	if !errors.Is(err, ErrAlreadySignedUp) {
		t.Errorf("期望 ErrAlreadySignedUp，实际: %v", err)
	}
}

// ── RefreshToken / Logout 测试 ──

func TestRefreshToken_RotatesAndRevokesOld(t *testing.T) {
	env := newTestEnv()
	env.addUser("u-1", access.RoleDealer, access.StatusApproved, "mgr-1")
	svc, bl := setupTestAuthService(env, nil)

	refresh, _ := env.jwtMgr.GenerateRefreshToken("u-1", "dealer", true)
	result, err := svc.RefreshToken(context.Background(), refresh)
	if err != nil {
		t.Fatalf("RefreshToken 应成功: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == refresh {
		t.Error("应签发新的 Token 对")
	}
	if len(bl.revoked) != 1 {
		t.Errorf("旧 RefreshToken 应加入黑名单, got %d", len(bl.revoked))
	}

	if _, err := svc.RefreshToken(context.Background(), refresh); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("已轮换的 RefreshToken 不应再次使用: %v", err)
	}
}

func TestRefreshToken_PicksUpRoleChange(t *testing.T) {
	env := newTestEnv()
	env.addUser("u-1", access.RoleDealer, access.StatusApproved, "mgr-1")
	svc, _ := setupTestAuthService(env, nil)

	refresh, _ := env.jwtMgr.GenerateRefreshToken("u-1", "dealer", false)
	env.users.users["u-1"].Role = access.RoleManager

	result, err := svc.RefreshToken(context.Background(), refresh)
	if err != nil {
		t.Fatalf("RefreshToken 应成功: %v", err)
	}
	claims, err := env.jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.Role != string(access.RoleManager) {
		t.Errorf("刷新后应使用数据库中的新角色, got %q", claims.Role)
	}
}

func TestRefreshToken_RejectsAccessToken(t *testing.T) {
	env := newTestEnv()
	env.addUser("u-1", access.RoleDealer, access.StatusApproved, "mgr-1")
	svc, _ := setupTestAuthService(env, nil)

	accessToken, _ := env.jwtMgr.GenerateAccessToken("u-1", "dealer")
	if _, err := svc.RefreshToken(context.Background(), accessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("期望 ErrInvalidRefreshToken，实际: %v", err)
	}
}

func TestLogout_Blacklists(t *testing.T) {
	env := newTestEnv()
	svc, bl := setupTestAuthService(env, nil)

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Logout 失败: %v", err)
	}
	if _, ok := bl.revoked["jti-1"]; !ok {
		t.Error("jti 应加入黑名单")
	}
}

// ── GetMe 测试 ──

func TestGetMe_OwnerOverride(t *testing.T) {
	env := newTestEnv()
	owner := env.addUser("owner-1", access.RoleOwner, access.StatusApproved, "")
	owner.DataSourceManagerID = ptr("mgr-9")
	svc, _ := setupTestAuthService(env, nil)

	me, err := svc.GetMe(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("GetMe 失败: %v", err)
	}
	if me.Scope.Kind != "override" || me.Scope.BucketID != "mgr-9" {
		t.Errorf("owner 覆盖数据源后应解析到 mgr-9, got %+v", me.Scope)
	}
	if me.Features["action:edit_watch_status"] {
		t.Error("覆盖数据源时应禁止编辑")
	}
	if !me.Features["tab:admin"] {
		t.Error("owner 应可见管理页")
	}
}

func ptr(s string) *string { return &s }
