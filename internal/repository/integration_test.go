//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/model"
	"watch-reserve/backend/internal/repository"
	"watch-reserve/backend/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=watch_reserve password=watch_reserve_password dbname=watch_reserve_test sslmode=disable TimeZone=Asia/Seoul"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if _, err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "执行迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func createUser(t *testing.T, role access.Role, managerID *string) *model.User {
	t.Helper()
	u := &model.User{
		GoogleSub:   "sub-" + uuid.NewString(),
		Email:       fmt.Sprintf("u%d@example.com", time.Now().UnixNano()),
		DisplayName: "테스트",
		Role:        role,
		Status:      access.StatusApproved,
		ManagerID:   managerID,
	}
	u.SetCodes(map[string]string{})
	if err := testDB.Create(u).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	t.Cleanup(func() {
		testDB.Where("owner_id = ?", u.UserID).Delete(&model.InviteCode{})
		testDB.Where("user_id = ?", u.UserID).Delete(&model.User{})
	})
	return u
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	scope := "scope-" + uuid.NewString()[:8]

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	txRepo := repo.WithTx(tx)

	if err := txRepo.WatchStatus.InitBucket(ctx, scope, []string{"m1", "m2"}, ""); err != nil {
		tx.Rollback()
		t.Fatalf("事务内初始化失败: %v", err)
	}
	tx.Rollback()

	rows, err := repo.WatchStatus.ListByScope(ctx, scope)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(rows) != 0 {
		repo.WatchStatus.DeleteBucket(ctx, scope)
		t.Fatalf("回滚后不应有数据, got %d", len(rows))
	}
}

// ═══════════════════════════════════════════════════════════
// Test: WatchStatus
// ═══════════════════════════════════════════════════════════

func TestWatchStatus_InitUpsertDelete(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	scope := "scope-" + uuid.NewString()[:8]
	defer repo.WatchStatus.DeleteBucket(ctx, scope)

	if err := repo.WatchStatus.InitBucket(ctx, scope, []string{"m1", "m2", "m3"}, ""); err != nil {
		t.Fatalf("InitBucket 失败: %v", err)
	}
	if err := repo.WatchStatus.Upsert(ctx, &model.WatchStatus{ScopeID: scope, ModelNumber: "m2", Status: catalog.StatusBuy}); err != nil {
		t.Fatalf("Upsert 失败: %v", err)
	}
	// 重复初始化不覆盖已有状态
	if err := repo.WatchStatus.InitBucket(ctx, scope, []string{"m1", "m2", "m3", "m4"}, ""); err != nil {
		t.Fatalf("二次 InitBucket 失败: %v", err)
	}

	row, err := repo.WatchStatus.Get(ctx, scope, "m2")
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if row.Status != catalog.StatusBuy {
		t.Errorf("期望 buy, got %s", row.Status)
	}

	n, err := repo.WatchStatus.DeleteBucket(ctx, scope)
	if err != nil {
		t.Fatalf("DeleteBucket 失败: %v", err)
	}
	if n != 4 {
		t.Errorf("期望删除 4 行, got %d", n)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: WatchStatusLog
// ═══════════════════════════════════════════════════════════

func TestWatchStatusLog_AppendOnly(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	actor := createUser(t, access.RoleManager, nil)
	scope := actor.UserID

	entry := &model.WatchStatusLog{
		ScopeID:        scope,
		ModelNumber:    "m1",
		PreviousStatus: catalog.StatusNo,
		NewStatus:      catalog.StatusBuy,
		ActorID:        actor.UserID,
		ActorName:      actor.Name(),
	}
	if err := repo.WatchStatusLog.Create(ctx, entry); err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	err := testDB.Model(&model.WatchStatusLog{}).
		Where("log_id = ?", entry.LogID).
		Update("new_status", catalog.StatusNo).Error
	if err == nil {
		t.Error("日志表应拒绝更新")
	}

	_, total, err := repo.WatchStatusLog.List(ctx, &repository.LogListFilters{ScopeID: scope}, 0, 10)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 1 {
		t.Errorf("期望 1 条日志, got %d", total)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: User cascade helpers
// ═══════════════════════════════════════════════════════════

func TestUser_RejectSubordinates(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	mgr := createUser(t, access.RoleManager, nil)
	for i := 0; i < 3; i++ {
		createUser(t, access.RoleMember, &mgr.UserID)
	}

	n, err := repo.User.CountActiveSubordinates(ctx, mgr.UserID)
	if err != nil || n != 3 {
		t.Fatalf("期望 3 名下属, got %d (%v)", n, err)
	}

	affected, err := repo.User.RejectSubordinates(ctx, mgr.UserID, mgr.UserID)
	if err != nil {
		t.Fatalf("RejectSubordinates 失败: %v", err)
	}
	if affected != 3 {
		t.Errorf("期望影响 3 行, got %d", affected)
	}

	subs, _ := repo.User.ListByManager(ctx, mgr.UserID)
	for _, s := range subs {
		if s.Status != access.StatusRejected {
			t.Errorf("下属 %s 应为 rejected, got %s", s.UserID, s.Status)
		}
	}
}

func TestUser_NicknameTakenIgnoresCase(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	u := createUser(t, access.RoleMember, nil)
	nick := "Nick" + uuid.NewString()[:6]
	u.Nickname = &nick
	if err := repo.User.Update(ctx, u); err != nil {
		t.Fatalf("Update 失败: %v", err)
	}

	taken, err := repo.User.NicknameTaken(ctx, "nick"+nick[4:], "")
	if err != nil || !taken {
		t.Errorf("昵称比较应忽略大小写, taken=%v err=%v", taken, err)
	}
	taken, _ = repo.User.NicknameTaken(ctx, nick, u.UserID)
	if taken {
		t.Error("排除自身后不应视为占用")
	}
}
