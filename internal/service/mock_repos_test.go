package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"watch-reserve/backend/config"
	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/model"
	"watch-reserve/backend/internal/repository"
	"watch-reserve/backend/pkg/googleauth"
	"watch-reserve/backend/pkg/invitecode"
	"watch-reserve/backend/pkg/jwt"
	"watch-reserve/backend/pkg/storage"
)

var errMockStore = errors.New("mock store failure")

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[string]*model.User // key: user_id
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.nextID++
		user.UserID = fmt.Sprintf("user-%d", m.nextID)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByGoogleSub(_ context.Context, sub string) (*model.User, error) {
	for _, u := range m.users {
		if u.GoogleSub == sub {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) NicknameTaken(_ context.Context, nickname, excludeUserID string) (bool, error) {
	for _, u := range m.users {
		if u.UserID == excludeUserID || u.Nickname == nil {
			continue
		}
		if strings.EqualFold(*u.Nickname, nickname) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) ListWithFilters(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var matched []model.User
	for _, u := range m.sorted() {
		if filters.ManagerID != "" && model.StringValue(u.ManagerID) != filters.ManagerID {
			continue
		}
		if filters.Role != "" && string(u.Role) != filters.Role {
			continue
		}
		if filters.Status != "" && string(u.Status) != filters.Status {
			continue
		}
		matched = append(matched, *u)
	}
	total := int64(len(matched))
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockUserRepo) ListByManager(_ context.Context, managerID string) ([]model.User, error) {
	var result []model.User
	for _, u := range m.sorted() {
		if model.StringValue(u.ManagerID) == managerID {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) ListScopeOwners(_ context.Context) ([]model.User, error) {
	var result []model.User
	for _, u := range m.sorted() {
		if access.IsScopeOwner(u.Role) && u.Status == access.StatusApproved {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) CountActiveSubordinates(_ context.Context, managerID string) (int64, error) {
	var n int64
	for _, u := range m.users {
		if model.StringValue(u.ManagerID) == managerID && u.Status != access.StatusRejected {
			n++
		}
	}
	return n, nil
}

func (m *mockUserRepo) RejectSubordinates(_ context.Context, managerID, operatorID string) (int64, error) {
	var n int64
	for _, u := range m.users {
		if model.StringValue(u.ManagerID) == managerID && u.Status != access.StatusRejected {
			u.Status = access.StatusRejected
			u.UpdatedBy = &operatorID
			n++
		}
	}
	return n, nil
}

func (m *mockUserRepo) ClearDataSourceOverrides(_ context.Context, managerID string) error {
	for _, u := range m.users {
		if model.StringValue(u.DataSourceManagerID) == managerID {
			u.DataSourceManagerID = nil
		}
	}
	return nil
}

func (m *mockUserRepo) sorted() []*model.User {
	out := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// ── Mock InviteCodeRepository ──

type mockInviteCodeRepo struct {
	codes    map[string]*model.InviteCode
	getCalls int
}

func newMockInviteCodeRepo() *mockInviteCodeRepo {
	return &mockInviteCodeRepo{codes: make(map[string]*model.InviteCode)}
}

func (m *mockInviteCodeRepo) Create(_ context.Context, code *model.InviteCode) error {
	if _, dup := m.codes[code.Code]; dup {
		return gorm.ErrDuplicatedKey
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	m.codes[code.Code] = code
	return nil
}

func (m *mockInviteCodeRepo) Exists(_ context.Context, code string) (bool, error) {
	_, ok := m.codes[code]
	return ok, nil
}

func (m *mockInviteCodeRepo) GetByCode(_ context.Context, code string) (*model.InviteCode, error) {
	m.getCalls++
	if c, ok := m.codes[code]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockInviteCodeRepo) ListActiveByOwner(_ context.Context, ownerID string) ([]model.InviteCode, error) {
	var result []model.InviteCode
	for _, c := range m.codes {
		if c.OwnerID == ownerID && c.Active {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (m *mockInviteCodeRepo) DeactivateByOwner(_ context.Context, ownerID string) (int64, error) {
	var n int64
	now := time.Now()
	for _, c := range m.codes {
		if c.OwnerID == ownerID && c.Active {
			c.Active = false
			c.DeactivatedAt = &now
			n++
		}
	}
	return n, nil
}

func (m *mockInviteCodeRepo) DeactivateByManager(_ context.Context, managerID string) (int64, error) {
	var n int64
	now := time.Now()
	for _, c := range m.codes {
		if c.ManagerID != nil && *c.ManagerID == managerID && c.Active {
			c.Active = false
			c.DeactivatedAt = &now
			n++
		}
	}
	return n, nil
}

func (m *mockInviteCodeRepo) ownedBy(ownerID string) []*model.InviteCode {
	var result []*model.InviteCode
	for _, c := range m.codes {
		if c.OwnerID == ownerID {
			result = append(result, c)
		}
	}
	return result
}

// ── Mock WatchStatusRepository ──

type mockWatchStatusRepo struct {
	buckets   map[string]map[string]*model.WatchStatus
	calls     int
	failGet   error
	failWrite error
}

func newMockWatchStatusRepo() *mockWatchStatusRepo {
	return &mockWatchStatusRepo{buckets: make(map[string]map[string]*model.WatchStatus)}
}

func (m *mockWatchStatusRepo) ListByScope(_ context.Context, scopeID string) ([]model.WatchStatus, error) {
	m.calls++
	var result []model.WatchStatus
	for _, row := range m.buckets[scopeID] {
		result = append(result, *row)
	}
	return result, nil
}

func (m *mockWatchStatusRepo) Get(_ context.Context, scopeID, modelNumber string) (*model.WatchStatus, error) {
	m.calls++
	if m.failGet != nil {
		return nil, m.failGet
	}
	if row, ok := m.buckets[scopeID][modelNumber]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWatchStatusRepo) Upsert(_ context.Context, status *model.WatchStatus) error {
	m.calls++
	if m.failWrite != nil {
		return m.failWrite
	}
	m.set(status.ScopeID, status.ModelNumber, status.Status)
	return nil
}

func (m *mockWatchStatusRepo) InitBucket(_ context.Context, scopeID string, modelNumbers []string, _ string) error {
	m.calls++
	for _, mn := range modelNumbers {
		if _, ok := m.buckets[scopeID][mn]; !ok {
			m.set(scopeID, mn, catalog.StatusNo)
		}
	}
	return nil
}

func (m *mockWatchStatusRepo) DeleteBucket(_ context.Context, scopeID string) (int64, error) {
	m.calls++
	n := int64(len(m.buckets[scopeID]))
	delete(m.buckets, scopeID)
	return n, nil
}

func (m *mockWatchStatusRepo) set(scopeID, modelNumber string, st catalog.Status) {
	if m.buckets[scopeID] == nil {
		m.buckets[scopeID] = make(map[string]*model.WatchStatus)
	}
	m.buckets[scopeID][modelNumber] = &model.WatchStatus{ScopeID: scopeID, ModelNumber: modelNumber, Status: st}
}

// ── Mock WatchStatusLogRepository ──

type mockWatchStatusLogRepo struct {
	logs       []model.WatchStatusLog
	failCreate error
}

func newMockWatchStatusLogRepo() *mockWatchStatusLogRepo {
	return &mockWatchStatusLogRepo{}
}

func (m *mockWatchStatusLogRepo) Create(ctx context.Context, log *model.WatchStatusLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.failCreate != nil {
		return m.failCreate
	}
	log.LogID = fmt.Sprintf("log-%d", len(m.logs)+1)
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockWatchStatusLogRepo) List(_ context.Context, filters *repository.LogListFilters, offset, limit int) ([]model.WatchStatusLog, int64, error) {
	var matched []model.WatchStatusLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := m.logs[i]
		if l.ScopeID != filters.ScopeID {
			continue
		}
		if len(filters.Statuses) > 0 && !containsString(filters.Statuses, string(l.NewStatus)) {
			continue
		}
		matched = append(matched, l)
	}
	total := int64(len(matched))
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockWatchStatusLogRepo) CountByActor(_ context.Context, scopeID string) ([]repository.ActorChangeCount, error) {
	counts := make(map[string]*repository.ActorChangeCount)
	var order []string
	for _, l := range m.logs {
		if l.ScopeID != scopeID {
			continue
		}
		c, ok := counts[l.ActorID]
		if !ok {
			c = &repository.ActorChangeCount{ActorID: l.ActorID, ActorName: l.ActorName}
			counts[l.ActorID] = c
			order = append(order, l.ActorID)
		}
		c.Count++
	}
	result := make([]repository.ActorChangeCount, 0, len(order))
	for _, id := range order {
		result = append(result, *counts[id])
	}
	return result, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ── 外部依赖 Fake ──

type fakeVerifier struct {
	identity *googleauth.Identity
	err      error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (*googleauth.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type fakeBlacklist struct {
	revoked map[string]time.Duration
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: make(map[string]time.Duration)}
}

func (f *fakeBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	f.revoked[jti] = ttl
	return nil
}

func (f *fakeBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := f.revoked[jti]
	return ok, nil
}

type fakeImageStore struct {
	objects map[string]string
	err     error
}

func (f *fakeImageStore) PresignedURL(_ context.Context, object string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if u, ok := f.objects[object]; ok {
		return u, nil
	}
	return "", storage.ErrObjectNotFound
}

type fakeReporter struct {
	reports []string
}

func (f *fakeReporter) Report(_ error, msg string, _ map[string]string) {
	f.reports = append(f.reports, msg)
}

// ── 测试环境 ──

type testEnv struct {
	cfg      *config.Config
	users    *mockUserRepo
	codes    *mockInviteCodeRepo
	statuses *mockWatchStatusRepo
	logs     *mockWatchStatusLogRepo
	repo     *repository.Repository
	catalog  *catalog.Catalog
	jwtMgr   *jwt.Manager
	gen      *invitecode.Generator
	reporter *fakeReporter
	logger   *zap.Logger
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Watch{
		{ModelNumber: "m126610ln-0001", Title: "서브마리너 데이트", Line: "submariner", Material: "alt-steel", Price: 15000000, ImageURL: "https://cdn.example.com/sub.jpg"},
		{ModelNumber: "m126500ln-0001", Title: "코스모그래프 데이토나", Line: "cosmograph-daytona", Material: "alt-steel", Price: 21000000},
		{ModelNumber: "m126334-0001", Title: "데이트저스트 41", Line: "datejust", Material: "alt-rolesor-yellow", Price: 13000000, BuyStatus: catalog.StatusBuy},
	})
}

func newTestEnv() *testEnv {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Catalog:   config.CatalogConfig{PageLimit: 100},
		Bootstrap: config.BootstrapConfig{OwnerEmails: []string{"boss@example.com"}},
	}
	env := &testEnv{
		cfg:      cfg,
		users:    newMockUserRepo(),
		codes:    newMockInviteCodeRepo(),
		statuses: newMockWatchStatusRepo(),
		logs:     newMockWatchStatusLogRepo(),
		catalog:  testCatalog(),
		jwtMgr:   jwt.NewManager(&cfg.Auth),
		gen:      invitecode.NewGenerator(),
		reporter: &fakeReporter{},
		logger:   zap.NewNop(),
	}
	env.repo = &repository.Repository{
		User:           env.users,
		InviteCode:     env.codes,
		WatchStatus:    env.statuses,
		WatchStatusLog: env.logs,
	}
	return env
}

// addUser 直接写入 mock，绕过业务流程
func (e *testEnv) addUser(id string, role access.Role, status access.Status, managerID string) *model.User {
	now := time.Now()
	nick := "nick-" + id
	u := &model.User{
		UserID:            id,
		GoogleSub:         "sub-" + id,
		Email:             id + "@example.com",
		DisplayName:       "User " + id,
		Nickname:          &nick,
		Role:              role,
		Status:            status,
		ManagerID:         model.StringPtr(managerID),
		SignupCompletedAt: &now,
	}
	u.SetCodes(map[string]string{})
	e.users.users[id] = u
	return u
}

func (e *testEnv) addCode(code, ownerID string, role access.Role, managerID string, active bool) {
	e.codes.codes[code] = &model.InviteCode{
		Code:      code,
		OwnerID:   ownerID,
		Role:      role,
		ManagerID: model.StringPtr(managerID),
		Active:    active,
	}
}
