package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/dto"
	"watch-reserve/backend/internal/model"
	"watch-reserve/backend/internal/repository"
	"watch-reserve/backend/pkg/storage"
)

// ── 商品模块业务错误 ──

var (
	ErrWatchNotFound     = errors.New("商品不存在")
	ErrImageNotFound     = errors.New("商品图片不存在")
	ErrInvalidStatus     = errors.New("无效的买入状态")
	ErrInvalidDateRange  = errors.New("日期范围无效")
	ErrStatusWriteFailed = errors.New("状态保存失败，已恢复为原状态")
	ErrInvalidDataSource = errors.New("数据源必须是已审核的 manager")
)

var categoryOptions = []catalog.Option{
	{Value: string(catalog.CategoryClassic), Label: "클래식"},
	{Value: string(catalog.CategoryProfessional), Label: "프로페셔널"},
}

// WatchService 商品与买入状态业务接口
type WatchService interface {
	List(ctx context.Context, callerID string, req *dto.WatchListRequest) (*dto.WatchListResponse, error)
	FilterOptions(ctx context.Context, callerID string) (*dto.FilterOptionsResponse, error)
	// UpdateStatus 写入调用者作用域的状态；写入失败时返回 Committed=false 的结果与 ErrStatusWriteFailed
	UpdateStatus(ctx context.Context, callerID, modelNumber string, req *dto.UpdateStatusRequest) (*dto.StatusWriteResult, error)
	// SetDataSource owner 切换查看的 manager 数据；nil 表示恢复自身
	SetDataSource(ctx context.Context, callerID string, req *dto.SetDataSourceRequest) (*dto.ScopeResponse, error)
	ImageURL(ctx context.Context, modelNumber string) (*dto.ImageResponse, error)
}

type watchService struct {
	repo      *repository.Repository
	catalog   *catalog.Catalog
	images    ImageStore
	audit     AuditService
	pageLimit int
	logger    *zap.Logger
}

// NewWatchService 创建 WatchService 实例；images 为 nil 时图片仅使用数据集中的地址
func NewWatchService(
	repo *repository.Repository,
	cat *catalog.Catalog,
	images ImageStore,
	audit AuditService,
	pageLimit int,
	logger *zap.Logger,
) WatchService {
	if pageLimit <= 0 {
		pageLimit = 100
	}
	return &watchService{
		repo:      repo,
		catalog:   cat,
		images:    images,
		audit:     audit,
		pageLimit: pageLimit,
		logger:    logger,
	}
}

// ────────────────────── List ──────────────────────

func (s *watchService) List(ctx context.Context, callerID string, req *dto.WatchListRequest) (*dto.WatchListResponse, error) {
	caller, err := requireFeature(ctx, s.repo, s.logger, callerID, access.TabCatalog)
	if err != nil {
		return nil, err
	}
	actor := caller.Actor()
	scope := access.ResolveScope(actor)

	preds, err := buildPredicates(req)
	if err != nil {
		return nil, err
	}

	overrides, err := s.loadOverrides(ctx, scope.BucketID())
	if err != nil {
		return nil, err
	}

	all := s.catalog.All()
	filtered := catalog.Filter(all, overrides, preds)

	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > s.pageLimit {
		pageSize = s.pageLimit
	}
	page := req.GetPage()
	start := len(filtered)
	if page-1 <= len(filtered)/pageSize {
		start = min((page-1)*pageSize, len(filtered))
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	list := make([]dto.WatchResponse, 0, end-start)
	for i := start; i < end; i++ {
		list = append(list, toWatchResponse(&filtered[i], overrides))
	}

	return &dto.WatchListResponse{
		List:     list,
		Total:    len(filtered),
		Page:     page,
		PageSize: pageSize,
		Counts:   statusCounts(catalog.CountByStatus(all, overrides)),
		Scope:    toScopeResponse(scope),
		CanEdit:  access.Allowed(actor, access.EditWatchStatus),
	}, nil
}

func (s *watchService) loadOverrides(ctx context.Context, bucketID string) (map[string]catalog.Status, error) {
	rows, err := s.repo.WatchStatus.ListByScope(ctx, bucketID)
	if err != nil {
		s.logger.Error("查询作用域状态失败", zap.String("scope_id", bucketID), zap.Error(err))
		return nil, err
	}
	return overridesOf(rows), nil
}

func buildPredicates(req *dto.WatchListRequest) (catalog.Predicates, error) {
	p := catalog.Predicates{
		Category: catalog.Category(req.Category),
		Line:     req.Line,
		Search:   req.Search,
		Material: req.Material,
		Bezel:    req.Bezel,
		Bracelet: req.Bracelet,
		Sort:     req.Sort,
	}
	if req.Status != "" {
		statuses, err := parseStatuses(req.Status)
		if err != nil {
			return p, err
		}
		p.Statuses = statuses
	}
	if req.Price != "" {
		p.MinPrice, p.MaxPrice = catalog.ParsePriceRange(req.Price)
	} else {
		p.MinPrice = catalog.ParsePriceBound(req.MinPrice)
		p.MaxPrice = catalog.ParsePriceBound(req.MaxPrice)
	}
	return p, nil
}

// parseStatuses 解析逗号分隔的状态列表
func parseStatuses(raw string) ([]catalog.Status, error) {
	var out []catalog.Status
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st, ok := catalog.ParseStatus(part)
		if !ok {
			return nil, ErrInvalidStatus
		}
		out = append(out, st)
	}
	return out, nil
}

func toWatchResponse(w *catalog.Watch, overrides map[string]catalog.Status) dto.WatchResponse {
	st := catalog.EffectiveStatus(w, overrides)
	return dto.WatchResponse{
		Watch:        *w,
		LineName:     catalog.LineName(w.Line),
		MaterialName: catalog.MaterialName(w.Material),
		Category:     string(catalog.CategoryOf(w.Line)),
		Status:       string(st),
		StatusLabel:  st.Label(),
	}
}

// ────────────────────── FilterOptions ──────────────────────

func (s *watchService) FilterOptions(ctx context.Context, callerID string) (*dto.FilterOptionsResponse, error) {
	caller, err := loadUser(ctx, s.repo, s.logger, callerID)
	if err != nil {
		return nil, err
	}

	statuses := make([]catalog.Option, 0, len(catalog.Statuses))
	for _, st := range catalog.Statuses {
		statuses = append(statuses, catalog.Option{Value: string(st), Label: st.Label()})
	}
	result := &dto.FilterOptionsResponse{
		Categories: categoryOptions,
		Lines:      s.catalog.LineOptions(),
		Materials:  s.catalog.MaterialOptions(),
		Statuses:   statuses,
	}

	if access.Allowed(caller.Actor(), access.ViewOtherScope) {
		owners, err := s.repo.User.ListScopeOwners(ctx)
		if err != nil {
			s.logger.Error("查询 manager 列表失败", zap.Error(err))
			return nil, err
		}
		for _, u := range owners {
			if u.UserID == caller.UserID || u.Role != access.RoleManager {
				continue
			}
			result.DataSources = append(result.DataSources, catalog.Option{Value: u.UserID, Label: u.Name()})
		}
	}
	return result, nil
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *watchService) UpdateStatus(ctx context.Context, callerID, modelNumber string, req *dto.UpdateStatusRequest) (*dto.StatusWriteResult, error) {
	// 1. 权限校验先于任何状态读写
	caller, err := requireFeature(ctx, s.repo, s.logger, callerID, access.EditWatchStatus)
	if err != nil {
		return nil, err
	}

	requested, ok := catalog.ParseStatus(req.Status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	watch, ok := s.catalog.Get(modelNumber)
	if !ok {
		return nil, ErrWatchNotFound
	}

	bucketID := access.ResolveScope(caller.Actor()).BucketID()
	result := &dto.StatusWriteResult{
		ModelNumber: modelNumber,
		Requested:   string(requested),
	}

	// 2. 读取当前状态
	previous := catalog.EffectiveStatus(&watch, nil)
	row, err := s.repo.WatchStatus.Get(ctx, bucketID, modelNumber)
	switch {
	case err == nil:
		previous = row.Status
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		s.logger.Error("查询当前状态失败",
			zap.String("scope_id", bucketID), zap.String("model", modelNumber), zap.Error(err))
		result.Previous = string(previous)
		result.Effective = string(previous)
		return result, ErrStatusWriteFailed
	}
	result.Previous = string(previous)

	if previous == requested {
		result.Effective = string(requested)
		result.Committed = true
		return result, nil
	}

	// 3. 写入作用域
	err = s.repo.WatchStatus.Upsert(ctx, &model.WatchStatus{
		ScopeID:     bucketID,
		ModelNumber: modelNumber,
		Status:      requested,
		UpdatedBy:   &caller.UserID,
	})
	if err != nil {
		s.logger.Error("写入状态失败",
			zap.String("scope_id", bucketID), zap.String("model", modelNumber), zap.Error(err))
		result.Effective = string(previous)
		return result, ErrStatusWriteFailed
	}

	// 4. 追加审计日志
	s.audit.RecordChange(ctx, bucketID, modelNumber, previous, requested, caller)

	result.Effective = string(requested)
	result.Committed = true
	return result, nil
}

// ────────────────────── SetDataSource ──────────────────────

func (s *watchService) SetDataSource(ctx context.Context, callerID string, req *dto.SetDataSourceRequest) (*dto.ScopeResponse, error) {
	caller, err := requireFeature(ctx, s.repo, s.logger, callerID, access.ViewOtherScope)
	if err != nil {
		return nil, err
	}

	target := model.StringValue(req.ManagerID)
	if target == "" || target == caller.UserID {
		caller.DataSourceManagerID = nil
	} else {
		mgr, err := loadUser(ctx, s.repo, s.logger, target)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, ErrInvalidDataSource
			}
			return nil, err
		}
		if mgr.Role != access.RoleManager || mgr.Status != access.StatusApproved {
			return nil, ErrInvalidDataSource
		}
		caller.DataSourceManagerID = &mgr.UserID
	}

	caller.UpdatedBy = &caller.UserID
	if err := s.repo.User.Update(ctx, caller); err != nil {
		s.logger.Error("更新数据源失败", zap.String("id", caller.UserID), zap.Error(err))
		return nil, err
	}

	scope := toScopeResponse(access.ResolveScope(caller.Actor()))
	return &scope, nil
}

// ────────────────────── ImageURL ──────────────────────

func (s *watchService) ImageURL(ctx context.Context, modelNumber string) (*dto.ImageResponse, error) {
	watch, ok := s.catalog.Get(modelNumber)
	if !ok {
		return nil, ErrWatchNotFound
	}

	if s.images != nil {
		url, err := s.images.PresignedURL(ctx, watch.ImageObject())
		if err == nil {
			return &dto.ImageResponse{URL: url, Source: "storage"}, nil
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("生成图片链接失败，使用数据集地址",
				zap.String("model", modelNumber), zap.Error(err))
		}
	}

	if watch.ImageURL == "" {
		return nil, ErrImageNotFound
	}
	return &dto.ImageResponse{URL: watch.ImageURL, Source: "dataset"}, nil
}
