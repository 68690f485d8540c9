package dto

import "watch-reserve/backend/internal/catalog"

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// InviteValidateResponse 邀请码验证响应
type InviteValidateResponse struct {
	Valid      bool   `json:"valid"`
	Role       string `json:"role,omitempty"`
	IssuerName string `json:"issuer_name,omitempty"`
}

// MeResponse 当前用户信息（GET /auth/me）
type MeResponse struct {
	User     UserResponse    `json:"user"`
	Scope    ScopeResponse   `json:"scope"`
	Features map[string]bool `json:"features"`
}

// ScopeResponse 数据作用域
type ScopeResponse struct {
	Kind      string `json:"kind"`
	ManagerID string `json:"manager_id,omitempty"`
	BucketID  string `json:"bucket_id"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息响应
type UserResponse struct {
	ID                  string            `json:"id"`
	Email               string            `json:"email"`
	DisplayName         string            `json:"display_name"`
	Nickname            string            `json:"nickname,omitempty"`
	Phone               string            `json:"phone,omitempty"`
	AvatarURL           string            `json:"avatar_url,omitempty"`
	Role                string            `json:"role"`
	Status              string            `json:"status"`
	ManagerID           string            `json:"manager_id,omitempty"`
	InviteCodes         map[string]string `json:"invite_codes"`
	DataSourceManagerID string            `json:"data_source_manager_id,omitempty"`
	SignupCompleted     bool              `json:"signup_completed"`
	CreatedAt           string            `json:"created_at"`
}

// InviteCodeResponse 邀请码信息
type InviteCodeResponse struct {
	Code      string `json:"code"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// RolePreviewResponse 角色变更预览
type RolePreviewResponse struct {
	UserID               string `json:"user_id"`
	FromRole             string `json:"from_role"`
	ToRole               string `json:"to_role"`
	AffectedSubordinates int64  `json:"affected_subordinates"`
	RequiresConfirm      bool   `json:"requires_confirm"`
}

// ChangeRoleResponse 角色变更结果
type ChangeRoleResponse struct {
	User                 UserResponse `json:"user"`
	RejectedSubordinates int64        `json:"rejected_subordinates"`
	DeactivatedCodes     int64        `json:"deactivated_codes"`
	BucketInitialized    bool         `json:"bucket_initialized"`
	BucketDeleted        bool         `json:"bucket_deleted"`
}

// ── 商品模块响应 ──

// WatchResponse 商品 + 当前作用域下的状态
type WatchResponse struct {
	catalog.Watch
	LineName     string `json:"line_name"`
	MaterialName string `json:"material_name"`
	Category     string `json:"category,omitempty"`
	Status       string `json:"status"`
	StatusLabel  string `json:"status_label"`
}

// WatchListResponse 商品列表
type WatchListResponse struct {
	List     []WatchResponse `json:"list"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Counts   map[string]int  `json:"counts"` // 筛选结果中各状态数量
	Scope    ScopeResponse   `json:"scope"`
	CanEdit  bool            `json:"can_edit"`
}

// FilterOptionsResponse 筛选项
type FilterOptionsResponse struct {
	Categories  []catalog.Option `json:"categories"`
	Lines       []catalog.Option `json:"lines"`
	Materials   []catalog.Option `json:"materials"`
	Statuses    []catalog.Option `json:"statuses"`
	DataSources []catalog.Option `json:"data_sources,omitempty"` // 仅 owner 可见
}

// StatusWriteResult 状态写入结果；Committed=false 时客户端应回退为 Effective
type StatusWriteResult struct {
	ModelNumber string `json:"model_number"`
	Previous    string `json:"previous"`
	Requested   string `json:"requested"`
	Effective   string `json:"effective"`
	Committed   bool   `json:"committed"`
}

// ImageResponse 商品图片地址
type ImageResponse struct {
	URL    string `json:"url"`
	Source string `json:"source"` // storage | dataset
}

// LogResponse 状态变更日志
type LogResponse struct {
	ID             string `json:"id"`
	ModelNumber    string `json:"model_number"`
	Title          string `json:"title,omitempty"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	ActorID        string `json:"actor_id"`
	ActorName      string `json:"actor_name"`
	CreatedAt      string `json:"created_at"`
}

// ── 报表模块响应 ──

// TeamMemberResponse 团队成员概要
type TeamMemberResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	ChangeCount int64  `json:"change_count"`
}

// TeamReportResponse 团队报表
type TeamReportResponse struct {
	Scope        ScopeResponse        `json:"scope"`
	Members      []TeamMemberResponse `json:"members"`
	StatusCounts map[string]int       `json:"status_counts"`
	TotalChanges int64                `json:"total_changes"`
}

// ── 分页请求 ──

// MaxPage 页码上限，超出的页码按上限处理，保证偏移量计算不会溢出
const MaxPage = 10000

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1,max=10000"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	switch {
	case p.Page <= 0:
		return 1
	case p.Page > MaxPage:
		return MaxPage
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	switch {
	case p.PageSize <= 0:
		return 20
	case p.PageSize > 100:
		return 100
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
