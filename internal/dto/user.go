package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	Role    string `form:"role"    binding:"omitempty,oneof=member dealer sub_manager manager owner"`
	Status  string `form:"status"  binding:"omitempty,oneof=pending approved rejected"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// ChangeRoleRequest 变更角色请求
// 降级且存在下属时必须 confirm=true
type ChangeRoleRequest struct {
	Role    string `json:"role"    binding:"required,oneof=member dealer sub_manager manager owner"`
	Confirm bool   `json:"confirm"`
}

// RolePreviewRequest 角色变更预览参数
type RolePreviewRequest struct {
	Role string `form:"role" binding:"required,oneof=member dealer sub_manager manager owner"`
}

// SetDataSourceRequest 设置数据源覆盖；manager_id 为空表示恢复自身数据
type SetDataSourceRequest struct {
	ManagerID *string `json:"manager_id" binding:"omitempty,uuid"`
}
