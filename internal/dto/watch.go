package dto

// ── 商品 / 状态模块 DTO ──

// WatchListRequest 商品列表查询参数
type WatchListRequest struct {
	PaginationRequest
	Category string `form:"category" binding:"omitempty,oneof=classic professional"`
	Line     string `form:"line"     binding:"omitempty,max=50"`
	Status   string `form:"status"   binding:"omitempty,max=30"` // 逗号分隔，如 buy,pending
	Search   string `form:"search"   binding:"omitempty,max=100"`
	Material string `form:"material" binding:"omitempty,max=50"`
	Bezel    string `form:"bezel"    binding:"omitempty,max=50"`
	Bracelet string `form:"bracelet" binding:"omitempty,max=50"`
	Price    string `form:"price"    binding:"omitempty,max=40"` // "min-max"
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	Sort     string `form:"sort"     binding:"omitempty,oneof=price-asc price-desc name-asc"`
}

// UpdateStatusRequest 修改买入状态请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=buy pending no"`
}

// LogListRequest 变更日志查询参数
type LogListRequest struct {
	PaginationRequest
	Status  string `form:"status"  binding:"omitempty,max=30"`             // 逗号分隔
	From    string `form:"from"    binding:"omitempty,datetime=2006-01-02"` // 含当天
	To      string `form:"to"      binding:"omitempty,datetime=2006-01-02"` // 含当天
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}
