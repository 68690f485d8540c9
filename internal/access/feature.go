package access

// Feature 受控功能（封闭枚举，替代字符串键）
type Feature int

const (
	TabCatalog Feature = iota + 1
	TabQuiz
	TabCalc
	TabHistory
	TabReports
	TabAdmin
	EditWatchStatus
	ManageUsers
	ViewOtherScope
)

// Features 全部功能，用于遍历
var Features = []Feature{
	TabCatalog, TabQuiz, TabCalc, TabHistory, TabReports, TabAdmin,
	EditWatchStatus, ManageUsers, ViewOtherScope,
}

var featureNames = map[Feature]string{
	TabCatalog:      "tab:catalog",
	TabQuiz:         "tab:quiz",
	TabCalc:         "tab:calc",
	TabHistory:      "tab:history",
	TabReports:      "tab:reports",
	TabAdmin:        "tab:admin",
	EditWatchStatus: "action:edit_watch_status",
	ManageUsers:     "action:manage_users",
	ViewOtherScope:  "action:view_other_scope",
}

// String 返回功能的稳定标识（用于 API 输出）
func (f Feature) String() string {
	if n, ok := featureNames[f]; ok {
		return n
	}
	return "unknown"
}

// allowList 每个功能的显式角色白名单。
// 修改时需与 roleLevels 保持单调一致，见 TestAllowListsAreMonotonic。
var allowList = map[Feature][]Role{
	TabCatalog:      {RoleMember, RoleDealer, RoleSubManager, RoleManager, RoleOwner},
	TabQuiz:         {RoleMember, RoleDealer, RoleSubManager, RoleManager, RoleOwner},
	TabCalc:         {RoleDealer, RoleSubManager, RoleManager, RoleOwner},
	TabHistory:      {RoleSubManager, RoleManager, RoleOwner},
	TabReports:      {RoleManager, RoleOwner},
	TabAdmin:        {RoleManager, RoleOwner},
	EditWatchStatus: {RoleSubManager, RoleManager, RoleOwner},
	ManageUsers:     {RoleManager, RoleOwner},
	ViewOtherScope:  {RoleOwner},
}

// CanAccess 角色是否在功能白名单中（不考虑账号状态）
func CanAccess(r Role, f Feature) bool {
	for _, allowed := range allowList[f] {
		if allowed == r {
			return true
		}
	}
	return false
}

// Actor 权限判断所需的用户视图
type Actor struct {
	ID                  string
	Role                Role
	Status              Status
	ManagerID           string
	DataSourceManagerID string
}

// HasOverride owner 正在查看其他 manager 的数据
func (a *Actor) HasOverride() bool {
	return a.DataSourceManagerID != "" && CanAccess(a.Role, ViewOtherScope)
}

// Allowed 实际可用权限：已认证、已审核、角色在白名单中；
// 编辑状态时还要求未处于跨范围查看模式，避免误写他人数据
func Allowed(a *Actor, f Feature) bool {
	if a == nil || a.ID == "" {
		return false
	}
	if a.Status != StatusApproved {
		return false
	}
	if !CanAccess(a.Role, f) {
		return false
	}
	if f == EditWatchStatus && a.HasOverride() {
		return false
	}
	return true
}

// Flags 返回 actor 全部功能的可用性（供前端渲染标签页）
func Flags(a *Actor) map[string]bool {
	flags := make(map[string]bool, len(Features))
	for _, f := range Features {
		flags[f.String()] = Allowed(a, f)
	}
	return flags
}
