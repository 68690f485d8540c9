// Package access 角色表、功能权限与数据范围解析。
package access

// Role 用户角色（封闭枚举）
type Role string

const (
	RoleMember     Role = "member"
	RoleDealer     Role = "dealer"
	RoleSubManager Role = "sub_manager"
	RoleManager    Role = "manager"
	RoleOwner      Role = "owner"
)

// Roles 按权限等级升序排列的全部角色
var Roles = []Role{RoleMember, RoleDealer, RoleSubManager, RoleManager, RoleOwner}

var roleLevels = map[Role]int{
	RoleMember:     1,
	RoleDealer:     2,
	RoleSubManager: 3,
	RoleManager:    4,
	RoleOwner:      5,
}

// ParseRole 解析角色字符串，未知角色返回 false
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleLevels[r]
	return r, ok
}

// Level 角色权限等级；未知角色为 0
func Level(r Role) int {
	return roleLevels[r]
}

// IsScopeOwner manager 及以上角色拥有独立的数据范围
func IsScopeOwner(r Role) bool {
	return Level(r) >= Level(RoleManager)
}

// Status 账号审核状态
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// issuableCodeTypes 各角色可签发的邀请码类型（邀请码类型即兑换后获得的角色）
var issuableCodeTypes = map[Role][]Role{
	RoleOwner:      {RoleManager, RoleSubManager, RoleDealer, RoleMember},
	RoleManager:    {RoleSubManager, RoleDealer, RoleMember},
	RoleSubManager: {RoleDealer, RoleMember},
}

// IssuableCodeTypes 返回角色可签发的邀请码类型；不可签发时返回 nil
func IssuableCodeTypes(r Role) []Role {
	types := issuableCodeTypes[r]
	if len(types) == 0 {
		return nil
	}
	out := make([]Role, len(types))
	copy(out, types)
	return out
}

// CanIssue 判断角色能否签发指定类型的邀请码
func CanIssue(issuer, codeType Role) bool {
	for _, t := range issuableCodeTypes[issuer] {
		if t == codeType {
			return true
		}
	}
	return false
}
