package access

// ScopeKind 数据范围解析结果类型
type ScopeKind int

const (
	// ScopeLegacy 无可用范围，使用多租户之前的全局共享数据
	ScopeLegacy ScopeKind = iota
	// ScopeOverride owner 显式切换到某个 manager 的数据
	ScopeOverride
	// ScopeOwned manager 及以上角色使用自己的数据
	ScopeOwned
	// ScopeShared 下级角色共享所属 manager 的数据
	ScopeShared
)

// LegacyBucketID 全局共享数据的 bucket 标识
const LegacyBucketID = "legacy"

var scopeKindNames = map[ScopeKind]string{
	ScopeLegacy:   "legacy",
	ScopeOverride: "override",
	ScopeOwned:    "owned",
	ScopeShared:   "shared",
}

func (k ScopeKind) String() string {
	return scopeKindNames[k]
}

// Scope 数据范围
type Scope struct {
	Kind      ScopeKind
	ManagerID string
}

// BucketID 状态数据与变更日志的分区键
func (s Scope) BucketID() string {
	if s.Kind == ScopeLegacy || s.ManagerID == "" {
		return LegacyBucketID
	}
	return s.ManagerID
}

// ResolveScope 按优先级解析用户读写的数据范围，永不失败
func ResolveScope(a *Actor) Scope {
	if a == nil {
		return Scope{Kind: ScopeLegacy}
	}
	if a.HasOverride() {
		return Scope{Kind: ScopeOverride, ManagerID: a.DataSourceManagerID}
	}
	if IsScopeOwner(a.Role) && a.ID != "" {
		return Scope{Kind: ScopeOwned, ManagerID: a.ID}
	}
	if a.ManagerID != "" {
		return Scope{Kind: ScopeShared, ManagerID: a.ManagerID}
	}
	return Scope{Kind: ScopeLegacy}
}
