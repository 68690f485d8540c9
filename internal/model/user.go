package model

import (
	"time"

	"gorm.io/datatypes"

	"watch-reserve/backend/internal/access"
)

// InviteCodeMap 码类型（目标角色）→ 邀请码
type InviteCodeMap = datatypes.JSONType[map[string]string]

// User 用户表，对应 users
type User struct {
	UserID              string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	GoogleSub           string        `gorm:"type:varchar(255);not null"                     json:"-"`
	Email               string        `gorm:"type:varchar(255);not null"                     json:"email"`
	DisplayName         string        `gorm:"type:varchar(100);not null;default:''"          json:"display_name"`
	Nickname            *string       `gorm:"type:varchar(50)"                               json:"nickname,omitempty"`
	Phone               string        `gorm:"type:varchar(30);not null;default:''"           json:"phone"`
	AvatarURL           string        `gorm:"type:text;not null;default:''"                  json:"avatar_url"`
	Role                access.Role   `gorm:"type:varchar(20);not null;default:''"           json:"role"`
	Status              access.Status `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	ManagerID           *string       `gorm:"type:uuid"                                      json:"manager_id,omitempty"`
	InviteCodes         InviteCodeMap `gorm:"type:jsonb;not null;default:'{}'"               json:"invite_codes"`
	DataSourceManagerID *string       `gorm:"type:uuid"                                      json:"data_source_manager_id,omitempty"`
	SignupCompletedAt   *time.Time    `json:"signup_completed_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// Actor 转换为权限判断视图
func (u *User) Actor() *access.Actor {
	if u == nil {
		return nil
	}
	return &access.Actor{
		ID:                  u.UserID,
		Role:                u.Role,
		Status:              u.Status,
		ManagerID:           StringValue(u.ManagerID),
		DataSourceManagerID: StringValue(u.DataSourceManagerID),
	}
}

// Name 展示名：优先昵称
func (u *User) Name() string {
	if n := StringValue(u.Nickname); n != "" {
		return n
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// SignedUp 是否已提交注册资料
func (u *User) SignedUp() bool {
	return u.SignupCompletedAt != nil
}

// Codes 当前持有的邀请码映射
func (u *User) Codes() map[string]string {
	if m := u.InviteCodes.Data(); m != nil {
		return m
	}
	return map[string]string{}
}

// SetCodes 覆盖邀请码映射
func (u *User) SetCodes(codes map[string]string) {
	u.InviteCodes = datatypes.NewJSONType(codes)
}
