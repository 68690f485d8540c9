package model

import (
	"time"

	"watch-reserve/backend/internal/access"
)

// InviteCode 邀请码表，对应 invite_codes
// 发码人信息冗余存储，展示时无需关联查询
type InviteCode struct {
	Code          string      `gorm:"type:varchar(6);primaryKey"              json:"code"`
	OwnerID       string      `gorm:"type:uuid;not null"                      json:"owner_id"`
	Role          access.Role `gorm:"type:varchar(20);not null"               json:"role"`
	ManagerID     *string     `gorm:"type:uuid"                               json:"manager_id,omitempty"`
	Active        bool        `gorm:"not null;default:true"                   json:"active"`
	IssuerName    string      `gorm:"type:varchar(100);not null;default:''"   json:"issuer_name"`
	IssuerEmail   string      `gorm:"type:varchar(255);not null;default:''"   json:"issuer_email"`
	CreatedAt     time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP"      json:"created_at"`
	DeactivatedAt *time.Time  `json:"deactivated_at,omitempty"`
}

// TableName 指定表名
func (InviteCode) TableName() string { return "invite_codes" }
