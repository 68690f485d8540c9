package model

import "time"

// BaseModel 通用审计字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// StringValue 解引用可空字符串
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr 空串返回 nil
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
