package model

import (
	"time"

	"watch-reserve/backend/internal/catalog"
)

// WatchStatus 作用域内单个型号的买入状态，对应 watch_statuses
type WatchStatus struct {
	ScopeID     string         `gorm:"type:varchar(64);primaryKey"            json:"scope_id"`
	ModelNumber string         `gorm:"type:varchar(64);primaryKey"            json:"model_number"`
	Status      catalog.Status `gorm:"type:varchar(10);not null;default:'no'" json:"status"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"     json:"updated_at"`
	UpdatedBy   *string        `gorm:"type:uuid"                              json:"updated_by,omitempty"`
}

// TableName 指定表名
func (WatchStatus) TableName() string { return "watch_statuses" }

// WatchStatusLog 状态变更日志（只增不改），对应 watch_status_logs
type WatchStatusLog struct {
	LogID          string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"log_id"`
	ScopeID        string         `gorm:"type:varchar(64);not null"                      json:"scope_id"`
	ModelNumber    string         `gorm:"type:varchar(64);not null"                      json:"model_number"`
	PreviousStatus catalog.Status `gorm:"type:varchar(10);not null"                      json:"previous_status"`
	NewStatus      catalog.Status `gorm:"type:varchar(10);not null"                      json:"new_status"`
	ActorID        string         `gorm:"type:uuid;not null"                             json:"actor_id"`
	ActorName      string         `gorm:"type:varchar(100);not null;default:''"          json:"actor_name"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (WatchStatusLog) TableName() string { return "watch_status_logs" }
