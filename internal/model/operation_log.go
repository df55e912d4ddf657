package model

import (
	"time"

	"gorm.io/datatypes"
)

// 操作日志状态
const (
	LogStatusSuccess = "success"
	LogStatusFailed  = "failed"
)

// 操作对象类型
const (
	TargetQuestion = "question"
	TargetTag      = "tag"
	TargetRule     = "rule"
	TargetPaper    = "paper"
)

// OperationLog 操作日志表，对应 operation_logs（只追加，不修改不删除）
type OperationLog struct {
	ID           uint                      `gorm:"primaryKey"                                json:"id"`
	UserID       string                    `gorm:"type:varchar(64)"                          json:"user_id"`
	Action       string                    `gorm:"type:varchar(64);not null;index"           json:"action"`
	TargetType   string                    `gorm:"type:varchar(32);not null"                 json:"target_type"`
	TargetIDs    datatypes.JSONSlice[uint] `json:"target_ids,omitempty"`
	Details      datatypes.JSONMap         `json:"details,omitempty"`
	Status       string                    `gorm:"type:varchar(16);not null;default:success" json:"status"`
	ErrorMessage *string                   `gorm:"type:text"                                 json:"error_message,omitempty"`
	CreatedAt    time.Time                 `gorm:"not null;default:CURRENT_TIMESTAMP;index"  json:"created_at"`
}

// TableName 指定表名
func (OperationLog) TableName() string { return "operation_logs" }
