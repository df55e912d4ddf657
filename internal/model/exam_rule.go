package model

import "gorm.io/datatypes"

// ExamRule 组卷规则表，对应 exam_rules
// Config 保存原始 JSON，识别的键见 assembly.RuleConfig，其余键原样保留
type ExamRule struct {
	ID         uint           `gorm:"primaryKey"                 json:"id"`
	Name       string         `gorm:"type:varchar(100);not null" json:"name"`
	TotalScore float64        `gorm:"not null;default:100"       json:"total_score"`
	Config     datatypes.JSON `gorm:"not null"                   json:"config"`
	Version    int            `gorm:"not null;default:1"         json:"version"`
	Timestamps
}

// TableName 指定表名
func (ExamRule) TableName() string { return "exam_rules" }
