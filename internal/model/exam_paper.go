package model

import (
	"time"

	"gorm.io/datatypes"
)

// ExamPaper 试卷表，对应 exam_papers
// 创建后不再修改，题目以快照形式保存
type ExamPaper struct {
	ID                uint                                  `gorm:"primaryKey"                        json:"id"`
	Title             string                                `gorm:"type:varchar(200);not null"        json:"title"`
	RuleID            *uint                                 `gorm:"index"                             json:"rule_id,omitempty"`
	QuestionsSnapshot datatypes.JSONSlice[QuestionSnapshot] `gorm:"not null"                          json:"questions_snapshot"`
	CreatedAt         time.Time                             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName 指定表名
func (ExamPaper) TableName() string { return "exam_papers" }
