package model

import "time"

// ── 题型 ──

const (
	QuestionTypeSingle = "single"
	QuestionTypeMulti  = "multi"
	QuestionTypeJudge  = "judge"
	QuestionTypeEssay  = "essay"
)

// QuestionTypes 合法题型（按常规组卷顺序）
var QuestionTypes = []string{QuestionTypeSingle, QuestionTypeMulti, QuestionTypeJudge, QuestionTypeEssay}

// IsValidQuestionType 判断题型是否合法
func IsValidQuestionType(t string) bool {
	for _, v := range QuestionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsChoiceType 单选/多选题才有选项
func IsChoiceType(t string) bool {
	return t == QuestionTypeSingle || t == QuestionTypeMulti
}

// ── 题目状态 ──

const (
	StatusDraft     = "draft"
	StatusReview    = "review"
	StatusPublished = "published"
	StatusArchived  = "archived"
	StatusDisabled  = "disabled"
)

// QuestionStatuses 题目全部生命周期状态
var QuestionStatuses = []string{StatusDraft, StatusReview, StatusPublished, StatusArchived, StatusDisabled}

// ReviewStatuses 审核操作允许设置的目标状态（不含 archived）
var ReviewStatuses = []string{StatusPublished, StatusReview, StatusDraft, StatusDisabled}

// IsValidStatus 判断题目状态是否合法
func IsValidStatus(s string) bool {
	return contains(QuestionStatuses, s)
}

// IsValidReviewStatus 判断审核目标状态是否合法
func IsValidReviewStatus(s string) bool {
	return contains(ReviewStatuses, s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Timestamps 通用时间字段（所有业务模型嵌入）
type Timestamps struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// AllModels 返回需要建表的全部模型，供 sqlite 自动迁移使用
func AllModels() []interface{} {
	return []interface{}{
		&Question{},
		&Tag{},
		&ExamRule{},
		&ExamPaper{},
		&OperationLog{},
		&IDSequence{},
	}
}
