package model

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Question 题目表，对应 questions
type Question struct {
	ID              uint                        `gorm:"primaryKey"                               json:"id"`
	CustomID        *string                     `gorm:"type:varchar(32);uniqueIndex"             json:"custom_id,omitempty"`
	ContentHash     string                      `gorm:"type:varchar(32);not null;uniqueIndex"    json:"content_hash"`
	Content         string                      `gorm:"type:text;not null"                       json:"content"`
	QType           string                      `gorm:"column:q_type;type:varchar(16);not null;index" json:"q_type"`
	Options         datatypes.JSONSlice[string] `json:"options,omitempty"`
	Answer          string                      `gorm:"type:text"                                json:"answer"`
	Analysis        string                      `gorm:"type:text"                                json:"analysis,omitempty"`
	Difficulty      int                         `gorm:"not null;default:1;index"                 json:"difficulty"`
	Tags            datatypes.JSONSlice[string] `json:"tags,omitempty"`
	Score           float64                     `gorm:"not null;default:1"                       json:"score"`
	SourceDoc       *string                     `gorm:"type:varchar(255);index"                  json:"source_doc,omitempty"`
	PageNum         *int                        `json:"page_num,omitempty"`
	ChapterNum      *string                     `gorm:"type:varchar(64)"                         json:"chapter_num,omitempty"`
	ClauseNum       *string                     `gorm:"type:varchar(64)"                         json:"clause_num,omitempty"`
	KnowledgePoints datatypes.JSONSlice[string] `json:"knowledge_points,omitempty"`
	Status          string                      `gorm:"type:varchar(16);not null;default:draft;index" json:"status"`
	ReviewComment   *string                     `gorm:"type:text"                                json:"review_comment,omitempty"`
	Reviewer        *string                     `gorm:"type:varchar(64)"                         json:"reviewer,omitempty"`
	ReviewedAt      *time.Time                  `json:"reviewed_at,omitempty"`
	Timestamps
}

// TableName 指定表名
func (Question) TableName() string { return "questions" }

// HasTag 判断题目是否带有指定标签
func (q *Question) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// DisplayID 优先返回自定义编号
func (q *Question) DisplayID() string {
	if q.CustomID != nil && *q.CustomID != "" {
		return *q.CustomID
	}
	return strconv.FormatUint(uint64(q.ID), 10)
}

// ContentFingerprint 题干指纹：去除首尾空白后的 MD5（区分大小写）
func ContentFingerprint(content string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])
}

// ── 试卷快照 ──

// QuestionSnapshot 组卷时冻结的题目副本，与题库后续修改无关
type QuestionSnapshot struct {
	ID         uint     `json:"id"`
	Content    string   `json:"content"`
	QType      string   `json:"q_type"`
	Options    []string `json:"options"`
	Answer     string   `json:"answer"`
	Analysis   string   `json:"analysis"`
	Score      float64  `json:"score"`
	Difficulty int      `json:"difficulty"`
	Tags       []string `json:"tags"`
}

// Snapshot 深拷贝题目字段
func (q *Question) Snapshot() QuestionSnapshot {
	return QuestionSnapshot{
		ID:         q.ID,
		Content:    q.Content,
		QType:      q.QType,
		Options:    append([]string(nil), q.Options...),
		Answer:     q.Answer,
		Analysis:   q.Analysis,
		Score:      q.Score,
		Difficulty: q.Difficulty,
		Tags:       append([]string(nil), q.Tags...),
	}
}
