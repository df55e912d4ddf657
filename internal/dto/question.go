package dto

import (
	"encoding/json"
	"time"

	"exam-bank/backend/internal/model"
)

// ── 题目模块 DTO ──

// CreateQuestionRequest 创建题目请求
type CreateQuestionRequest struct {
	Content         string   `json:"content"          binding:"required"`
	QType           string   `json:"q_type"           binding:"required,question_type"`
	Options         []string `json:"options"`
	Answer          string   `json:"answer"`
	Analysis        string   `json:"analysis"`
	Difficulty      int      `json:"difficulty"       binding:"omitempty,min=1,max=5"` // 缺省为 1
	Tags            []string `json:"tags"`
	Score           *float64 `json:"score"            binding:"omitempty,gte=0"` // 缺省为 1.0
	SourceDoc       *string  `json:"source_doc"`
	PageNum         *int     `json:"page_num"`
	ChapterNum      *string  `json:"chapter_num"`
	ClauseNum       *string  `json:"clause_num"`
	KnowledgePoints []string `json:"knowledge_points"`
	Status          string   `json:"status"           binding:"omitempty,question_status"` // 缺省为 draft
}

// UpdateQuestionRequest 部分更新题目，nil 字段保持不变
type UpdateQuestionRequest struct {
	Content         *string  `json:"content"          binding:"omitempty,min=1"`
	QType           *string  `json:"q_type"           binding:"omitempty,question_type"`
	Options         []string `json:"options"`
	Answer          *string  `json:"answer"`
	Analysis        *string  `json:"analysis"`
	Difficulty      *int     `json:"difficulty"       binding:"omitempty,min=1,max=5"`
	Tags            []string `json:"tags"`
	Score           *float64 `json:"score"            binding:"omitempty,gte=0"`
	SourceDoc       *string  `json:"source_doc"`
	PageNum         *int     `json:"page_num"`
	ChapterNum      *string  `json:"chapter_num"`
	ClauseNum       *string  `json:"clause_num"`
	KnowledgePoints []string `json:"knowledge_points"`
	Status          *string  `json:"status"           binding:"omitempty,question_status"`
}

// QuestionListRequest 题目列表查询参数
// review_status 与 status 等价，二者同时出现时以 review_status 为准
type QuestionListRequest struct {
	PaginationRequest
	QType        string `form:"q_type"`
	Difficulty   *int   `form:"difficulty"    binding:"omitempty,min=1,max=5"`
	Status       string `form:"status"`
	ReviewStatus string `form:"review_status"`
	SourceDoc    string `form:"source_doc"`
	Search       string `form:"search"`
	Tag          string `form:"tag"`
}

// ReviewRequest 审核请求
type ReviewRequest struct {
	Status   string  `json:"status"   binding:"required,review_status"`
	Comment  *string `json:"comment"`
	Reviewer string  `json:"reviewer"` // 缺省取当前登录用户
}

// CheckDuplicateRequest 相似题检测请求
type CheckDuplicateRequest struct {
	Content   string  `json:"content"   binding:"required"`
	Threshold float64 `json:"threshold" binding:"omitempty,gte=0,lte=1"`
}

// CheckDuplicateResponse 相似题检测响应
type CheckDuplicateResponse struct {
	SimilarQuestions []QuestionResponse `json:"similar_questions"`
}

// ── 批量操作 ──

// 批量动作
const (
	BatchActionDelete           = "delete"
	BatchActionUpdateStatus     = "update_status"
	BatchActionUpdateDifficulty = "update_difficulty"
	BatchActionUpdateTags       = "update_tags"
)

// BatchItem 逐条审核项，Value 为目标状态
type BatchItem struct {
	ID      uint            `json:"id"      binding:"required"`
	Value   json.RawMessage `json:"value"`
	Comment *string         `json:"comment"`
}

// BatchRequest 批量操作请求
// items 存在时按逐条模式处理，否则使用 ids + value 的统一模式
type BatchRequest struct {
	Action  string          `json:"action"  binding:"required"`
	IDs     []uint          `json:"ids"`
	Items   []BatchItem     `json:"items"   binding:"omitempty,dive"`
	Value   json.RawMessage `json:"value"`
	Comment *string         `json:"comment"`
}

// BatchCreateRequest 批量创建请求
type BatchCreateRequest struct {
	Questions []CreateQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// ── 导入导出 ──

// ExportQuestionsRequest 题目导出参数（query）
type ExportQuestionsRequest struct {
	Format     string `form:"format"` // csv | xlsx，缺省 csv
	QType      string `form:"q_type"`
	Difficulty *int   `form:"difficulty"`
	Tag        string `form:"tag"`
	Status     string `form:"status"`
}

// 导入预览行状态
const (
	ImportRowValid     = "valid"
	ImportRowInvalid   = "invalid"
	ImportRowDuplicate = "duplicate"
	ImportRowError     = "error"
)

// ImportQuestionData 导入行解析出的题目字段
type ImportQuestionData struct {
	Content    string   `json:"content,omitempty"`
	QType      string   `json:"q_type"`
	Difficulty int      `json:"difficulty"`
	Options    []string `json:"options"`
	Answer     string   `json:"answer"`
	Tags       []string `json:"tags"`
	Analysis   *string  `json:"analysis"`
	SourceDoc  *string  `json:"source_doc"`
}

// ImportPreviewRow 导入预览中的一行
type ImportPreviewRow struct {
	RowIndex   int                `json:"row_index"`
	Status     string             `json:"status"`
	Errors     []string           `json:"errors"`
	Data       ImportQuestionData `json:"data"`
	ExistingID *uint              `json:"existing_id,omitempty"`
}

// ImportPreviewResponse 导入预览响应
type ImportPreviewResponse struct {
	Filename string             `json:"filename"`
	Total    int                `json:"total"`
	Items    []ImportPreviewRow `json:"items"`
}

// ImportResultResponse 导入提交结果
type ImportResultResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// ── 响应 ──

// QuestionResponse 题目详情
type QuestionResponse struct {
	ID              uint       `json:"id"`
	CustomID        *string    `json:"custom_id"`
	Content         string     `json:"content"`
	QType           string     `json:"q_type"`
	Options         []string   `json:"options"`
	Answer          string     `json:"answer"`
	Analysis        string     `json:"analysis"`
	Difficulty      int        `json:"difficulty"`
	Tags            []string   `json:"tags"`
	Score           float64    `json:"score"`
	SourceDoc       *string    `json:"source_doc"`
	PageNum         *int       `json:"page_num"`
	ChapterNum      *string    `json:"chapter_num"`
	ClauseNum       *string    `json:"clause_num"`
	KnowledgePoints []string   `json:"knowledge_points"`
	Status          string     `json:"status"`
	ReviewComment   *string    `json:"review_comment"`
	Reviewer        *string    `json:"reviewer"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewQuestionResponse 由模型构造响应
func NewQuestionResponse(q *model.Question) QuestionResponse {
	return QuestionResponse{
		ID:              q.ID,
		CustomID:        q.CustomID,
		Content:         q.Content,
		QType:           q.QType,
		Options:         nonNil(q.Options),
		Answer:          q.Answer,
		Analysis:        q.Analysis,
		Difficulty:      q.Difficulty,
		Tags:            nonNil(q.Tags),
		Score:           q.Score,
		SourceDoc:       q.SourceDoc,
		PageNum:         q.PageNum,
		ChapterNum:      q.ChapterNum,
		ClauseNum:       q.ClauseNum,
		KnowledgePoints: nonNil(q.KnowledgePoints),
		Status:          q.Status,
		ReviewComment:   q.ReviewComment,
		Reviewer:        q.Reviewer,
		ReviewedAt:      q.ReviewedAt,
		CreatedAt:       q.CreatedAt,
		UpdatedAt:       q.UpdatedAt,
	}
}

// NewQuestionResponses 批量转换
func NewQuestionResponses(qs []model.Question) []QuestionResponse {
	out := make([]QuestionResponse, 0, len(qs))
	for i := range qs {
		out = append(out, NewQuestionResponse(&qs[i]))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
