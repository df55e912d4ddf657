package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/service"
	"exam-bank/backend/pkg/response"
)

// QuestionHandler 题目模块 HTTP 处理器
type QuestionHandler struct {
	questionSvc service.QuestionService
}

// NewQuestionHandler 创建 QuestionHandler
func NewQuestionHandler(questionSvc service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionSvc: questionSvc}
}

// ────────────────────── CRUD ──────────────────────

// CreateQuestion 创建题目
// POST /api/v1/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req dto.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	q, err := h.questionSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.Created(c, q)
}

// ListQuestions 题目列表（分页 + 筛选）
// GET /api/v1/questions
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	var req dto.QuestionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.questionSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetQuestion 题目详情
// GET /api/v1/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	q, err := h.questionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, q)
}

// UpdateQuestion 部分更新题目
// PUT /api/v1/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	var req dto.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	q, err := h.questionSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, q)
}

// DeleteQuestion 删除题目，返回被删除的题目
// DELETE /api/v1/questions/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	q, err := h.questionSvc.Delete(c.Request.Context(), id)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, q)
}

// ReviewQuestion 审核题目
// POST /api/v1/questions/:id/review
func (h *QuestionHandler) ReviewQuestion(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	q, err := h.questionSvc.Review(c.Request.Context(), id, &req, CurrentOperator(c))
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, q)
}

// CheckDuplicate 相似题检测（当前总是返回空列表）
// POST /api/v1/questions/check_duplicate
func (h *QuestionHandler) CheckDuplicate(c *gin.Context) {
	var req dto.CheckDuplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.questionSvc.CheckDuplicate(c.Request.Context(), &req)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, result)
}

// ────────────────────── 批量 ──────────────────────

// Batch 批量删除 / 改状态 / 改难度 / 改标签
// POST /api/v1/questions/batch
func (h *QuestionHandler) Batch(c *gin.Context) {
	var req dto.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.questionSvc.Batch(c.Request.Context(), &req, CurrentOperator(c))
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, result)
}

// BatchCreate 批量创建，逐条独立，部分失败仍返回 200
// POST /api/v1/questions/batch_create
// 请求体可以是题目数组，也可以是 {"questions": [...]}
func (h *QuestionHandler) BatchCreate(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, 10001, "读取请求体失败")
		return
	}

	var req dto.BatchCreateRequest
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err = binding.JSON.BindBody(trimmed, &req.Questions)
		if err == nil {
			err = binding.Validator.ValidateStruct(&req)
		}
	} else {
		err = binding.JSON.BindBody(raw, &req)
	}
	if err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.questionSvc.BatchCreate(c.Request.Context(), req.Questions, CurrentOperator(c))
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, result)
}

// ────────────────────── 导入导出 ──────────────────────

// ExportQuestions 按条件导出题目（CSV / XLSX）
// POST /api/v1/questions/export?format=csv&q_type=&difficulty=&tag=&status=
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	var req dto.ExportQuestionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	file, err := h.questionSvc.Export(c.Request.Context(), &req, CurrentOperator(c))
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.File(c, file.Filename, file.ContentType, file.Data)
}

// ParseImport 导入预览，不写库
// POST /api/v1/questions/parse_import (multipart, file)
func (h *QuestionHandler) ParseImport(c *gin.Context) {
	filename, data, ok := MustReadUpload(c)
	if !ok {
		return
	}

	result, err := h.questionSvc.ParseImport(c.Request.Context(), filename, data)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, result)
}

// Import 导入提交
// POST /api/v1/questions/import (multipart, file)
func (h *QuestionHandler) Import(c *gin.Context) {
	filename, data, ok := MustReadUpload(c)
	if !ok {
		return
	}

	result, err := h.questionSvc.Import(c.Request.Context(), filename, data, CurrentOperator(c))
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	response.OK(c, result)
}

// handleQuestionError 统一处理题目模块业务错误
func (h *QuestionHandler) handleQuestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuestionNotFound):
		response.NotFound(c, 21001, "题目不存在")
	case errors.Is(err, service.ErrDuplicateQuestion):
		response.Conflict(c, 21002, err.Error())
	case errors.Is(err, service.ErrInvalidQuestionType):
		response.BadRequest(c, 21003, err.Error())
	case errors.Is(err, service.ErrInvalidStatus):
		response.BadRequest(c, 21004, "题目状态无效")
	case errors.Is(err, service.ErrInvalidReviewStatus):
		response.BadRequest(c, 21005, "审核状态无效")
	case errors.Is(err, service.ErrInvalidDifficulty):
		response.BadRequest(c, 21006, "难度必须在 1 到 5 之间")
	case errors.Is(err, service.ErrEmptyContent):
		response.BadRequest(c, 21007, "题干不能为空")
	case errors.Is(err, service.ErrBatchUnknownAction):
		response.BadRequest(c, 21010, "Unknown action")
	case errors.Is(err, service.ErrBatchNoIDs):
		response.BadRequest(c, 21011, err.Error())
	case errors.Is(err, service.ErrBatchInvalidParams):
		response.BadRequest(c, 21012, "Invalid parameters")
	case errors.Is(err, service.ErrBatchValueRequired):
		response.BadRequest(c, 21013, err.Error())
	case errors.Is(err, service.ErrBatchTagsNotList):
		response.BadRequest(c, 21014, err.Error())
	case errors.Is(err, service.ErrUnsupportedImport):
		response.BadRequest(c, 21020, "仅支持 .csv 或 .xlsx 文件")
	case errors.Is(err, service.ErrImportParseFailed):
		response.BadRequest(c, 21021, err.Error())
	case errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, 21022, err.Error())
	case errors.Is(err, service.ErrUnsupportedExportFmt):
		response.BadRequest(c, 21030, "仅支持 csv 或 xlsx 格式")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, 50000, "服务器内部错误")
	}
}
