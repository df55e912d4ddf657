package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/exporter"
	"exam-bank/backend/internal/service"
	"exam-bank/backend/pkg/response"
)

// PaperHandler 试卷模块 HTTP 处理器
type PaperHandler struct {
	paperSvc service.PaperService
}

// NewPaperHandler 创建 PaperHandler
func NewPaperHandler(paperSvc service.PaperService) *PaperHandler {
	return &PaperHandler{paperSvc: paperSvc}
}

// GeneratePaper 按规则组卷
// POST /api/v1/papers/generate
func (h *PaperHandler) GeneratePaper(c *gin.Context) {
	var req dto.GeneratePaperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	paper, err := h.paperSvc.Generate(c.Request.Context(), &req, CurrentOperator(c))
	if err != nil {
		h.handlePaperError(c, err)
		return
	}
	response.Created(c, paper)
}

// ListPapers 试卷列表
// GET /api/v1/papers
func (h *PaperHandler) ListPapers(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.paperSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handlePaperError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetPaper 试卷详情（含题目快照）
// GET /api/v1/papers/:id
func (h *PaperHandler) GetPaper(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	paper, err := h.paperSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handlePaperError(c, err)
		return
	}
	response.OK(c, paper)
}

// ExportPaper 导出试卷
// GET /api/v1/papers/:id/export?format=docx&include_answers=true
func (h *PaperHandler) ExportPaper(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	var req dto.ExportPaperRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	includeAnswers := true
	if req.IncludeAnswers != nil {
		includeAnswers = *req.IncludeAnswers
	}

	file, err := h.paperSvc.Export(c.Request.Context(), id, req.Format, includeAnswers)
	if err != nil {
		h.handlePaperError(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}

func (h *PaperHandler) handlePaperError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPaperNotFound):
		response.NotFound(c, 24001, err.Error())
	case errors.Is(err, service.ErrPaperNoQuestions):
		response.BadRequest(c, 24002, err.Error())
	case errors.Is(err, service.ErrPaperNoConfig):
		response.BadRequest(c, 24003, err.Error())
	case errors.Is(err, service.ErrPaperInvalidConfig):
		response.BadRequest(c, 24004, err.Error())
	case errors.Is(err, exporter.ErrUnsupportedFormat):
		response.BadRequest(c, 24005, err.Error())
	default:
		handleRuleError(c, err)
	}
}
