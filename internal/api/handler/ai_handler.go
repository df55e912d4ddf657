package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/service"
	"exam-bank/backend/pkg/response"
)

// AIHandler AI 辅助出题 HTTP 处理器
type AIHandler struct {
	aiSvc  service.AIService
	parser service.FileParser
}

// NewAIHandler 创建 AIHandler
func NewAIHandler(aiSvc service.AIService, parser service.FileParser) *AIHandler {
	return &AIHandler{aiSvc: aiSvc, parser: parser}
}

// ParseFile 上传文档并抽取纯文本
// POST /api/v1/ai/parse_file (multipart, file)
func (h *AIHandler) ParseFile(c *gin.Context) {
	filename, data, ok := MustReadUpload(c)
	if !ok {
		return
	}

	text, err := h.parser.Parse(filename, bytes.NewReader(data))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFile):
			response.BadRequest(c, 25001, err.Error())
		case errors.Is(err, service.ErrFileParse):
			response.BadRequest(c, 25002, err.Error())
		default:
			_ = c.Error(err)
			response.InternalError(c)
		}
		return
	}

	response.OK(c, dto.ParseFileResponse{Text: text})
}

// Generate 根据文本生成题目草稿
// POST /api/v1/ai/generate
func (h *AIHandler) Generate(c *gin.Context) {
	var req dto.AIGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	questions, err := h.aiSvc.Generate(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrAIGenerateFailed) {
			response.Error(c, http.StatusInternalServerError, 25003, err.Error())
			return
		}
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	response.OK(c, questions)
}
