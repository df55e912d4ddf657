package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/service"
	"exam-bank/backend/pkg/response"
)

// RuleHandler 组卷规则 HTTP 处理器
type RuleHandler struct {
	ruleSvc service.RuleService
}

// NewRuleHandler 创建 RuleHandler
func NewRuleHandler(ruleSvc service.RuleService) *RuleHandler {
	return &RuleHandler{ruleSvc: ruleSvc}
}

// CreateRule 创建规则
// POST /api/v1/rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req dto.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	rule, err := h.ruleSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleRuleError(c, err)
		return
	}
	response.Created(c, rule)
}

// ListRules 规则列表
// GET /api/v1/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.ruleSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleRuleError(c, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetRule 规则详情
// GET /api/v1/rules/:id
func (h *RuleHandler) GetRule(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	rule, err := h.ruleSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleRuleError(c, err)
		return
	}
	response.OK(c, rule)
}

// UpdateRule 更新规则（乐观锁，需携带 version）
// PUT /api/v1/rules/:id
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	var req dto.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	rule, err := h.ruleSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		handleRuleError(c, err)
		return
	}
	response.OK(c, rule)
}

// DeleteRule 删除规则
// DELETE /api/v1/rules/:id
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	rule, err := h.ruleSvc.Delete(c.Request.Context(), id)
	if err != nil {
		handleRuleError(c, err)
		return
	}
	response.OK(c, rule)
}

// handleRuleError 规则错误映射，组卷时引用不存在的规则也走这里
func handleRuleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRuleNotFound):
		response.NotFound(c, 23001, err.Error())
	case errors.Is(err, service.ErrRuleInvalidConfig):
		response.BadRequest(c, 23002, err.Error())
	case errors.Is(err, service.ErrRuleNameEmpty):
		response.BadRequest(c, 23003, err.Error())
	case errors.Is(err, service.ErrRuleVersionStale):
		response.Conflict(c, 23004, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
