package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/service"
	"exam-bank/backend/pkg/response"
)

// TagHandler 标签模块 HTTP 处理器
type TagHandler struct {
	tagSvc service.TagService
}

// NewTagHandler 创建 TagHandler
func NewTagHandler(tagSvc service.TagService) *TagHandler {
	return &TagHandler{tagSvc: tagSvc}
}

// ListTags 标签平铺列表
// GET /api/v1/tags
func (h *TagHandler) ListTags(c *gin.Context) {
	tags, err := h.tagSvc.List(c.Request.Context())
	if err != nil {
		h.handleTagError(c, err)
		return
	}
	response.OK(c, tags)
}

// TagTree 标签树
// GET /api/v1/tags/tree
func (h *TagHandler) TagTree(c *gin.Context) {
	tree, err := h.tagSvc.Tree(c.Request.Context())
	if err != nil {
		h.handleTagError(c, err)
		return
	}
	response.OK(c, tree)
}

// CreateTag 创建标签
// POST /api/v1/tags
func (h *TagHandler) CreateTag(c *gin.Context) {
	var req dto.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	tag, err := h.tagSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleTagError(c, err)
		return
	}
	response.Created(c, tag)
}

// UpdateTag 更新标签
// PUT /api/v1/tags/:id
func (h *TagHandler) UpdateTag(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	var req dto.UpdateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	tag, err := h.tagSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleTagError(c, err)
		return
	}
	response.OK(c, tag)
}

// DeleteTag 删除标签
// DELETE /api/v1/tags/:id
func (h *TagHandler) DeleteTag(c *gin.Context) {
	id, ok := MustGetID(c)
	if !ok {
		return
	}

	tag, err := h.tagSvc.Delete(c.Request.Context(), id)
	if err != nil {
		h.handleTagError(c, err)
		return
	}
	response.OK(c, tag)
}

func (h *TagHandler) handleTagError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTagNotFound):
		response.NotFound(c, 22001, err.Error())
	case errors.Is(err, service.ErrTagNameExists):
		response.Conflict(c, 22002, err.Error())
	case errors.Is(err, service.ErrTagNameEmpty):
		response.BadRequest(c, 22003, err.Error())
	case errors.Is(err, service.ErrTagHasChildren):
		response.Conflict(c, 22004, err.Error())
	case errors.Is(err, service.ErrParentTagNotFound):
		response.BadRequest(c, 22005, err.Error())
	case errors.Is(err, service.ErrTagCycle):
		response.BadRequest(c, 22006, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
