package handler

import (
	"github.com/gin-gonic/gin"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/service"
	"exam-bank/backend/pkg/response"
)

// LogHandler 操作日志查询
type LogHandler struct {
	logSvc service.LogService
}

// NewLogHandler 创建 LogHandler
func NewLogHandler(logSvc service.LogService) *LogHandler {
	return &LogHandler{logSvc: logSvc}
}

// ListLogs 操作日志，按时间倒序
// GET /api/v1/logs?action=&target_type=&page=&page_size=
func (h *LogHandler) ListLogs(c *gin.Context) {
	var req dto.LogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	logs, total, err := h.logSvc.List(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}
	response.OKPage(c, logs, total, req.GetPage(), req.GetPageSize())
}
