package dto

// LogListRequest 操作日志查询参数
type LogListRequest struct {
	PaginationRequest
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
}
