package dto

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ── 批量结果 ──

// BatchCreateResult 批量创建结果：成功的题目 + 逐条错误
type BatchCreateResult struct {
	Created []QuestionResponse `json:"created"`
	Errors  []string           `json:"errors"`
}

// BatchResult 批量操作结果
type BatchResult struct {
	Action   string `json:"action"`
	Affected int64  `json:"affected"`
	Message  string `json:"message"`
}
