package dto

// ── 标签模块 DTO ──

// CreateTagRequest 创建标签请求
type CreateTagRequest struct {
	Name     string `json:"name"      binding:"required,max=64"`
	ParentID *uint  `json:"parent_id"`
}

// UpdateTagRequest 更新标签请求
// ClearParent=true 时将标签提升为根节点（parent_id 置空）
type UpdateTagRequest struct {
	Name        *string `json:"name"         binding:"omitempty,min=1,max=64"`
	ParentID    *uint   `json:"parent_id"`
	ClearParent bool    `json:"clear_parent"`
}

// TagTreeNode 标签树节点
type TagTreeNode struct {
	ID       uint           `json:"id"`
	Name     string         `json:"name"`
	ParentID *uint          `json:"parent_id,omitempty"`
	Children []*TagTreeNode `json:"children"`
}
