package dto

import "encoding/json"

// ── 组卷规则 DTO ──

// CreateRuleRequest 创建组卷规则
type CreateRuleRequest struct {
	Name       string          `json:"name"        binding:"required,max=100"`
	TotalScore *float64        `json:"total_score" binding:"omitempty,gt=0"` // 缺省 100
	Config     json.RawMessage `json:"config"      binding:"required"`
}

// UpdateRuleRequest 部分更新组卷规则
// Version 必须等于当前版本，否则返回冲突
type UpdateRuleRequest struct {
	Name       *string         `json:"name"        binding:"omitempty,min=1,max=100"`
	TotalScore *float64        `json:"total_score" binding:"omitempty,gt=0"`
	Config     json.RawMessage `json:"config"`
	Version    int             `json:"version"     binding:"required,min=1"`
}
