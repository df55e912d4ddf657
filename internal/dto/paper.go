package dto

import "encoding/json"

// ── 试卷模块 DTO ──

// GeneratePaperRequest 组卷请求
// rule_config 缺省时使用 rule_id 对应规则的配置
type GeneratePaperRequest struct {
	Title      string          `json:"title"       binding:"required,min=1,max=200"`
	RuleID     *uint           `json:"rule_id"`
	RuleConfig json.RawMessage `json:"rule_config"`
}

// ExportPaperRequest 试卷导出参数（query）
type ExportPaperRequest struct {
	Format         string `form:"format"`          // docx | pdf | txt，缺省 docx
	IncludeAnswers *bool  `form:"include_answers"` // 缺省 true
}

// ExportFile 导出文件
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}
