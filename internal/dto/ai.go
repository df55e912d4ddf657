package dto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ── AI 出题 DTO ──

// AIGenerateRequest AI 出题请求，各题型数量全为 0 时按 3 道单选处理
type AIGenerateRequest struct {
	Text              string `json:"text"                binding:"required"`
	Difficulty        int    `json:"difficulty"          binding:"omitempty,min=1,max=5"`
	SingleChoiceCount int    `json:"single_choice_count" binding:"omitempty,min=0,max=50"`
	MultiChoiceCount  int    `json:"multi_choice_count"  binding:"omitempty,min=0,max=50"`
	JudgeCount        int    `json:"judge_count"         binding:"omitempty,min=0,max=50"`
	EssayCount        int    `json:"essay_count"         binding:"omitempty,min=0,max=50"`
	TagL1             string `json:"tag_l1"`
	TagL2             string `json:"tag_l2"`
}

// GeneratedQuestion AI 生成的题目草稿（未入库）
type GeneratedQuestion struct {
	Content    string     `json:"content"`
	QType      string     `json:"q_type"`
	Options    []string   `json:"options"`
	Answer     FlexString `json:"answer"`
	Analysis   string     `json:"analysis"`
	Difficulty int        `json:"difficulty"`
	Tags       []string   `json:"tags"`
}

// FlexString 接受字符串、数字或数组，数组以 "," 连接
type FlexString string

// UnmarshalJSON 实现 json.Unmarshaler
func (f *FlexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var list []interface{}
	if err := json.Unmarshal(b, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, v := range list {
			parts = append(parts, fmt.Sprint(v))
		}
		*f = FlexString(strings.Join(parts, ","))
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == nil {
		*f = ""
		return nil
	}
	*f = FlexString(fmt.Sprint(v))
	return nil
}

// ParseFileResponse 文件解析结果
type ParseFileResponse struct {
	Text string `json:"text"`
}
