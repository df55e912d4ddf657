package assembly

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"exam-bank/backend/internal/model"
)

// ── 规则配置错误 ──

var (
	ErrNegativeCount   = errors.New("题型目标数量不能为负数")
	ErrRatioOutOfRange = errors.New("难度比例必须在 0 到 1 之间")
	ErrInvalidLevel    = errors.New("难度等级必须为整数")
)

// TypeQuota 单个题型的目标数量
type TypeQuota struct {
	Type  string
	Count int
}

// DifficultyRatio 单个难度等级的目标比例
type DifficultyRatio struct {
	Level string
	Ratio float64
}

// TypeDistribution 题型 → 目标数量，保留 JSON 中的键顺序（决定输出顺序）
type TypeDistribution []TypeQuota

// DifficultyDistribution 难度等级 → 比例，保留 JSON 中的键顺序
type DifficultyDistribution []DifficultyRatio

// RuleConfig 组卷规则配置
//
//	{
//	  "type_distribution": {"single": 5, "multi": 2, "judge": 3},
//	  "difficulty_distribution": {"1": 0.2, "2": 0.5, "3": 0.3},
//	  "tags": ["网络"]
//	}
type RuleConfig struct {
	TypeDistribution       TypeDistribution       `json:"type_distribution"`
	DifficultyDistribution DifficultyDistribution `json:"difficulty_distribution"`
	Tags                   []string               `json:"tags,omitempty"`
}

// ParseRuleConfig 从原始 JSON 解析规则配置，未识别的键忽略
func ParseRuleConfig(raw []byte) (RuleConfig, error) {
	var cfg RuleConfig
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return RuleConfig{}, fmt.Errorf("解析组卷规则失败: %w", err)
	}
	return cfg, nil
}

// Validate 校验数量与比例
// 未知题型不在此拒绝：题池中没有该题型的题目，引擎会直接跳过
func (c RuleConfig) Validate() error {
	for _, q := range c.TypeDistribution {
		if q.Count < 0 {
			return fmt.Errorf("%w: %s=%d", ErrNegativeCount, q.Type, q.Count)
		}
	}
	for _, d := range c.DifficultyDistribution {
		if _, err := strconv.Atoi(d.Level); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidLevel, d.Level)
		}
		if d.Ratio < 0 || d.Ratio > 1 || math.IsNaN(d.Ratio) {
			return fmt.Errorf("%w: %s=%v", ErrRatioOutOfRange, d.Level, d.Ratio)
		}
	}
	return nil
}

// UnknownTypes 题型分布中不属于已知题型的键，按出现顺序返回
func (c RuleConfig) UnknownTypes() []string {
	var unknown []string
	for _, q := range c.TypeDistribution {
		if !model.IsValidQuestionType(q.Type) {
			unknown = append(unknown, q.Type)
		}
	}
	return unknown
}

// TotalRequested 所有题型的目标总数
func (c RuleConfig) TotalRequested() int {
	total := 0
	for _, q := range c.TypeDistribution {
		if q.Count > 0 {
			total += q.Count
		}
	}
	return total
}

// ── JSON 编解码（保序） ──

type orderedEntry struct {
	key   string
	value json.RawMessage
}

// decodeOrderedObject 按出现顺序读取 JSON 对象的键值；重复键以后者为准但保留首次位置
func decodeOrderedObject(data []byte) ([]orderedEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("期望 JSON 对象")
	}

	var entries []orderedEntry
	pos := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("JSON 对象键必须为字符串")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		if i, seen := pos[key]; seen {
			entries[i].value = raw
			continue
		}
		pos[key] = len(entries)
		entries = append(entries, orderedEntry{key: key, value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

func encodeOrderedObject(n int, entry func(i int) (string, interface{})) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, v := entry(i)
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 解析题型分布，数量必须为整数
func (d *TypeDistribution) UnmarshalJSON(data []byte) error {
	entries, err := decodeOrderedObject(data)
	if err != nil {
		return fmt.Errorf("type_distribution: %w", err)
	}
	out := make(TypeDistribution, 0, len(entries))
	for _, e := range entries {
		var n float64
		if err := json.Unmarshal(e.value, &n); err != nil {
			return fmt.Errorf("type_distribution.%s 必须为数字", e.key)
		}
		if n != math.Trunc(n) {
			return fmt.Errorf("type_distribution.%s 必须为整数", e.key)
		}
		out = append(out, TypeQuota{Type: e.key, Count: int(n)})
	}
	*d = out
	return nil
}

// MarshalJSON 按原顺序输出题型分布
func (d TypeDistribution) MarshalJSON() ([]byte, error) {
	return encodeOrderedObject(len(d), func(i int) (string, interface{}) {
		return d[i].Type, d[i].Count
	})
}

// UnmarshalJSON 解析难度分布
func (d *DifficultyDistribution) UnmarshalJSON(data []byte) error {
	entries, err := decodeOrderedObject(data)
	if err != nil {
		return fmt.Errorf("difficulty_distribution: %w", err)
	}
	out := make(DifficultyDistribution, 0, len(entries))
	for _, e := range entries {
		var r float64
		if err := json.Unmarshal(e.value, &r); err != nil {
			return fmt.Errorf("difficulty_distribution.%s 必须为数字", e.key)
		}
		out = append(out, DifficultyRatio{Level: e.key, Ratio: r})
	}
	*d = out
	return nil
}

// MarshalJSON 按原顺序输出难度分布
func (d DifficultyDistribution) MarshalJSON() ([]byte, error) {
	return encodeOrderedObject(len(d), func(i int) (string, interface{}) {
		return d[i].Level, d[i].Ratio
	})
}
