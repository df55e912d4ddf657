package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"exam-bank/backend/config"
	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/model"
	"exam-bank/backend/pkg/llm"
	"exam-bank/backend/pkg/metrics"
)

// ErrAIGenerateFailed 模型调用或结果解析失败（仅在关闭失败屏蔽时返回）
var ErrAIGenerateFailed = errors.New("AI generation failed")

const (
	aiTemperature      = 0.7
	defaultAIInputRune = 3000
)

var (
	mockTags  = []string{"Mock数据", "需配置Key"}
	errorTags = []string{"系统错误"}
)

// AIService AI 出题业务接口，生成结果为草稿，不入库
type AIService interface {
	Generate(ctx context.Context, req *dto.AIGenerateRequest) ([]dto.GeneratedQuestion, error)
}

type aiService struct {
	cfg    *config.AIConfig
	llm    llm.Completer
	logger *zap.Logger
}

// NewAIService 创建 AIService 实例
// completer 为 nil（未配置 API Key）时返回固定的 Mock 题目
func NewAIService(cfg *config.AIConfig, completer llm.Completer, logger *zap.Logger) AIService {
	return &aiService{cfg: cfg, llm: completer, logger: logger}
}

// aiCounts 各题型数量
type aiCounts struct {
	single, multi, judge, essay int
}

func (c aiCounts) total() int { return c.single + c.multi + c.judge + c.essay }

// ═══════════════════════════════════════════════════════════
// Generate
// ═══════════════════════════════════════════════════════════

func (s *aiService) Generate(ctx context.Context, req *dto.AIGenerateRequest) ([]dto.GeneratedQuestion, error) {
	counts := aiCounts{
		single: req.SingleChoiceCount,
		multi:  req.MultiChoiceCount,
		judge:  req.JudgeCount,
		essay:  req.EssayCount,
	}
	if counts.total() == 0 {
		counts.single = 3
	}
	difficulty := req.Difficulty
	if difficulty == 0 {
		difficulty = 1
	}

	if s.llm == nil {
		s.logger.Info("未配置 AI API Key，使用 Mock 模式")
		metrics.AIRequests.WithLabelValues("mock").Inc()
		return applyTagOverrides(mockQuestions(req.Text, counts.total(), difficulty), req.TagL1, req.TagL2), nil
	}

	questions, err := s.callModel(ctx, req.Text, counts, difficulty)
	if err != nil {
		s.logger.Error("AI 调用失败",
			zap.String("base_url", s.cfg.BaseURL),
			zap.String("model", s.cfg.Model),
			zap.Error(err),
		)
		if s.cfg.MaskFailures {
			metrics.AIRequests.WithLabelValues("masked_error").Inc()
			return []dto.GeneratedQuestion{s.errorPlaceholder(err)}, nil
		}
		metrics.AIRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrAIGenerateFailed, err)
	}

	metrics.AIRequests.WithLabelValues("llm").Inc()
	return applyTagOverrides(questions, req.TagL1, req.TagL2), nil
}

func (s *aiService) callModel(ctx context.Context, text string, counts aiCounts, difficulty int) ([]dto.GeneratedQuestion, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	prompt := buildPrompt(truncateRunes(text, s.maxInput()), counts, difficulty)
	content, err := s.llm.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}}, aiTemperature)
	if err != nil {
		return nil, err
	}

	var questions []dto.GeneratedQuestion
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &questions); err != nil {
		return nil, fmt.Errorf("解析模型输出失败: %w", err)
	}
	return questions, nil
}

func (s *aiService) maxInput() int {
	if s.cfg.MaxInputChars > 0 {
		return s.cfg.MaxInputChars
	}
	return defaultAIInputRune
}

// errorPlaceholder 失败屏蔽时返回的占位题，保留“系统错误”标签
func (s *aiService) errorPlaceholder(err error) dto.GeneratedQuestion {
	return dto.GeneratedQuestion{
		Content: fmt.Sprintf("❌ AI 调用出错: %v", err),
		QType:   model.QuestionTypeSingle,
		Options: []string{"A. 请检查后端日志", "B. 请检查 API Key", "C. 请检查网络", "D. 模型服务可能繁忙"},
		Answer:  "A",
		Analysis: fmt.Sprintf("详细错误信息已记录到后端日志。\n使用的 Base URL: %s\n使用的 Model: %s",
			s.cfg.BaseURL, s.cfg.Model),
		Difficulty: 1,
		Tags:       append([]string(nil), errorTags...),
	}
}

// ── Prompt ──

func buildPrompt(text string, c aiCounts, difficulty int) string {
	var parts []string
	if c.single > 0 {
		parts = append(parts, fmt.Sprintf("%d 道单选题 (single)", c.single))
	}
	if c.multi > 0 {
		parts = append(parts, fmt.Sprintf("%d 道多选题 (multi)", c.multi))
	}
	if c.judge > 0 {
		parts = append(parts, fmt.Sprintf("%d 道判断题 (judge)", c.judge))
	}
	if c.essay > 0 {
		parts = append(parts, fmt.Sprintf("%d 道简答题 (essay)", c.essay))
	}

	return fmt.Sprintf(`你是一个专业的出题老师。请根据以下文本内容生成 %d 道题目。
文本内容：【%s...】 (内容过长已截断)

具体要求如下：
1. 难度系数：%d (1-5，1为最简单)
2. 题型分布：%s。
3. 返回严格的 JSON 格式列表，不要包含 Markdown 标记。
4. JSON 结构示例：
[
    {
        "content": "题目描述",
        "q_type": "single|multi|judge|essay",
        "options": ["A.选项1", "B.选项2"], (简答题可为 null)
        "answer": "A" (多选为 "A,B", 判断为 "正确"/"错误", 简答为参考答案),
        "analysis": "解析",
        "difficulty": 1,
        "tags": ["标签1"]
    }
]`, c.total(), text, difficulty, strings.Join(parts, ", "))
}

// stripCodeFence 去掉模型输出外层的 ```json ... ``` 包裹
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ── Mock ──

var mockAnswers = []string{"A", "B", "C", "D"}

// mockQuestions 未配置 Key 时的确定性示例题：单选 + 判断 + 若干单选
func mockQuestions(text string, n, difficulty int) []dto.GeneratedQuestion {
	var out []dto.GeneratedQuestion

	if n >= 1 {
		out = append(out, dto.GeneratedQuestion{
			Content:    fmt.Sprintf("【Mock模式】根据输入内容【%s...】，以下哪个描述是正确的？(请配置 API Key 以获取真实结果)", truncateRunes(text, 10)),
			QType:      model.QuestionTypeSingle,
			Options:    []string{"A. 这是一个测试选项1", "B. 这是一个测试选项2", "C. 这是一个测试选项3", "D. 这是一个测试选项4"},
			Answer:     "A",
			Analysis:   "这是一个Mock解析：当前系统未检测到 API Key，因此展示模拟数据。",
			Difficulty: difficulty,
			Tags:       append([]string(nil), mockTags...),
		})
	}
	if n >= 2 {
		out = append(out, dto.GeneratedQuestion{
			Content:    "【Mock模式】输入文本是否包含关键词？",
			QType:      model.QuestionTypeJudge,
			Answer:     "正确",
			Analysis:   "这是一个Mock解析：文本确实包含关键词。",
			Difficulty: difficulty,
			Tags:       append([]string(nil), mockTags...),
		})
	}
	for i := 2; i < n; i++ {
		out = append(out, dto.GeneratedQuestion{
			Content:    fmt.Sprintf("【Mock模式】第 %d 道题目：关于 %s 的深入分析", i+1, truncateRunes(text, 5)),
			QType:      model.QuestionTypeSingle,
			Options:    []string{"A. 观点1", "B. 观点2", "C. 观点3", "D. 观点4"},
			Answer:     dto.FlexString(mockAnswers[(i-2)%len(mockAnswers)]),
			Analysis:   fmt.Sprintf("这是第 %d 题的解析。", i+1),
			Difficulty: difficulty,
			Tags:       append([]string(nil), mockTags...),
		})
	}
	return out
}

// applyTagOverrides 非空的一级/二级标签覆盖全部草稿的标签
func applyTagOverrides(qs []dto.GeneratedQuestion, l1, l2 string) []dto.GeneratedQuestion {
	var tags []string
	if t := strings.TrimSpace(l1); t != "" {
		tags = append(tags, t)
	}
	if t := strings.TrimSpace(l2); t != "" {
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return qs
	}
	for i := range qs {
		qs[i].Tags = append([]string(nil), tags...)
	}
	return qs
}
