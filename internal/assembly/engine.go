// Package assembly 实现组卷引擎：在内存中的候选题池上按题型数量与难度比例抽题。
//
// 引擎不做任何 I/O，也不修改传入的题池；随机源由调用方注入，
// 相同种子与相同输入得到相同结果。
package assembly

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"exam-bank/backend/internal/model"
)

// Generate 按规则从候选池中抽题
//
// 规则：
//   - 按 type_distribution 的顺序逐个题型处理，题型无候选时跳过
//   - 每个难度等级目标数 = floor(N × 比例)，为 0 时跳过，不足时有多少取多少
//   - 难度分桶后仍不足 N 的部分，从该题型未被选中的题目中随机补足
//   - 题目不足从不报错，整体无结果时返回空切片，由调用方决定如何提示
//
// pool 应只包含已发布题目；rng 为 nil 时使用以当前时间为种子的随机源。
func Generate(pool []model.Question, cfg RuleConfig, rng *rand.Rand) []model.Question {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	candidates := narrowPool(pool, cfg.Tags)
	result := make([]model.Question, 0, cfg.TotalRequested())

	for _, quota := range cfg.TypeDistribution {
		result = append(result, selectForType(candidates, quota, cfg.DifficultyDistribution, rng)...)
	}
	return result
}

// selectForType 单个题型的抽题：先按难度分桶，再随机补足
func selectForType(pool []model.Question, quota TypeQuota, dist DifficultyDistribution, rng *rand.Rand) []model.Question {
	if quota.Count <= 0 {
		return nil
	}

	var typed []int
	for i := range pool {
		if pool[i].QType == quota.Type {
			typed = append(typed, i)
		}
	}
	if len(typed) == 0 {
		return nil
	}

	used := make(map[int]bool, quota.Count)
	selected := make([]model.Question, 0, quota.Count)
	obtained := 0

	for _, dr := range dist {
		target := targetCount(quota.Count, dr.Ratio)
		if target == 0 {
			continue
		}

		var bucket []int
		for _, i := range typed {
			if !used[i] && strconv.Itoa(pool[i].Difficulty) == dr.Level {
				bucket = append(bucket, i)
			}
		}

		for _, i := range sample(bucket, target, rng) {
			used[i] = true
			selected = append(selected, pool[i])
			obtained++
		}
	}

	// 难度约束无法满足时，用同题型剩余题目补足
	if remaining := quota.Count - obtained; remaining > 0 {
		var rest []int
		for _, i := range typed {
			if !used[i] {
				rest = append(rest, i)
			}
		}
		for _, i := range sample(rest, remaining, rng) {
			used[i] = true
			selected = append(selected, pool[i])
		}
	}

	return selected
}

// targetCount 向下取整，小数部分由补足阶段吸收
func targetCount(n int, ratio float64) int {
	if n <= 0 || ratio <= 0 {
		return 0
	}
	return int(math.Floor(float64(n) * ratio))
}

// sample 从 idx 中无放回均匀抽取 min(k, len(idx)) 个（部分 Fisher-Yates）
func sample(idx []int, k int, rng *rand.Rand) []int {
	if k > len(idx) {
		k = len(idx)
	}
	if k <= 0 {
		return nil
	}
	out := append([]int(nil), idx...)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:k]
}

// narrowPool 按 ID 去重，并在指定标签时只保留带有任一标签的题目
func narrowPool(pool []model.Question, tags []string) []model.Question {
	var wanted []string
	for _, t := range tags {
		if t != "" {
			wanted = append(wanted, t)
		}
	}

	seen := make(map[uint]bool, len(pool))
	out := make([]model.Question, 0, len(pool))
	for _, q := range pool {
		if q.ID != 0 {
			if seen[q.ID] {
				continue
			}
			seen[q.ID] = true
		}
		if len(wanted) > 0 && !hasAnyTag(&q, wanted) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func hasAnyTag(q *model.Question, wanted []string) bool {
	for _, t := range wanted {
		if q.HasTag(t) {
			return true
		}
	}
	return false
}

// Shortfall 统计每个题型实际抽到的数量与目标的差额（仅返回有缺口的题型）
func Shortfall(cfg RuleConfig, selected []model.Question) map[string]int {
	got := make(map[string]int)
	for _, q := range selected {
		got[q.QType]++
	}
	short := make(map[string]int)
	for _, quota := range cfg.TypeDistribution {
		if d := quota.Count - got[quota.Type]; d > 0 {
			short[quota.Type] = d
		}
	}
	return short
}
