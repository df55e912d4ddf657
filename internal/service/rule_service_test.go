package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"exam-bank/backend/internal/dto"
)

func setupTestRuleService() (RuleService, *testRepos) {
	repo, m := newTestRepos()
	return NewRuleService(repo, zap.NewNop()), m
}

func TestRuleService_Create(t *testing.T) {
	svc, _ := setupTestRuleService()

	rule, err := svc.Create(context.Background(), &dto.CreateRuleRequest{
		Name:   " 期中考试 ",
		Config: rawJSON(`{"type_distribution":{"single":5,"judge":3},"difficulty_distribution":{"1":0.5,"2":0.5},"note":"保留"}`),
	})
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if rule.Name != "期中考试" || rule.TotalScore != 100 || rule.Version != 1 {
		t.Errorf("规则字段不符: name=%q total=%v version=%d", rule.Name, rule.TotalScore, rule.Version)
	}
	if !strings.Contains(string(rule.Config), `"note":"保留"`) {
		t.Errorf("未识别的键应原样保存，实际=%s", rule.Config)
	}
}

func TestRuleService_Create_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  dto.CreateRuleRequest
		want error
	}{
		{"空名称", dto.CreateRuleRequest{Name: " ", Config: rawJSON(`{}`)}, ErrRuleNameEmpty},
		{"非对象", dto.CreateRuleRequest{Name: "r", Config: rawJSON(`[1,2]`)}, ErrRuleInvalidConfig},
		{"null", dto.CreateRuleRequest{Name: "r", Config: rawJSON(`null`)}, ErrRuleInvalidConfig},
		{"负数量", dto.CreateRuleRequest{Name: "r", Config: rawJSON(`{"type_distribution":{"single":-1}}`)}, ErrRuleInvalidConfig},
		{"比例越界", dto.CreateRuleRequest{Name: "r", Config: rawJSON(`{"difficulty_distribution":{"1":1.5}}`)}, ErrRuleInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := setupTestRuleService()
			if _, err := svc.Create(context.Background(), &tt.req); !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际 %v", tt.want, err)
			}
			if len(m.rule.rules) != 0 {
				t.Error("校验失败不应写入规则")
			}
		})
	}
}

func TestRuleService_Create_UnknownTypeAccepted(t *testing.T) {
	svc, _ := setupTestRuleService()
	rule, err := svc.Create(context.Background(), &dto.CreateRuleRequest{
		Name:   "含未知题型",
		Config: rawJSON(`{"type_distribution":{"single":2,"fill_blank":1}}`),
	})
	if err != nil {
		t.Fatalf("未知题型在组卷时跳过，保存规则不应报错: %v", err)
	}
	if !strings.Contains(string(rule.Config), "fill_blank") {
		t.Errorf("配置应原样保存，实际=%s", rule.Config)
	}
}

func TestRuleService_Update_OptimisticLock(t *testing.T) {
	svc, _ := setupTestRuleService()
	ctx := context.Background()

	rule, err := svc.Create(ctx, &dto.CreateRuleRequest{Name: "r1", Config: rawJSON(`{"type_distribution":{"single":1}}`)})
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}

	updated, err := svc.Update(ctx, rule.ID, &dto.UpdateRuleRequest{Name: ptr("r2"), TotalScore: ptr(120.0), Version: 1})
	if err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	if updated.Name != "r2" || updated.TotalScore != 120 || updated.Version != 2 {
		t.Errorf("更新结果不符: %+v", updated)
	}

	// 旧版本号再次提交
	if _, err := svc.Update(ctx, rule.ID, &dto.UpdateRuleRequest{Name: ptr("r3"), Version: 1}); !errors.Is(err, ErrRuleVersionStale) {
		t.Errorf("期望 ErrRuleVersionStale，实际 %v", err)
	}
	if _, err := svc.Update(ctx, rule.ID, &dto.UpdateRuleRequest{Config: rawJSON(`"x"`), Version: 2}); !errors.Is(err, ErrRuleInvalidConfig) {
		t.Errorf("期望 ErrRuleInvalidConfig，实际 %v", err)
	}
	if _, err := svc.Update(ctx, 99, &dto.UpdateRuleRequest{Version: 1}); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("期望 ErrRuleNotFound，实际 %v", err)
	}
}

func TestRuleService_ListAndDelete(t *testing.T) {
	svc, m := setupTestRuleService()
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		if _, err := svc.Create(ctx, &dto.CreateRuleRequest{Name: name, Config: rawJSON(`{}`)}); err != nil {
			t.Fatalf("Create 失败: %v", err)
		}
	}

	rules, total, err := svc.List(ctx, &dto.PaginationRequest{Page: 1, PageSize: 2})
	if err != nil || total != 3 || len(rules) != 2 || rules[0].Name != "c" {
		t.Errorf("分页结果不符: total=%d len=%d err=%v", total, len(rules), err)
	}

	deleted, err := svc.Delete(ctx, 1)
	if err != nil || deleted.Name != "a" || len(m.rule.rules) != 2 {
		t.Errorf("删除结果不符: %+v %v", deleted, err)
	}
	if _, err := svc.Delete(ctx, 1); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("重复删除期望 ErrRuleNotFound，实际 %v", err)
	}
}
