package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/model"
)

func TestLogService_List(t *testing.T) {
	repo, m := newTestRepos()
	svc := NewLogService(repo, zap.NewNop())
	ctx := context.Background()

	writeAudit(ctx, repo, zap.NewNop(), auditEntry{action: "create", targetType: model.TargetQuestion, targetIDs: []uint{1}}, nil)
	writeAudit(ctx, repo, zap.NewNop(), auditEntry{action: "batch_delete", targetType: model.TargetQuestion}, errors.New("boom"))
	writeAudit(ctx, repo, zap.NewNop(), auditEntry{operator: "admin", action: "generate_paper", targetType: model.TargetPaper}, nil)

	logs, total, err := svc.List(ctx, &dto.LogListRequest{})
	if err != nil || total != 3 {
		t.Fatalf("List 失败: total=%d err=%v", total, err)
	}
	if logs[0].Action != "generate_paper" || logs[0].UserID != "admin" {
		t.Errorf("应按时间倒序返回，实际首条=%+v", logs[0])
	}
	if logs[2].UserID != defaultOperator {
		t.Errorf("未指定操作人时应记录 %s，实际=%s", defaultOperator, logs[2].UserID)
	}

	failed := m.log.logs[1]
	if failed.Status != model.LogStatusFailed || failed.ErrorMessage == nil || *failed.ErrorMessage != "boom" {
		t.Errorf("失败日志不符: %+v", failed)
	}

	logs, total, _ = svc.List(ctx, &dto.LogListRequest{TargetType: model.TargetPaper})
	if total != 1 || logs[0].Action != "generate_paper" {
		t.Errorf("按 target_type 过滤结果不符: %d", total)
	}
	logs, total, _ = svc.List(ctx, &dto.LogListRequest{Action: "nothing"})
	if total != 0 || logs == nil {
		t.Error("无匹配时应返回空数组")
	}
}
