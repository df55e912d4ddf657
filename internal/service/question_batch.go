package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Batch，批量删除 / 改状态 / 改难度 / 改标签
// ═══════════════════════════════════════════════════════════
//
// 请求形态：
//   - items 非空：逐条模式（仅 update_status 使用 value/comment，其余动作只取 id）
//   - 否则：ids + value (+ comment) 统一模式
//
// 整个批次在一个事务中执行；无论成功失败（含参数校验失败），恰好写一条操作日志。

func (s *questionService) Batch(ctx context.Context, req *dto.BatchRequest, operator string) (*dto.BatchResult, error) {
	var (
		result *dto.BatchResult
		entry  auditEntry
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		result, entry, err = s.applyBatch(ctx, tx, req, operator)
		if err != nil {
			return err
		}
		entry.operator = operator
		// 成功日志与变更同事务提交
		return tx.OperationLog.Create(ctx, entry.build(nil))
	})
	if err != nil {
		failed := auditEntry{
			operator:   operator,
			action:     req.Action,
			targetType: model.TargetQuestion,
			targetIDs:  batchIDs(req),
		}
		writeAudit(ctx, s.repo, s.logger, failed, err)
		if !isBatchValidationError(err) {
			s.logger.Error("批量操作失败", zap.String("action", req.Action), zap.Error(err))
		}
		return nil, err
	}

	s.publish(ctx, entry.action, entry.targetIDs)
	return result, nil
}

func (s *questionService) applyBatch(
	ctx context.Context,
	tx *repository.Repository,
	req *dto.BatchRequest,
	operator string,
) (*dto.BatchResult, auditEntry, error) {
	entry := auditEntry{targetType: model.TargetQuestion}

	switch req.Action {
	case dto.BatchActionDelete:
		ids := batchIDs(req)
		if len(ids) == 0 {
			return nil, entry, ErrBatchNoIDs
		}
		n, err := tx.Question.DeleteByIDs(ctx, ids)
		if err != nil {
			return nil, entry, err
		}
		entry.action, entry.targetIDs = "batch_delete", ids
		return &dto.BatchResult{Action: req.Action, Affected: n, Message: "Batch delete success"}, entry, nil

	case dto.BatchActionUpdateStatus:
		if len(req.Items) > 0 {
			return s.batchReview(ctx, tx, req, operator)
		}
		status, ok := decodeString(req.Value)
		if len(req.IDs) == 0 || !ok || status == "" {
			return nil, entry, ErrBatchInvalidParams
		}
		if !model.IsValidStatus(status) {
			return nil, entry, ErrInvalidStatus
		}
		fields := map[string]interface{}{"status": status}
		if req.Comment != nil {
			fields["review_comment"] = *req.Comment
			fields["reviewed_at"] = s.now().UTC()
			fields["reviewer"] = reviewerName(operator)
		}
		n, err := tx.Question.UpdateFields(ctx, req.IDs, fields)
		if err != nil {
			return nil, entry, err
		}
		entry.action, entry.targetIDs = "batch_update_status", req.IDs
		entry.details = map[string]interface{}{"value": status, "comment": req.Comment}
		return &dto.BatchResult{Action: req.Action, Affected: n, Message: "Batch status update success"}, entry, nil

	case dto.BatchActionUpdateDifficulty:
		if isEmptyValue(req.Value) {
			return nil, entry, ErrBatchValueRequired
		}
		difficulty, ok := decodeInt(req.Value)
		if !ok || difficulty < 1 || difficulty > 5 {
			return nil, entry, ErrInvalidDifficulty
		}
		if len(req.IDs) == 0 {
			return nil, entry, ErrBatchNoIDs
		}
		n, err := tx.Question.UpdateFields(ctx, req.IDs, map[string]interface{}{"difficulty": difficulty})
		if err != nil {
			return nil, entry, err
		}
		entry.action, entry.targetIDs = "batch_update_difficulty", req.IDs
		entry.details = map[string]interface{}{"value": difficulty}
		return &dto.BatchResult{Action: req.Action, Affected: n, Message: "Batch difficulty update success"}, entry, nil

	case dto.BatchActionUpdateTags:
		// 空数组合法（清空标签），null/缺省不合法
		if isEmptyValue(req.Value) {
			return nil, entry, ErrBatchValueRequired
		}
		var tags []string
		if err := json.Unmarshal(req.Value, &tags); err != nil {
			return nil, entry, ErrBatchTagsNotList
		}
		if len(req.IDs) == 0 {
			return nil, entry, ErrBatchNoIDs
		}
		n, err := tx.Question.UpdateFields(ctx, req.IDs, map[string]interface{}{
			"tags": datatypes.JSONSlice[string](tags),
		})
		if err != nil {
			return nil, entry, err
		}
		entry.action, entry.targetIDs = "batch_update_tags", req.IDs
		entry.details = map[string]interface{}{"value": tags}
		return &dto.BatchResult{Action: req.Action, Affected: n, Message: "Batch tags update success"}, entry, nil
	}

	return nil, entry, ErrBatchUnknownAction
}

// batchReview 逐条审核：每条独立设置状态与意见，共用同一审核时间
func (s *questionService) batchReview(
	ctx context.Context,
	tx *repository.Repository,
	req *dto.BatchRequest,
	operator string,
) (*dto.BatchResult, auditEntry, error) {
	entry := auditEntry{targetType: model.TargetQuestion}
	now := s.now().UTC()
	reviewer := reviewerName(operator)

	var affected int64
	ids := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		status, ok := decodeString(item.Value)
		if !ok || !model.IsValidStatus(status) {
			return nil, entry, ErrInvalidStatus
		}
		fields := map[string]interface{}{
			"status":      status,
			"reviewed_at": now,
			"reviewer":    reviewer,
		}
		if item.Comment != nil {
			fields["review_comment"] = *item.Comment
		} else {
			fields["review_comment"] = nil
		}
		n, err := tx.Question.UpdateFields(ctx, []uint{item.ID}, fields)
		if err != nil {
			return nil, entry, err
		}
		affected += n
		ids = append(ids, item.ID)
	}

	entry.action, entry.targetIDs = "batch_review", ids
	entry.details = map[string]interface{}{"count": len(ids)}
	return &dto.BatchResult{Action: req.Action, Affected: affected, Message: "Batch review success"}, entry, nil
}

// batchIDs ids 优先，其次取 items 中的 id
func batchIDs(req *dto.BatchRequest) []uint {
	if len(req.IDs) > 0 {
		return req.IDs
	}
	ids := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func isBatchValidationError(err error) bool {
	for _, target := range []error{
		ErrBatchUnknownAction, ErrBatchNoIDs, ErrBatchInvalidParams, ErrBatchValueRequired,
		ErrBatchTagsNotList, ErrInvalidStatus, ErrInvalidDifficulty,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ── value 解码 ──

func isEmptyValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeString(raw json.RawMessage) (string, bool) {
	if isEmptyValue(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeInt 接受数字或数字字符串
func decodeInt(raw json.RawMessage) (int, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f), f == float64(int(f))
	}
	s, ok := decodeString(raw)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}

// ═══════════════════════════════════════════════════════════
// BatchCreate，逐条独立创建，失败不影响其他条目
// ═══════════════════════════════════════════════════════════

func (s *questionService) BatchCreate(ctx context.Context, reqs []dto.CreateQuestionRequest, operator string) (*dto.BatchCreateResult, error) {
	result := &dto.BatchCreateResult{
		Created: []dto.QuestionResponse{},
		Errors:  []string{},
	}
	var ids []uint

	for i := range reqs {
		req := &reqs[i]
		preview := contentPreview(req.Content)

		q, err := newQuestionFromRequest(req)
		if err == nil {
			err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
				return s.insert(ctx, tx, q)
			})
		}
		if err != nil {
			if errors.Is(err, ErrDuplicateQuestion) {
				result.Errors = append(result.Errors, "Duplicate content: "+preview+"...")
			} else {
				result.Errors = append(result.Errors, "Error creating "+preview+"...: "+err.Error())
			}
			continue
		}
		result.Created = append(result.Created, dto.NewQuestionResponse(q))
		ids = append(ids, q.ID)
	}

	writeAudit(ctx, s.repo, s.logger, auditEntry{
		operator:   operator,
		action:     "batch_create",
		targetType: model.TargetQuestion,
		targetIDs:  ids,
		details:    map[string]interface{}{"success": len(result.Created), "failed": len(result.Errors)},
	}, nil)

	s.publish(ctx, "batch_create", ids)
	return result, nil
}

// contentPreview 题干前 20 个字符
func contentPreview(content string) string {
	r := []rune(content)
	if len(r) > 20 {
		r = r[:20]
	}
	return string(r)
}
