package service

import (
	"context"

	"go.uber.org/zap"

	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
)

// defaultOperator 未登录或未传递操作人时记录的身份
const defaultOperator = "system"

// LogService 操作日志业务接口（只读）
type LogService interface {
	List(ctx context.Context, req *dto.LogListRequest) ([]model.OperationLog, int64, error)
}

type logService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLogService 创建 LogService 实例
func NewLogService(repo *repository.Repository, logger *zap.Logger) LogService {
	return &logService{repo: repo, logger: logger}
}

func (s *logService) List(ctx context.Context, req *dto.LogListRequest) ([]model.OperationLog, int64, error) {
	f := repository.OperationLogFilter{Action: req.Action, TargetType: req.TargetType}
	logs, total, err := s.repo.OperationLog.List(ctx, f, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询操作日志失败", zap.Error(err))
		return nil, 0, err
	}
	if logs == nil {
		logs = []model.OperationLog{}
	}
	return logs, total, nil
}

// ── 审计写入 ──

// auditEntry 一条待写入的操作日志
type auditEntry struct {
	operator   string
	action     string
	targetType string
	targetIDs  []uint
	details    map[string]interface{}
}

func (e auditEntry) build(err error) *model.OperationLog {
	op := e.operator
	if op == "" {
		op = defaultOperator
	}
	log := &model.OperationLog{
		UserID:     op,
		Action:     e.action,
		TargetType: e.targetType,
		TargetIDs:  e.targetIDs,
		Details:    e.details,
		Status:     model.LogStatusSuccess,
	}
	if err != nil {
		msg := err.Error()
		log.Status = model.LogStatusFailed
		log.ErrorMessage = &msg
	}
	return log
}

// writeAudit 写入操作日志，失败只记录不影响主流程
func writeAudit(ctx context.Context, repo *repository.Repository, logger *zap.Logger, e auditEntry, opErr error) {
	if err := repo.OperationLog.Create(ctx, e.build(opErr)); err != nil {
		logger.Warn("写入操作日志失败", zap.String("action", e.action), zap.Error(err))
	}
}
