package repository

import (
	"context"

	"gorm.io/gorm"

	"exam-bank/backend/internal/model"
)

// OperationLogFilter 日志查询条件
type OperationLogFilter struct {
	Action     string
	TargetType string
}

// OperationLogRepository 操作日志数据访问接口（只追加）
type OperationLogRepository interface {
	Create(ctx context.Context, log *model.OperationLog) error
	List(ctx context.Context, f OperationLogFilter, offset, limit int) ([]model.OperationLog, int64, error)
}

// operationLogRepo OperationLogRepository 的 GORM 实现
type operationLogRepo struct {
	db *gorm.DB
}

// NewOperationLogRepo 创建 OperationLogRepository 实例
func NewOperationLogRepo(db *gorm.DB) OperationLogRepository {
	return &operationLogRepo{db: db}
}

func (r *operationLogRepo) Create(ctx context.Context, log *model.OperationLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *operationLogRepo) List(ctx context.Context, f OperationLogFilter, offset, limit int) ([]model.OperationLog, int64, error) {
	var (
		logs  []model.OperationLog
		total int64
	)

	query := r.db.WithContext(ctx).Model(&model.OperationLog{})
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.TargetType != "" {
		query = query.Where("target_type = ?", f.TargetType)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&logs).Error
	return logs, total, err
}
