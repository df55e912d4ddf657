package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"exam-bank/backend/internal/model"
	pkgerrors "exam-bank/backend/pkg/errors"
)

// ExamRuleRepository 组卷规则数据访问接口
type ExamRuleRepository interface {
	Create(ctx context.Context, rule *model.ExamRule) error
	GetByID(ctx context.Context, id uint) (*model.ExamRule, error)
	List(ctx context.Context, offset, limit int) ([]model.ExamRule, int64, error)
	// UpdateWithVersion 仅当库中 version 等于 expectedVersion 时更新，成功后 version+1
	UpdateWithVersion(ctx context.Context, rule *model.ExamRule, expectedVersion int) error
	Delete(ctx context.Context, id uint) error
}

// examRuleRepo ExamRuleRepository 的 GORM 实现
type examRuleRepo struct {
	db *gorm.DB
}

// NewExamRuleRepo 创建 ExamRuleRepository 实例
func NewExamRuleRepo(db *gorm.DB) ExamRuleRepository {
	return &examRuleRepo{db: db}
}

func (r *examRuleRepo) Create(ctx context.Context, rule *model.ExamRule) error {
	if rule.Version == 0 {
		rule.Version = 1
	}
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *examRuleRepo) GetByID(ctx context.Context, id uint) (*model.ExamRule, error) {
	var rule model.ExamRule
	if err := r.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *examRuleRepo) List(ctx context.Context, offset, limit int) ([]model.ExamRule, int64, error) {
	var (
		rules []model.ExamRule
		total int64
	)
	if err := r.db.WithContext(ctx).Model(&model.ExamRule{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rules).Error
	return rules, total, err
}

func (r *examRuleRepo) UpdateWithVersion(ctx context.Context, rule *model.ExamRule, expectedVersion int) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.ExamRule{}).
		Where("id = ? AND version = ?", rule.ID, expectedVersion).
		Updates(map[string]interface{}{
			"name":        rule.Name,
			"total_score": rule.TotalScore,
			"config":      rule.Config,
			"version":     expectedVersion + 1,
			"updated_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	rule.Version = expectedVersion + 1
	rule.UpdatedAt = now
	return nil
}

func (r *examRuleRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.ExamRule{}, id).Error
}
