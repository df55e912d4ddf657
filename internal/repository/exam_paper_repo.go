package repository

import (
	"context"

	"gorm.io/gorm"

	"exam-bank/backend/internal/model"
)

// ExamPaperRepository 试卷数据访问接口（试卷创建后不可修改）
type ExamPaperRepository interface {
	Create(ctx context.Context, paper *model.ExamPaper) error
	GetByID(ctx context.Context, id uint) (*model.ExamPaper, error)
	List(ctx context.Context, offset, limit int) ([]model.ExamPaper, int64, error)
}

// examPaperRepo ExamPaperRepository 的 GORM 实现
type examPaperRepo struct {
	db *gorm.DB
}

// NewExamPaperRepo 创建 ExamPaperRepository 实例
func NewExamPaperRepo(db *gorm.DB) ExamPaperRepository {
	return &examPaperRepo{db: db}
}

func (r *examPaperRepo) Create(ctx context.Context, paper *model.ExamPaper) error {
	return r.db.WithContext(ctx).Create(paper).Error
}

func (r *examPaperRepo) GetByID(ctx context.Context, id uint) (*model.ExamPaper, error) {
	var paper model.ExamPaper
	if err := r.db.WithContext(ctx).First(&paper, id).Error; err != nil {
		return nil, err
	}
	return &paper, nil
}

// List 按创建时间倒序
func (r *examPaperRepo) List(ctx context.Context, offset, limit int) ([]model.ExamPaper, int64, error) {
	var (
		papers []model.ExamPaper
		total  int64
	)
	if err := r.db.WithContext(ctx).Model(&model.ExamPaper{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&papers).Error
	return papers, total, err
}
