package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Question     QuestionRepository
	Tag          TagRepository
	ExamRule     ExamRuleRepository
	ExamPaper    ExamPaperRepository
	OperationLog OperationLogRepository
	IDSequence   IDSequenceRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Question:     NewQuestionRepo(db),
		Tag:          NewTagRepo(db),
		ExamRule:     NewExamRuleRepo(db),
		ExamPaper:    NewExamPaperRepo(db),
		OperationLog: NewOperationLogRepo(db),
		IDSequence:   NewIDSequenceRepo(db),
	}
}

// Transaction 在同一事务中执行 fn，fn 收到绑定到事务的 Repository
// 未绑定数据库（单元测试中的 mock 聚合）时直接执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// Ping 数据库健康检查
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// IsNotFound 是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
