package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"exam-bank/backend/internal/model"
)

// IDSequenceRepository 自定义编号计数器
type IDSequenceRepository interface {
	// Next 原子地递增并返回 scope 的下一个序号（从 1 开始）
	Next(ctx context.Context, scope string) (int64, error)
}

// idSequenceRepo IDSequenceRepository 的 GORM 实现
type idSequenceRepo struct {
	db *gorm.DB
}

// NewIDSequenceRepo 创建 IDSequenceRepository 实例
func NewIDSequenceRepo(db *gorm.DB) IDSequenceRepository {
	return &idSequenceRepo{db: db}
}

func (r *idSequenceRepo) Next(ctx context.Context, scope string) (int64, error) {
	var seq model.IDSequence
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scope"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value": gorm.Expr("id_sequences.value + 1"),
			}),
		}).Create(&model.IDSequence{Scope: scope, Value: 1}).Error
		if err != nil {
			return err
		}
		return tx.Where("scope = ?", scope).First(&seq).Error
	})
	if err != nil {
		return 0, err
	}
	return seq.Value, nil
}
