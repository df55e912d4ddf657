package repository

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"exam-bank/backend/internal/model"
)

// QuestionFilter 题目查询条件，零值字段不参与过滤
type QuestionFilter struct {
	QType      string
	Difficulty *int
	Status     string
	SourceDoc  string
	Search     string // 题干包含
	Tag        string // 标签数组包含
}

// QuestionRepository 题目数据访问接口
type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	GetByID(ctx context.Context, id uint) (*model.Question, error)
	GetByContentHash(ctx context.Context, hash string) (*model.Question, error)
	FindByContentHashes(ctx context.Context, hashes []string) ([]model.Question, error)
	List(ctx context.Context, f QuestionFilter, offset, limit int) ([]model.Question, int64, error)
	ListAll(ctx context.Context, f QuestionFilter, limit int) ([]model.Question, error)
	Update(ctx context.Context, q *model.Question) error
	UpdateFields(ctx context.Context, ids []uint, fields map[string]interface{}) (int64, error)
	Delete(ctx context.Context, id uint) error
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
}

// questionRepo QuestionRepository 的 GORM 实现
type questionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo 创建 QuestionRepository 实例
func NewQuestionRepo(db *gorm.DB) QuestionRepository {
	return &questionRepo{db: db}
}

func (r *questionRepo) Create(ctx context.Context, q *model.Question) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *questionRepo) GetByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) GetByContentHash(ctx context.Context, hash string) (*model.Question, error) {
	var q model.Question
	err := r.db.WithContext(ctx).
		Where("content_hash = ?", hash).
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) FindByContentHashes(ctx context.Context, hashes []string) ([]model.Question, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	var qs []model.Question
	err := r.db.WithContext(ctx).
		Where("content_hash IN ?", hashes).
		Find(&qs).Error
	return qs, err
}

func (r *questionRepo) List(ctx context.Context, f QuestionFilter, offset, limit int) ([]model.Question, int64, error) {
	var (
		qs    []model.Question
		total int64
	)

	query := applyQuestionFilter(r.db.WithContext(ctx).Model(&model.Question{}), f)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&qs).Error
	return qs, total, err
}

// ListAll 不分页查询（组卷候选池与导出），limit<=0 表示不限
func (r *questionRepo) ListAll(ctx context.Context, f QuestionFilter, limit int) ([]model.Question, error) {
	var qs []model.Question
	query := applyQuestionFilter(r.db.WithContext(ctx).Model(&model.Question{}), f).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&qs).Error
	return qs, err
}

func (r *questionRepo) Update(ctx context.Context, q *model.Question) error {
	return r.db.WithContext(ctx).Save(q).Error
}

func (r *questionRepo) UpdateFields(ctx context.Context, ids []uint, fields map[string]interface{}) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Question{}).
		Where("id IN ?", ids).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *questionRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.Question{}, id).Error
}

func (r *questionRepo) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&model.Question{})
	return res.RowsAffected, res.Error
}

// applyQuestionFilter 拼装查询条件
// 标签按 JSON 数组元素精确匹配：postgres 走 jsonb ? 运算符，sqlite 走 json_each
func applyQuestionFilter(db *gorm.DB, f QuestionFilter) *gorm.DB {
	if f.QType != "" {
		db = db.Where("q_type = ?", f.QType)
	}
	if f.Difficulty != nil {
		db = db.Where("difficulty = ?", *f.Difficulty)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.SourceDoc != "" {
		db = db.Where("source_doc = ?", f.SourceDoc)
	}
	if f.Search != "" {
		db = db.Where("content LIKE ?", "%"+f.Search+"%")
	}
	if f.Tag != "" {
		db = db.Where(datatypes.JSONArrayQuery("tags").Contains(f.Tag))
	}
	return db
}
