package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"exam-bank/backend/config"
	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
	"exam-bank/backend/pkg/events"
)

// ── 题目模块业务错误 ──

var (
	ErrQuestionNotFound     = errors.New("题目不存在")
	ErrDuplicateQuestion    = errors.New("题目重复")
	ErrInvalidQuestionType  = errors.New("题型无效，可选 single/multi/judge/essay")
	ErrInvalidStatus        = errors.New("题目状态无效")
	ErrInvalidReviewStatus  = errors.New("审核状态无效，可选 published/review/draft/disabled")
	ErrInvalidDifficulty    = errors.New("难度必须在 1-5 之间")
	ErrEmptyContent         = errors.New("题干不能为空")
	ErrBatchUnknownAction   = errors.New("未知的批量操作")
	ErrBatchNoIDs           = errors.New("未提供题目 ID")
	ErrBatchInvalidParams   = errors.New("update_status 参数无效")
	ErrBatchValueRequired   = errors.New("缺少 value 参数")
	ErrBatchTagsNotList     = errors.New("value 必须是标签数组")
	ErrUnsupportedImport    = errors.New("不支持的文件格式，请使用 .csv 或 .xlsx")
	ErrImportParseFailed    = errors.New("解析导入文件失败")
	ErrImportTooManyRows    = errors.New("导入行数超过上限")
	ErrUnsupportedExportFmt = errors.New("不支持的导出格式，请使用 csv 或 xlsx")
)

const (
	defaultDifficulty = 1
	defaultScore      = 1.0
)

// QuestionService 题库业务接口
type QuestionService interface {
	Create(ctx context.Context, req *dto.CreateQuestionRequest) (*dto.QuestionResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.QuestionResponse, error)
	List(ctx context.Context, req *dto.QuestionListRequest) ([]dto.QuestionResponse, int64, error)
	Update(ctx context.Context, id uint, req *dto.UpdateQuestionRequest) (*dto.QuestionResponse, error)
	Delete(ctx context.Context, id uint) (*dto.QuestionResponse, error)
	Review(ctx context.Context, id uint, req *dto.ReviewRequest, operator string) (*dto.QuestionResponse, error)
	CheckDuplicate(ctx context.Context, req *dto.CheckDuplicateRequest) (*dto.CheckDuplicateResponse, error)

	Batch(ctx context.Context, req *dto.BatchRequest, operator string) (*dto.BatchResult, error)
	BatchCreate(ctx context.Context, reqs []dto.CreateQuestionRequest, operator string) (*dto.BatchCreateResult, error)

	Export(ctx context.Context, req *dto.ExportQuestionsRequest, operator string) (*dto.ExportFile, error)
	ParseImport(ctx context.Context, filename string, data []byte) (*dto.ImportPreviewResponse, error)
	Import(ctx context.Context, filename string, data []byte, operator string) (*dto.ImportResultResponse, error)
}

type questionService struct {
	repo      *repository.Repository
	importCfg config.ImportConfig
	exportCfg config.ExportConfig
	events    events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewQuestionService 创建 QuestionService 实例
func NewQuestionService(
	repo *repository.Repository,
	cfg *config.Config,
	pub events.Publisher,
	logger *zap.Logger,
) QuestionService {
	return &questionService{
		repo:      repo,
		importCfg: cfg.Import,
		exportCfg: cfg.Export,
		events:    pub,
		logger:    logger,
		now:       time.Now,
	}
}

// ────────────────────── Create ──────────────────────

func (s *questionService) Create(ctx context.Context, req *dto.CreateQuestionRequest) (*dto.QuestionResponse, error) {
	q, err := newQuestionFromRequest(req)
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		return s.insert(ctx, tx, q)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicateQuestion) {
			s.logger.Error("创建题目失败", zap.Error(err))
		}
		return nil, err
	}

	s.publish(ctx, "create", []uint{q.ID})
	resp := dto.NewQuestionResponse(q)
	return &resp, nil
}

// insert 查重 → 分配编号 → 写入，调用方负责事务
func (s *questionService) insert(ctx context.Context, tx *repository.Repository, q *model.Question) error {
	if err := checkDuplicate(ctx, tx, q.ContentHash, 0); err != nil {
		return err
	}

	customID, err := s.nextCustomID(ctx, tx, q.QType)
	if err != nil {
		return err
	}
	q.CustomID = &customID

	if err := tx.Question.Create(ctx, q); err != nil {
		// 并发写入同一题干时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateQuestion
		}
		return err
	}
	return nil
}

// nextCustomID 生成 <题型首字母>-YYYYMMDD-NNNN，序号按题型与日期独立计数
func (s *questionService) nextCustomID(ctx context.Context, tx *repository.Repository, qType string) (string, error) {
	prefix := strings.ToUpper(qType[:1])
	date := s.now().Format("20060102")

	seq, err := tx.IDSequence.Next(ctx, prefix+"-"+date)
	if err != nil {
		return "", fmt.Errorf("分配题目编号失败: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, date, seq), nil
}

// checkDuplicate 指纹已被其他题目占用时返回带已有编号的 ErrDuplicateQuestion
func checkDuplicate(ctx context.Context, repo *repository.Repository, hash string, selfID uint) error {
	existing, err := repo.Question.GetByContentHash(ctx, hash)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return fmt.Errorf("%w (ID: %s)", ErrDuplicateQuestion, existing.DisplayID())
}

func newQuestionFromRequest(req *dto.CreateQuestionRequest) (*model.Question, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}
	if !model.IsValidQuestionType(req.QType) {
		return nil, ErrInvalidQuestionType
	}

	q := &model.Question{
		Content:         req.Content,
		ContentHash:     model.ContentFingerprint(req.Content),
		QType:           req.QType,
		Options:         req.Options,
		Answer:          req.Answer,
		Analysis:        req.Analysis,
		Difficulty:      req.Difficulty,
		Tags:            req.Tags,
		Score:           defaultScore,
		SourceDoc:       req.SourceDoc,
		PageNum:         req.PageNum,
		ChapterNum:      req.ChapterNum,
		ClauseNum:       req.ClauseNum,
		KnowledgePoints: req.KnowledgePoints,
		Status:          req.Status,
	}
	if q.Difficulty == 0 {
		q.Difficulty = defaultDifficulty
	}
	if q.Difficulty < 1 || q.Difficulty > 5 {
		return nil, ErrInvalidDifficulty
	}
	if req.Score != nil {
		q.Score = *req.Score
	}
	if q.Status == "" {
		q.Status = model.StatusDraft
	}
	if !model.IsValidStatus(q.Status) {
		return nil, ErrInvalidStatus
	}
	return q, nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *questionService) GetByID(ctx context.Context, id uint) (*dto.QuestionResponse, error) {
	q, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewQuestionResponse(q)
	return &resp, nil
}

func (s *questionService) load(ctx context.Context, repo *repository.Repository, id uint) (*model.Question, error) {
	q, err := repo.Question.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrQuestionNotFound
		}
		s.logger.Error("查询题目失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return q, nil
}

func (s *questionService) List(ctx context.Context, req *dto.QuestionListRequest) ([]dto.QuestionResponse, int64, error) {
	f := repository.QuestionFilter{
		QType:      req.QType,
		Difficulty: req.Difficulty,
		Status:     req.Status,
		SourceDoc:  req.SourceDoc,
		Search:     req.Search,
		Tag:        req.Tag,
	}
	if req.ReviewStatus != "" {
		f.Status = req.ReviewStatus
	}

	list, total, err := s.repo.Question.List(ctx, f, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询题目列表失败", zap.Error(err))
		return nil, 0, err
	}
	return dto.NewQuestionResponses(list), total, nil
}

// ────────────────────── Update ──────────────────────

func (s *questionService) Update(ctx context.Context, id uint, req *dto.UpdateQuestionRequest) (*dto.QuestionResponse, error) {
	var updated *model.Question

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		q, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}

		if req.Content != nil {
			if strings.TrimSpace(*req.Content) == "" {
				return ErrEmptyContent
			}
			hash := model.ContentFingerprint(*req.Content)
			if hash != q.ContentHash {
				if err := checkDuplicate(ctx, tx, hash, q.ID); err != nil {
					return err
				}
			}
			q.Content = *req.Content
			q.ContentHash = hash
		}
		if err := applyQuestionUpdate(q, req); err != nil {
			return err
		}

		if err := tx.Question.Update(ctx, q); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateQuestion
			}
			return err
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "update", []uint{id})
	resp := dto.NewQuestionResponse(updated)
	return &resp, nil
}

func applyQuestionUpdate(q *model.Question, req *dto.UpdateQuestionRequest) error {
	if req.QType != nil {
		if !model.IsValidQuestionType(*req.QType) {
			return ErrInvalidQuestionType
		}
		q.QType = *req.QType
	}
	if req.Options != nil {
		q.Options = req.Options
	}
	if req.Answer != nil {
		q.Answer = *req.Answer
	}
	if req.Analysis != nil {
		q.Analysis = *req.Analysis
	}
	if req.Difficulty != nil {
		if *req.Difficulty < 1 || *req.Difficulty > 5 {
			return ErrInvalidDifficulty
		}
		q.Difficulty = *req.Difficulty
	}
	if req.Tags != nil {
		q.Tags = req.Tags
	}
	if req.Score != nil {
		q.Score = *req.Score
	}
	if req.SourceDoc != nil {
		q.SourceDoc = req.SourceDoc
	}
	if req.PageNum != nil {
		q.PageNum = req.PageNum
	}
	if req.ChapterNum != nil {
		q.ChapterNum = req.ChapterNum
	}
	if req.ClauseNum != nil {
		q.ClauseNum = req.ClauseNum
	}
	if req.KnowledgePoints != nil {
		q.KnowledgePoints = req.KnowledgePoints
	}
	if req.Status != nil {
		if !model.IsValidStatus(*req.Status) {
			return ErrInvalidStatus
		}
		q.Status = *req.Status
	}
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *questionService) Delete(ctx context.Context, id uint) (*dto.QuestionResponse, error) {
	q, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Question.Delete(ctx, id); err != nil {
		s.logger.Error("删除题目失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	s.publish(ctx, "delete", []uint{id})
	resp := dto.NewQuestionResponse(q)
	return &resp, nil
}

// ────────────────────── Review ──────────────────────

func (s *questionService) Review(ctx context.Context, id uint, req *dto.ReviewRequest, operator string) (*dto.QuestionResponse, error) {
	if !model.IsValidReviewStatus(req.Status) {
		return nil, ErrInvalidReviewStatus
	}

	q, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	reviewer := req.Reviewer
	if reviewer == "" {
		reviewer = reviewerName(operator)
	}
	now := s.now().UTC()

	q.Status = req.Status
	q.ReviewComment = req.Comment
	q.Reviewer = &reviewer
	q.ReviewedAt = &now

	if err := s.repo.Question.Update(ctx, q); err != nil {
		s.logger.Error("审核题目失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}

	s.publish(ctx, "review", []uint{id})
	resp := dto.NewQuestionResponse(q)
	return &resp, nil
}

// reviewerName 审核人缺省为 Admin
func reviewerName(operator string) string {
	if operator == "" || operator == defaultOperator {
		return "Admin"
	}
	return operator
}

// ────────────────────── CheckDuplicate ──────────────────────

// CheckDuplicate 相似题检测尚未接入相似度算法，固定返回空列表
// 完全相同的题干在 Create 时已由指纹拦截
func (s *questionService) CheckDuplicate(_ context.Context, _ *dto.CheckDuplicateRequest) (*dto.CheckDuplicateResponse, error) {
	return &dto.CheckDuplicateResponse{SimilarQuestions: []dto.QuestionResponse{}}, nil
}

// ── 事件 ──

func (s *questionService) publish(ctx context.Context, change string, ids []uint) {
	if s.events == nil || len(ids) == 0 {
		return
	}
	ev := events.Event{
		Type:       change,
		TargetIDs:  ids,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, events.TopicQuestionChanged, ev); err != nil {
		s.logger.Warn("发布题目变更事件失败", zap.String("change", change), zap.Error(err))
	}
}
