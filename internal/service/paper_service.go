package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"exam-bank/backend/internal/assembly"
	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/exporter"
	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
	"exam-bank/backend/pkg/events"
	"exam-bank/backend/pkg/metrics"
	"exam-bank/backend/pkg/storage"
	"exam-bank/backend/pkg/tracing"
)

// ── 试卷模块业务错误 ──

var (
	ErrPaperNotFound      = errors.New("试卷不存在")
	ErrPaperNoQuestions   = errors.New("无法生成试卷，请确认有足够符合规则的已发布题目")
	ErrPaperNoConfig      = errors.New("请提供 rule_config 或 rule_id")
	ErrPaperInvalidConfig = errors.New("组卷配置无效")
)

// PaperService 组卷与试卷导出业务接口
type PaperService interface {
	Generate(ctx context.Context, req *dto.GeneratePaperRequest, operator string) (*model.ExamPaper, error)
	GetByID(ctx context.Context, id uint) (*model.ExamPaper, error)
	List(ctx context.Context, req *dto.PaginationRequest) ([]model.ExamPaper, int64, error)
	Export(ctx context.Context, id uint, format string, includeAnswers bool) (*dto.ExportFile, error)
}

type paperService struct {
	repo     *repository.Repository
	renderer *exporter.Renderer
	store    storage.ObjectStore
	events   events.Publisher
	logger   *zap.Logger
	seed     func() int64
}

// NewPaperService 创建 PaperService 实例
// store 为 nil 时不缓存导出文件，pub 为 nil 时不发布事件
func NewPaperService(
	repo *repository.Repository,
	renderer *exporter.Renderer,
	store storage.ObjectStore,
	pub events.Publisher,
	logger *zap.Logger,
) PaperService {
	return &paperService{
		repo:     repo,
		renderer: renderer,
		store:    store,
		events:   pub,
		logger:   logger,
		seed:     func() int64 { return time.Now().UnixNano() },
	}
}

// ═══════════════════════════════════════════════════════════
// Generate，按规则抽题并保存快照
// ═══════════════════════════════════════════════════════════
//
// 流程：
//   1. 解析配置：请求中的 rule_config 优先，否则取 rule_id 对应规则
//   2. 加载全部 published 题目作为题池
//   3. 组卷引擎抽题（题量不足、未知题型均不报错，记录缺口指标）
//   4. 抽中为空 → ErrPaperNoQuestions，不落库
//   5. 试卷与操作日志同事务写入，随后发布 paper.generated 事件

func (s *paperService) Generate(ctx context.Context, req *dto.GeneratePaperRequest, operator string) (*model.ExamPaper, error) {
	ctx, span := tracing.StartSpan(ctx, "paper.generate", attribute.String("paper.title", req.Title))
	defer span.End()

	cfg, err := s.resolveConfig(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	pool, err := s.repo.Question.ListAll(ctx, repository.QuestionFilter{Status: model.StatusPublished}, 0)
	if err != nil {
		s.logger.Error("加载题池失败", zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if unknown := cfg.UnknownTypes(); len(unknown) > 0 {
		s.logger.Warn("题型分布包含未知题型，已跳过", zap.Strings("q_types", unknown))
	}

	rng := rand.New(rand.NewSource(s.seed()))
	selected := assembly.Generate(pool, cfg, rng)

	for qType, missing := range assembly.Shortfall(cfg, selected) {
		metrics.AssemblyShortfall.WithLabelValues(qType).Add(float64(missing))
		s.logger.Warn("题量不足", zap.String("q_type", qType), zap.Int("missing", missing))
	}
	span.SetAttributes(
		attribute.Int("assembly.pool_size", len(pool)),
		attribute.Int("assembly.requested", cfg.TotalRequested()),
		attribute.Int("assembly.selected", len(selected)),
	)

	if len(selected) == 0 {
		return nil, ErrPaperNoQuestions
	}

	snapshot := make([]model.QuestionSnapshot, 0, len(selected))
	ids := make([]uint, 0, len(selected))
	for i := range selected {
		snapshot = append(snapshot, selected[i].Snapshot())
		ids = append(ids, selected[i].ID)
	}

	paper := &model.ExamPaper{
		Title:             req.Title,
		RuleID:            req.RuleID,
		QuestionsSnapshot: snapshot,
	}
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.ExamPaper.Create(ctx, paper); err != nil {
			return err
		}
		return tx.OperationLog.Create(ctx, auditEntry{
			operator:   operator,
			action:     "generate_paper",
			targetType: model.TargetPaper,
			targetIDs:  []uint{paper.ID},
			details:    map[string]interface{}{"title": paper.Title, "question_count": len(snapshot)},
		}.build(nil))
	})
	if err != nil {
		s.logger.Error("保存试卷失败", zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.PapersGenerated.Inc()
	span.SetAttributes(attribute.Int64("paper.id", int64(paper.ID)))
	s.publishGenerated(ctx, paper, ids, operator)

	s.logger.Info("试卷生成成功",
		zap.Uint("paper_id", paper.ID),
		zap.Int("questions", len(snapshot)),
	)
	return paper, nil
}

// resolveConfig 请求配置优先；给出 rule_id 时规则必须存在
func (s *paperService) resolveConfig(ctx context.Context, req *dto.GeneratePaperRequest) (assembly.RuleConfig, error) {
	var ruleConfig []byte
	if req.RuleID != nil {
		rule, err := s.repo.ExamRule.GetByID(ctx, *req.RuleID)
		if err != nil {
			if repository.IsNotFound(err) {
				return assembly.RuleConfig{}, ErrRuleNotFound
			}
			return assembly.RuleConfig{}, err
		}
		ruleConfig = rule.Config
	}

	raw := []byte(req.RuleConfig)
	if isEmptyValue(req.RuleConfig) {
		raw = ruleConfig
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return assembly.RuleConfig{}, ErrPaperNoConfig
	}

	cfg, err := assembly.ParseRuleConfig(raw)
	if err != nil {
		return assembly.RuleConfig{}, fmt.Errorf("%w: %v", ErrPaperInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return assembly.RuleConfig{}, fmt.Errorf("%w: %v", ErrPaperInvalidConfig, err)
	}
	return cfg, nil
}

func (s *paperService) publishGenerated(ctx context.Context, paper *model.ExamPaper, ids []uint, operator string) {
	if s.events == nil {
		return
	}
	ev := events.Event{
		Type:      events.TopicPaperGenerated,
		TargetIDs: ids,
		UserID:    operator,
		Payload: map[string]interface{}{
			"paper_id": paper.ID,
			"title":    paper.Title,
		},
		OccurredAt: time.Now(),
	}
	if err := s.events.Publish(ctx, events.TopicPaperGenerated, ev); err != nil {
		s.logger.Warn("发布组卷事件失败", zap.Uint("paper_id", paper.ID), zap.Error(err))
	}
}

// ────────────────────── GetByID / List ──────────────────────

func (s *paperService) GetByID(ctx context.Context, id uint) (*model.ExamPaper, error) {
	paper, err := s.repo.ExamPaper.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrPaperNotFound
		}
		s.logger.Error("查询试卷失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return paper, nil
}

func (s *paperService) List(ctx context.Context, req *dto.PaginationRequest) ([]model.ExamPaper, int64, error) {
	papers, total, err := s.repo.ExamPaper.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询试卷列表失败", zap.Error(err))
		return nil, 0, err
	}
	if papers == nil {
		papers = []model.ExamPaper{}
	}
	return papers, total, nil
}

// ═══════════════════════════════════════════════════════════
// Export，渲染试卷快照
// ═══════════════════════════════════════════════════════════
//
// 快照不可变，同一 (试卷, 格式, 是否含答案) 的渲染结果固定，
// 启用对象存储时按 papers/<id>/<answers|plain>.<ext> 缓存；缓存读写失败只记日志。

func (s *paperService) Export(ctx context.Context, id uint, format string, includeAnswers bool) (*dto.ExportFile, error) {
	if format == "" {
		format = string(exporter.FormatDOCX)
	}
	f, err := exporter.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	paper, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	file := &dto.ExportFile{
		Filename:    exporter.Filename(paper.ID, f),
		ContentType: f.ContentType(),
	}

	key := renderCacheKey(paper.ID, f, includeAnswers)
	if s.store != nil {
		data, err := s.store.Get(ctx, key)
		if err == nil {
			file.Data = data
			return file, nil
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Warn("读取导出缓存失败", zap.String("key", key), zap.Error(err))
		}
	}

	data, err := s.renderer.Render(f, exporter.Paper{
		Title:     paper.Title,
		Questions: []model.QuestionSnapshot(paper.QuestionsSnapshot),
	}, includeAnswers)
	if err != nil {
		s.logger.Error("渲染试卷失败", zap.Uint("id", id), zap.String("format", string(f)), zap.Error(err))
		return nil, err
	}
	file.Data = data

	if s.store != nil {
		if err := s.store.Put(ctx, key, data, file.ContentType); err != nil {
			s.logger.Warn("写入导出缓存失败", zap.String("key", key), zap.Error(err))
		}
	}
	return file, nil
}

func renderCacheKey(id uint, f exporter.Format, includeAnswers bool) string {
	variant := "plain"
	if includeAnswers {
		variant = "answers"
	}
	return fmt.Sprintf("papers/%d/%s.%s", id, variant, f)
}
