package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"exam-bank/backend/internal/assembly"
	"exam-bank/backend/internal/dto"
	"exam-bank/backend/internal/model"
	"exam-bank/backend/internal/repository"
	pkgerrors "exam-bank/backend/pkg/errors"
)

// ── 组卷规则模块业务错误 ──

var (
	ErrRuleNotFound      = errors.New("组卷规则不存在")
	ErrRuleInvalidConfig = errors.New("组卷规则配置无效")
	ErrRuleNameEmpty     = errors.New("规则名称不能为空")
	ErrRuleVersionStale  = errors.New("规则已被他人修改，请刷新后重试")
)

const defaultTotalScore = 100

// RuleService 组卷规则业务接口
type RuleService interface {
	Create(ctx context.Context, req *dto.CreateRuleRequest) (*model.ExamRule, error)
	GetByID(ctx context.Context, id uint) (*model.ExamRule, error)
	List(ctx context.Context, req *dto.PaginationRequest) ([]model.ExamRule, int64, error)
	Update(ctx context.Context, id uint, req *dto.UpdateRuleRequest) (*model.ExamRule, error)
	Delete(ctx context.Context, id uint) (*model.ExamRule, error)
}

type ruleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRuleService 创建 RuleService 实例
func NewRuleService(repo *repository.Repository, logger *zap.Logger) RuleService {
	return &ruleService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *ruleService) Create(ctx context.Context, req *dto.CreateRuleRequest) (*model.ExamRule, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrRuleNameEmpty
	}
	if err := validateRuleConfig(req.Config); err != nil {
		return nil, err
	}

	rule := &model.ExamRule{
		Name:       name,
		TotalScore: defaultTotalScore,
		Config:     datatypes.JSON(req.Config),
	}
	if req.TotalScore != nil {
		rule.TotalScore = *req.TotalScore
	}

	if err := s.repo.ExamRule.Create(ctx, rule); err != nil {
		s.logger.Error("创建组卷规则失败", zap.Error(err))
		return nil, err
	}
	return rule, nil
}

// validateRuleConfig 解析并校验规则配置，未识别的键原样保留不做校验
func validateRuleConfig(raw []byte) error {
	if trimmed := strings.TrimSpace(string(raw)); !strings.HasPrefix(trimmed, "{") {
		return fmt.Errorf("%w: config 必须是 JSON 对象", ErrRuleInvalidConfig)
	}
	cfg, err := assembly.ParseRuleConfig(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRuleInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrRuleInvalidConfig, err)
	}
	return nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *ruleService) GetByID(ctx context.Context, id uint) (*model.ExamRule, error) {
	rule, err := s.repo.ExamRule.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrRuleNotFound
		}
		s.logger.Error("查询组卷规则失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return rule, nil
}

func (s *ruleService) List(ctx context.Context, req *dto.PaginationRequest) ([]model.ExamRule, int64, error) {
	rules, total, err := s.repo.ExamRule.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询组卷规则列表失败", zap.Error(err))
		return nil, 0, err
	}
	if rules == nil {
		rules = []model.ExamRule{}
	}
	return rules, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *ruleService) Update(ctx context.Context, id uint, req *dto.UpdateRuleRequest) (*model.ExamRule, error) {
	rule, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Version != req.Version {
		return nil, ErrRuleVersionStale
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrRuleNameEmpty
		}
		rule.Name = name
	}
	if req.TotalScore != nil {
		rule.TotalScore = *req.TotalScore
	}
	if len(req.Config) > 0 {
		if err := validateRuleConfig(req.Config); err != nil {
			return nil, err
		}
		rule.Config = datatypes.JSON(req.Config)
	}

	if err := s.repo.ExamRule.UpdateWithVersion(ctx, rule, req.Version); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrRuleVersionStale
		}
		s.logger.Error("更新组卷规则失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return rule, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 已生成的试卷保存的是题目快照，删除规则不影响历史试卷
func (s *ruleService) Delete(ctx context.Context, id uint) (*model.ExamRule, error) {
	rule, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ExamRule.Delete(ctx, id); err != nil {
		s.logger.Error("删除组卷规则失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return rule, nil
}
