package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"exam-bank/backend/config"
	"exam-bank/backend/internal/exporter"
	"exam-bank/backend/internal/repository"
	"exam-bank/backend/pkg/events"
	"exam-bank/backend/pkg/jwt"
	"exam-bank/backend/pkg/llm"
	"exam-bank/backend/pkg/storage"
)

// Cache JSON 缓存（由 pkg/redis.Client 实现）
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// TokenBlacklist Token 黑名单（由 pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Dependencies 可选的外部依赖，未配置的字段保持 nil
type Dependencies struct {
	JWT       *jwt.Manager
	Cache     Cache
	Blacklist TokenBlacklist
	Store     storage.ObjectStore
	Events    events.Publisher
	LLM       llm.Completer
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth     AuthService
	Question QuestionService
	Tag      TagService
	Rule     RuleService
	Paper    PaperService
	Log      LogService
	AI       AIService
	Parser   FileParser
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Dependencies,
	logger *zap.Logger,
) *Service {
	renderer := exporter.NewRenderer(exporter.WithPDFFont(cfg.Export.PDFFontPath))

	return &Service{
		Auth:     NewAuthService(&cfg.Auth, deps.JWT, deps.Blacklist, logger),
		Question: NewQuestionService(repo, cfg, deps.Events, logger),
		Tag:      NewTagService(repo, deps.Cache, logger),
		Rule:     NewRuleService(repo, logger),
		Paper:    NewPaperService(repo, renderer, deps.Store, deps.Events, logger),
		Log:      NewLogService(repo, logger),
		AI:       NewAIService(&cfg.AI, deps.LLM, logger),
		Parser:   NewFileParser(),
	}
}
