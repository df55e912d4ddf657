package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"exam-bank/backend/config"
	"exam-bank/backend/internal/api/handler"
	"exam-bank/backend/internal/api/middleware"
	"exam-bank/backend/pkg/jwt"
	"exam-bank/backend/pkg/metrics"
	"exam-bank/backend/pkg/redis"
	"exam-bank/backend/pkg/tracing"
)

const (
	roleAdmin  = "admin"
	roleViewer = "viewer"
)

// Setup 初始化并返回 Gin 路由引擎
// auth.enabled=false 时所有请求以匿名管理员身份处理
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	revoker middleware.RevocationChecker,
	rdb *redis.Client,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(bodyLimit(cfg)))
	r.Use(metrics.Middleware())
	if cfg.Tracing.Enabled {
		r.Use(tracing.GinMiddleware())
	}

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	rl := cfg.RateLimit

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/login", middleware.RateLimit(rdb, perMinute(rl.LoginPerMinute, 20), time.Minute), h.Auth.Login)

		authorized := v1.Group("")
		if cfg.Auth.Enabled && jwtMgr != nil {
			authorized.Use(middleware.JWTAuth(jwtMgr, revoker))
		} else {
			authorized.Use(middleware.AnonymousAdmin())
		}
		readers := middleware.RoleAuth(roleAdmin, roleViewer)
		admins := middleware.RoleAuth(roleAdmin)

		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 题目模块
			questions := authorized.Group("/questions")
			{
				questions.GET("", readers, h.Question.ListQuestions)
				questions.POST("", admins, h.Question.CreateQuestion)
				questions.POST("/check_duplicate", readers, h.Question.CheckDuplicate)
				questions.POST("/export", readers, h.Question.ExportQuestions)
				questions.POST("/parse_import", admins, h.Question.ParseImport)
				questions.POST("/import", admins, h.Question.Import)
				questions.POST("/batch", admins, h.Question.Batch)
				questions.POST("/batch_create", admins, h.Question.BatchCreate)
				questions.GET("/:id", readers, h.Question.GetQuestion)
				questions.PUT("/:id", admins, h.Question.UpdateQuestion)
				questions.DELETE("/:id", admins, h.Question.DeleteQuestion)
				questions.POST("/:id/review", admins, h.Question.ReviewQuestion)
			}

			// 标签模块
			tags := authorized.Group("/tags")
			{
				tags.GET("", readers, h.Tag.ListTags)
				tags.GET("/tree", readers, h.Tag.TagTree)
				tags.POST("", admins, h.Tag.CreateTag)
				tags.PUT("/:id", admins, h.Tag.UpdateTag)
				tags.DELETE("/:id", admins, h.Tag.DeleteTag)
			}

			// 组卷规则
			rules := authorized.Group("/rules")
			{
				rules.GET("", readers, h.Rule.ListRules)
				rules.GET("/:id", readers, h.Rule.GetRule)
				rules.POST("", admins, h.Rule.CreateRule)
				rules.PUT("/:id", admins, h.Rule.UpdateRule)
				rules.DELETE("/:id", admins, h.Rule.DeleteRule)
			}

			// 试卷模块
			papers := authorized.Group("/papers")
			{
				papers.POST("/generate", admins, h.Paper.GeneratePaper)
				papers.GET("", readers, h.Paper.ListPapers)
				papers.GET("/:id", readers, h.Paper.GetPaper)
				papers.GET("/:id/export", readers, h.Paper.ExportPaper)
			}

			// 操作日志
			authorized.GET("/logs", admins, h.Log.ListLogs)

			// AI 辅助出题
			ai := authorized.Group("/ai", admins)
			{
				ai.POST("/parse_file", middleware.RateLimit(rdb, perMinute(rl.ParseFilePerMinute, 10), time.Minute), h.AI.ParseFile)
				ai.POST("/generate", middleware.RateLimit(rdb, perMinute(rl.AIGeneratePerMinute, 50), time.Minute), h.AI.Generate)
			}
		}
	}

	return r
}

func perMinute(configured, fallback int) int {
	if configured > 0 {
		return configured
	}
	return fallback
}

func bodyLimit(cfg *config.Config) int64 {
	mb := cfg.Server.BodyLimitMB
	if mb <= 0 {
		mb = 12
	}
	return int64(mb) << 20
}
