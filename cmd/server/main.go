package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"exam-bank/backend/config"
	"exam-bank/backend/internal/api/handler"
	"exam-bank/backend/internal/api/router"
	"exam-bank/backend/internal/repository"
	"exam-bank/backend/internal/service"
	"exam-bank/backend/pkg/database"
	"exam-bank/backend/pkg/events"
	"exam-bank/backend/pkg/jwt"
	"exam-bank/backend/pkg/llm"
	applogger "exam-bank/backend/pkg/logger"
	"exam-bank/backend/pkg/metrics"
	"exam-bank/backend/pkg/redis"
	"exam-bank/backend/pkg/storage"
	"exam-bank/backend/pkg/tracing"
	"exam-bank/backend/pkg/validator"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
	)

	if err := validator.Register(); err != nil {
		logger.Fatal("注册校验规则失败", zap.Error(err))
	}
	metrics.Register()

	// 3. 连接数据库（postgres 执行内嵌迁移，sqlite 自动建表）
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库初始化失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 4. 可选依赖：未配置或连接失败时降级运行
	var deps service.Dependencies

	// 4.1 Redis：Token 黑名单 + 标签缓存 + 分布式限流
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，黑名单与缓存不可用，限流改为进程内", zap.Error(err))
			rdb = nil
		}
	}
	if rdb != nil {
		deps.Cache = rdb
		deps.Blacklist = rdb
	}

	// 4.2 对象存储：缓存试卷导出文件
	if cfg.Storage.Enabled {
		store, err := storage.NewMinioStore(ctx, &cfg.Storage, logger)
		if err != nil {
			logger.Warn("对象存储不可用，导出文件将不缓存", zap.Error(err))
		} else {
			deps.Store = store
		}
	}

	// 4.3 事件总线
	bus, err := events.NewBus(&cfg.Events, logger)
	if err != nil {
		logger.Warn("事件总线初始化失败，领域事件将不发布", zap.Error(err))
		bus = nil
	}
	if bus != nil {
		deps.Events = bus
		for _, topic := range []string{events.TopicQuestionChanged, events.TopicPaperGenerated} {
			go consumeEvents(ctx, bus, topic, logger)
		}
	}

	// 4.4 链路追踪
	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
		if err != nil {
			logger.Warn("链路追踪初始化失败", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(shutdownCtx)
			}()
		}
	}

	// 4.5 大模型：未配置 API Key 时 AI 出题走 Mock
	if cfg.AI.APIKey != "" {
		deps.LLM = llm.NewClient(&cfg.AI)
	} else {
		logger.Warn("未配置 AI API Key，AI 出题将返回 Mock 数据")
	}

	// 5. 初始化 JWT 管理器
	var jwtMgr *jwt.Manager
	if cfg.Auth.Enabled {
		jwtMgr = jwt.NewManager(&cfg.Auth)
		deps.JWT = jwtMgr
	}

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, deps, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, svc.Auth, rdb, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	writeTimeout := time.Duration(cfg.Server.WriteTimeout) * time.Second
	if writeTimeout <= 0 {
		writeTimeout = 120 * time.Second
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	stop()

	if bus != nil {
		if err := bus.Close(); err != nil {
			logger.Warn("关闭事件总线失败", zap.Error(err))
		}
	}

	// 关闭数据库连接
	sqlDB.Close()

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// consumeEvents 消费领域事件，目前只做计数与日志
func consumeEvents(ctx context.Context, bus *events.Bus, topic string, logger *zap.Logger) {
	err := bus.Consume(ctx, topic, func(_ context.Context, ev events.Event) error {
		metrics.DomainEvents.WithLabelValues(topic).Inc()
		logger.Debug("领域事件",
			zap.String("topic", topic),
			zap.String("type", ev.Type),
			zap.Uints("target_ids", ev.TargetIDs),
			zap.String("user_id", ev.UserID),
		)
		return nil
	})
	if err != nil {
		logger.Warn("事件消费退出", zap.String("topic", topic), zap.Error(err))
	}
}
