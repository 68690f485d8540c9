package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"watch-reserve/backend/config"
	"watch-reserve/backend/internal/api/handler"
	"watch-reserve/backend/internal/api/router"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/repository"
	"watch-reserve/backend/internal/service"
	"watch-reserve/backend/pkg/alert"
	"watch-reserve/backend/pkg/database"
	"watch-reserve/backend/pkg/googleauth"
	"watch-reserve/backend/pkg/jwt"
	applogger "watch-reserve/backend/pkg/logger"
	"watch-reserve/backend/pkg/redis"
	"watch-reserve/backend/pkg/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("WR_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, cfg.Sentry.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 2.1 运维告警（DSN 为空时仅写日志）
	sentryEnabled := alert.Init(&cfg.Sentry, logger)
	defer alert.Flush()
	reporter := alert.NewReporter(logger, sentryEnabled)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if _, err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 对象存储（可选）
	var store *storage.Client
	if cfg.Storage.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err = storage.NewClient(ctx, &cfg.Storage, logger)
		cancel()
		if err != nil {
			logger.Fatal("对象存储初始化失败", zap.Error(err))
		}
	}

	// 6. 加载商品目录
	cat, err := loadCatalog(cfg, store)
	if err != nil {
		logger.Fatal("加载商品目录失败", zap.Error(err))
	}
	logger.Info("商品目录已加载", zap.Int("count", cat.Len()))

	// 7. 初始化 JWT 管理器与 Google 凭证校验
	jwtMgr := jwt.NewManager(&cfg.Auth)
	verifier := googleauth.NewVerifier(cfg.Google.ClientID, cfg.Google.JWKSURL)

	// 8. 依赖注入: Repository → Service → Handler
	var blacklist service.TokenBlacklist
	if rdb != nil {
		blacklist = rdb
	}
	var images service.ImageStore
	if store != nil {
		images = store
	}

	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, cat, jwtMgr, verifier, blacklist, images, reporter, logger)
	h := handler.NewHandler(cfg, svc)

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, db, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if sqlDB != nil {
		sqlDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

// loadCatalog 启用对象存储时读取 catalog.object，否则读取本地 catalog.path
func loadCatalog(cfg *config.Config, store *storage.Client) (*catalog.Catalog, error) {
	var (
		r   io.ReadCloser
		err error
	)
	if store != nil && cfg.Catalog.Object != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		r, err = store.Open(ctx, cfg.Catalog.Object)
	} else {
		r, err = os.Open(cfg.Catalog.Path)
	}
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return catalog.Load(r)
}
