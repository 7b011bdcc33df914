package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisClient "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "qrcode-platform/docs"
	"qrcode-platform/internal/account"
	"qrcode-platform/internal/analytics"
	"qrcode-platform/internal/config"
	"qrcode-platform/internal/geo"
	"qrcode-platform/internal/handler"
	"qrcode-platform/internal/limiter"
	"qrcode-platform/internal/middleware"
	"qrcode-platform/internal/model"
	"qrcode-platform/internal/notify"
	"qrcode-platform/internal/repository"
	"qrcode-platform/internal/scan"
	"qrcode-platform/internal/shortcode"
	"qrcode-platform/internal/shortlink"
	"qrcode-platform/pkg/database"
	auth "qrcode-platform/pkg/jwt"
	"qrcode-platform/pkg/logger"
	"qrcode-platform/pkg/redis"
)

// @title 二维码平台 API
// @version 1.0
// @description 动态二维码短链接跳转、扫码记录与统计分析服务
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Bearer {JWT}
// @securityDefinitions.apikey APIKey
// @in header
// @name X-API-Key

func main() {
	configPath := os.Getenv("QR_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, cfgErr := config.Load(configPath)

	logOpts := logger.Options{Level: "info"}
	if cfgErr == nil {
		logOpts = logger.Options{
			Level:      cfg.Log.Level,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		}
	}
	logger.InitLogger(logOpts)
	defer func() {
		if err := logger.Logger.Sync(); err != nil {
			fmt.Println("日志同步失败:", err)
		}
	}()
	sugaredLogger := zap.S()

	if cfgErr != nil {
		sugaredLogger.Fatalf("配置加载失败: %v", cfgErr)
	}
	if cfg.Auth.Secret == "" || cfg.Auth.Secret == "change-me" {
		sugaredLogger.Warn("⚠️ JWT 密钥使用默认值, 请通过 QR_JWT_SECRET 设置")
	}

	db, err := database.InitMySQL(cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name)
	if err != nil {
		sugaredLogger.Fatalf("数据库初始化失败: %v", err)
	}
	sugaredLogger.Info("✅ 数据库连接并迁移成功")

	var rdb *redisClient.Client
	if cfg.Cache.Host != "" {
		rdb, err = redis.Connect(context.Background(), redis.Options{
			Host: cfg.Cache.Host, Port: cfg.Cache.Port, Password: cfg.Cache.Password, DB: cfg.Cache.DB,
			PoolSize: cfg.Cache.PoolSize,
		})
		if err != nil {
			sugaredLogger.Warnf("缓存连接失败, 使用进程内计数: %v", err)
			rdb = nil
		} else {
			defer func() {
				if err := rdb.Close(); err != nil {
					sugaredLogger.Errorf("关闭 Redis 连接失败: %v", err)
				}
			}()
			sugaredLogger.Info("✅ 缓存连接成功")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	codes := repository.NewQRCodeRepository(db)
	scans := repository.NewScanRepository(db)
	subs := repository.NewSubscriptionRepository(db)
	users := repository.NewUserRepository(db)
	sessions := repository.NewSessionRepository(db)
	keys := repository.NewAPIKeyRepository(db)

	// 初始化并启动短码生成器
	shortcodeGenerator := shortcode.NewGenerator(codes, sugaredLogger)
	shortcodeGenerator.Start()
	defer shortcodeGenerator.Stop()
	sugaredLogger.Info("✅ 短码生成器已启动")

	var locator geo.Locator
	if cfg.Geo.Enabled {
		locator = geo.NewClient(geo.Options{
			BaseURL:  cfg.Geo.BaseURL,
			Token:    cfg.Geo.Token,
			Timeout:  time.Duration(cfg.Geo.TimeoutSeconds) * time.Second,
			CacheTTL: time.Duration(cfg.Geo.CacheHours) * time.Hour,
		}, rdb, sugaredLogger)
	}

	hub := notify.NewHub()
	dispatcher := notify.NewDispatcher(hub, cfg.Notify.QueueSize, cfg.Notify.Workers, sugaredLogger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	links := shortlink.NewService(codes, shortcodeGenerator, cfg.App.BaseURL, sugaredLogger)
	recorder := scan.NewRecorder(scans, locator, dispatcher, sugaredLogger)
	stats := analytics.NewService(scans, codes, subs, analytics.Options{
		TopN:   cfg.Analytics.TopN,
		Recent: cfg.Analytics.RecentScans,
	})

	// 多实例部署时账号限流依赖 Redis 共享计数
	var counter limiter.CounterStore = limiter.NewMemoryCounter()
	if rdb != nil {
		counter = limiter.NewRedisCounter(rdb)
	} else {
		sugaredLogger.Warn("⚠️ 未启用 Redis, 账号限流仅在单实例内有效")
	}
	attempts := limiter.NewKeyed(counter, cfg.Auth.AttemptsPerHour, time.Hour)

	tokenManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.ExpirationHours)
	sugaredLogger.Info("✅ 认证管理器初始化成功")

	if err := createAdminUser(ctx, users, subs); err != nil {
		sugaredLogger.Errorf("创建管理员失败: %v", err)
	}

	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := handler.NewEngine(&cfg.Server, &cfg.RateLimit, logger.Logger)
	if err != nil {
		sugaredLogger.Fatalf("创建路由失败: %v", err)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.RegisterRoutes(router, handler.Handlers{
		QRCode:    handler.NewQRCodeHandler(codes, scans, links, recorder),
		Auth:      handler.NewAuthHandler(users, subs, sessions, tokenManager, attempts),
		Analytics: handler.NewAnalyticsHandler(stats),
		APIKeys:   handler.NewAPIKeyHandler(keys),
		PublicAPI: handler.NewPublicAPIHandler(stats),
		Account:   handler.NewAccountHandler(account.NewService(db, sugaredLogger)),
		Ops:       handler.NewOpsHandler(users, subs, sessions, cfg.Cron.Secret),
		Live:      handler.NewLiveHandler(hub, cfg.Notify.AllowedOrigins, sugaredLogger),
	}, handler.Guards{
		Auth:   middleware.AuthMiddleware(tokenManager, sessions),
		Admin:  middleware.AdminMiddleware(),
		APIKey: middleware.APIKeyAuth(keys),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		sugaredLogger.Infof("🚀 服务启动成功, 访问 http://localhost:%d", cfg.Server.Port)
		sugaredLogger.Infof("📚 Swagger 文档地址: http://localhost:%d/swagger/index.html", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugaredLogger.Fatalf("服务启动失败: %v", err)
		}
	}()

	<-ctx.Done()
	sugaredLogger.Info("正在关闭服务...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugaredLogger.Errorf("服务关闭失败: %v", err)
	}
}

func createAdminUser(ctx context.Context, users *repository.UserRepository, subs *repository.SubscriptionRepository) error {
	if _, err := users.FindByLogin(ctx, "admin"); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	password := os.Getenv("QR_ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
	}
	admin := &model.User{Username: "admin", Email: "admin@qrcode.local", Role: model.RoleAdmin, IsActive: true}
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	if err := subs.Upsert(ctx, &model.Subscription{UserID: admin.ID, Plan: model.PlanBusiness, Status: model.StatusActive}); err != nil {
		return err
	}
	zap.S().Infow("✅ 默认管理员创建成功", "username", "admin")
	return nil
}
