package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/cache"
	"github.com/folio/internal/config"
	"github.com/folio/internal/content"
	"github.com/folio/internal/db"
	"github.com/folio/internal/handler"
	"github.com/folio/internal/logging"
	"github.com/folio/internal/metrics"
	"github.com/folio/internal/router"
	"github.com/folio/internal/scheduler"
	"github.com/folio/internal/service"
	"github.com/folio/internal/storage"
	"github.com/folio/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.GinMode)

	shutdownTracing, err := telemetry.Init(telemetry.Config{
		Enabled:     cfg.TelemetryEnabled,
		ServiceName: cfg.ServiceName,
		JaegerURL:   cfg.JaegerURL,
	}, logger)
	if err != nil {
		logger.Fatal("failed to init telemetry", zap.Error(err))
	}
	defer shutdownTracing()

	// 初始化数据库
	gdb, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, gormLogLevel(cfg.LogLevel))
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx := context.Background()
	renderCache, err := cache.New(ctx, cfg.RedisURL, "folio")
	if err != nil {
		// 缓存不可用时仍然可以服务，只是每次都重新渲染
		logger.Warn("render cache disabled", zap.Error(err))
		renderCache = nil
	}

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to init image storage", zap.Error(err))
	}

	renderer := content.NewRenderer(logger).OnParseError(m.RenderFailed)
	posts := service.NewPostService(gdb, renderer, logger).
		WithCache(renderCache, cfg.RenderCacheTTL).
		WithMetrics(m)
	users := service.NewUserService(gdb)

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		admin, created, err := users.EnsureAdmin(ctx, service.RegisterInput{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
			Name:     cfg.AdminUsername,
		})
		if err != nil {
			logger.Fatal("failed to ensure admin account", zap.Error(err))
		}
		if created {
			logger.Info("admin account created", zap.String("username", admin.Username))
		}
	}

	webhooks := service.WebhookConfig{
		ContactURL:   cfg.ContactWebhookURL,
		SubscribeURL: cfg.SubscribeWebhookURL,
		SocialURL:    cfg.SocialWebhookURL,
		SiteBaseURL:  cfg.SiteBaseURL,
		Timeout:      cfg.WebhookTimeout,
	}

	api := handler.NewAPI(gdb, handler.Options{
		AutomationToken: cfg.AutomationToken,
		DefaultPageSize: cfg.DefaultPageSize,
		Webhooks:        webhooks,
		Images:          images,
		Renderer:        renderer,
		Tokens:          auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		Services: &handler.Services{
			Posts:      posts,
			Users:      users,
			Comments:   service.NewCommentService(gdb, logger),
			Engagement: service.NewEngagementService(gdb, m),
			Webhooks:   service.NewWebhookService(webhooks, m, logger),
		},
		Metrics: m,
		Logger:  logger,
	})

	// 设置 Gin 路由
	r := router.SetupRouter(api, router.Config{
		SessionSecret: cfg.SessionSecret,
		SecureCookies: strings.HasPrefix(cfg.SiteBaseURL, "https://"),
		UploadDir:     cfg.UploadDir,
		UploadURLPath: cfg.UploadURLPath,
		Logger:        logger,
		Metrics:       m,
	})

	publisher := scheduler.New(posts, logger)
	if err := publisher.Schedule(cfg.PublishSchedule); err != nil {
		logger.Fatal("invalid publish schedule", zap.Error(err))
	}
	publisher.Start()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	publisher.Stop(shutdownCtx)
	if err := renderCache.Close(); err != nil {
		logger.Warn("failed to close cache", zap.Error(err))
	}
	logger.Info("server exited")
}

func newImageStore(ctx context.Context, cfg config.AppConfig) (storage.ImageStore, error) {
	if !cfg.UseS3() {
		return storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLPath), nil
	}
	s3cfg := storage.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		Key:       cfg.S3Key,
		Secret:    cfg.S3Secret,
		PublicURL: cfg.S3PublicURL,
	}
	client, err := storage.NewS3Client(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	return storage.NewS3Store(client, s3cfg), nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return gormlogger.Info
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
