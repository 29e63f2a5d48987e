package handler

import (
	"time"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/content"
	"github.com/folio/internal/metrics"
	"github.com/folio/internal/service"
	"github.com/folio/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options 汇总 API 依赖的外部配置。
type Options struct {
	AutomationToken string
	DefaultPageSize int
	Webhooks        service.WebhookConfig
	Images          storage.ImageStore
	Renderer        *content.Renderer
	Tokens          *auth.TokenManager
	Services        *Services
	Metrics         *metrics.Metrics
	Logger          *zap.Logger
}

// Services lets callers supply preconfigured services, for example a
// PostService with the render cache enabled. Nil fields are built from db.
type Services struct {
	Posts      *service.PostService
	Categories *service.CategoryService
	Tags       *service.TagService
	Comments   *service.CommentService
	Engagement *service.EngagementService
	Analytics  *service.AnalyticsService
	Users      *service.UserService
	Webhooks   *service.WebhookService
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db              *gorm.DB
	posts           *service.PostService
	categories      *service.CategoryService
	tags            *service.TagService
	comments        *service.CommentService
	engagement      *service.EngagementService
	analytics       *service.AnalyticsService
	users           *service.UserService
	webhooks        *service.WebhookService
	images          storage.ImageStore
	renderer        *content.Renderer
	tokens          *auth.TokenManager
	metrics         *metrics.Metrics
	logger          *zap.Logger
	automationToken string
	defaultPageSize int
	now             func() time.Time
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := opts.DefaultPageSize
	if pageSize <= 0 || pageSize > service.MaxPageSize {
		pageSize = 9
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(opts.AutomationToken, 0)
	}

	renderer := opts.Renderer
	if renderer == nil {
		renderer = content.NewRenderer(logger)
	}

	svc := opts.Services
	if svc == nil {
		svc = &Services{}
	}
	if svc.Posts == nil {
		svc.Posts = service.NewPostService(gdb, renderer, logger).WithMetrics(opts.Metrics)
	}
	if svc.Categories == nil {
		svc.Categories = service.NewCategoryService(gdb)
	}
	if svc.Tags == nil {
		svc.Tags = service.NewTagService(gdb)
	}
	if svc.Comments == nil {
		svc.Comments = service.NewCommentService(gdb, logger)
	}
	if svc.Engagement == nil {
		svc.Engagement = service.NewEngagementService(gdb, opts.Metrics)
	}
	if svc.Analytics == nil {
		svc.Analytics = service.NewAnalyticsService(gdb)
	}
	if svc.Users == nil {
		svc.Users = service.NewUserService(gdb)
	}
	if svc.Webhooks == nil {
		svc.Webhooks = service.NewWebhookService(opts.Webhooks, opts.Metrics, logger)
	}

	return &API{
		db:              gdb,
		posts:           svc.Posts,
		categories:      svc.Categories,
		tags:            svc.Tags,
		comments:        svc.Comments,
		engagement:      svc.Engagement,
		analytics:       svc.Analytics,
		users:           svc.Users,
		webhooks:        svc.Webhooks,
		images:          opts.Images,
		renderer:        renderer,
		tokens:          tokens,
		metrics:         opts.Metrics,
		logger:          logger,
		automationToken: opts.AutomationToken,
		defaultPageSize: pageSize,
		now:             time.Now,
	}
}

// DB exposes the underlying gorm instance for health checks.
func (a *API) DB() *gorm.DB {
	return a.db
}
