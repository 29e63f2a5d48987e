package router

import (
	"net/http"
	"strings"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/handler"
	"github.com/folio/internal/logging"
	"github.com/folio/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionName = "folio_session"

// Config 是路由层需要的配置。
type Config struct {
	SessionSecret string
	SecureCookies bool
	UploadDir     string
	UploadURLPath string
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger(logger))
	r.Use(cfg.Metrics.Middleware())

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	if dir := strings.TrimSpace(cfg.UploadDir); dir != "" && cfg.UploadURLPath != "" {
		r.Static(cfg.UploadURLPath, dir)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	apiGroup := r.Group("/api")
	apiGroup.Use(api.Authenticate())
	{
		apiGroup.GET("/posts", api.ListPosts)
		apiGroup.GET("/posts/:slug", api.GetPost)
		apiGroup.GET("/posts/:slug/comments", api.ListPostComments)
		apiGroup.POST("/posts/:slug/share", api.SharePost)
		apiGroup.GET("/categories", api.ListCategories)
		apiGroup.GET("/categories/:slug/posts", api.ListCategoryPosts)
		apiGroup.GET("/tags", api.ListTags)
		apiGroup.POST("/contact", api.Contact)
		apiGroup.POST("/subscribe", api.Subscribe)

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", api.Register)
			authGroup.POST("/login", api.Login)
			authGroup.POST("/logout", api.Logout)
			authGroup.GET("/me", api.RequireAuth(), api.Me)
		}

		reader := apiGroup.Group("")
		reader.Use(api.RequireCapability(auth.CapEngage))
		{
			reader.POST("/posts/:slug/like", api.LikePost)
			reader.POST("/comments", api.CreateComment)
			reader.POST("/comments/:id/like", api.LikeComment)
			reader.DELETE("/comments/:id", api.DeleteComment)
		}

		// 后台管理路由，按能力逐组校验
		admin := apiGroup.Group("/admin")
		admin.Use(api.RequireAuth())
		{
			posts := admin.Group("/posts", api.RequireCapability(auth.CapWritePosts))
			{
				posts.GET("", api.AdminListPosts)
				posts.POST("", api.CreatePost)
				posts.POST("/preview", api.PreviewPost)
				posts.GET("/:id", api.AdminGetPost)
				posts.PUT("/:id", api.UpdatePost)
				posts.DELETE("/:id", api.ArchivePost)
				posts.PUT("/:id/seo", api.UpsertPostSEO)
			}

			admin.POST("/uploads", api.RequireCapability(auth.CapUploadMedia), api.UploadImage)

			taxonomy := admin.Group("", api.RequireCapability(auth.CapManageTaxonomy))
			{
				taxonomy.GET("/categories", api.AdminListCategories)
				taxonomy.POST("/categories", api.CreateCategory)
				taxonomy.PUT("/categories/:id", api.UpdateCategory)
				taxonomy.DELETE("/categories/:id", api.DeleteCategory)

				taxonomy.GET("/tags", api.AdminListTags)
				taxonomy.POST("/tags", api.CreateTag)
				taxonomy.PUT("/tags/:id", api.UpdateTag)
				taxonomy.DELETE("/tags/:id", api.DeleteTag)
			}

			moderation := admin.Group("/comments", api.RequireCapability(auth.CapModerateComments))
			{
				moderation.GET("", api.ListModerationComments)
				moderation.PUT("/:id/status", api.SetCommentStatus)
			}

			analytics := admin.Group("/analytics", api.RequireCapability(auth.CapViewAnalytics))
			{
				analytics.GET("", api.AnalyticsOverview)
				analytics.GET("/posts/:id", api.PostViewTrend)
			}

			users := admin.Group("/users", api.RequireCapability(auth.CapManageUsers))
			{
				users.GET("", api.AdminListUsers)
				users.PUT("/:id/role", api.SetUserRole)
			}
		}

		automation := apiGroup.Group("/automation")
		automation.Use(api.AutomationAuth())
		{
			automation.POST("/posts", api.AutomationCreatePost)
			automation.GET("/posts/recent", api.AutomationRecentPosts)
			automation.POST("/posts/:slug/share", api.AutomationSharePost)
		}
	}

	return r
}
