package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/config"
	"github.com/folio/internal/content"
	"github.com/folio/internal/db"
	"github.com/folio/internal/logging"
	"github.com/folio/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 测试数据生成器
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

	gdb, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, gormlogger.Warn)
	if err != nil {
		logger.Fatal("数据库初始化失败", zap.Error(err))
	}

	password := cfg.AdminPassword
	if password == "" {
		password = "admin12345"
	}

	report, err := seed(context.Background(), gdb, logger, password)
	if err != nil {
		logger.Fatal("生成测试数据失败", zap.Error(err))
	}

	fmt.Println("测试数据生成完成！")
	fmt.Printf("用户: admin (密码: %s), reader (密码: reader12345)\n", password)
	fmt.Printf("文章: %d 篇, 分类: %d 个, 标签: %d 个, 评论: %d 条\n",
		report.Posts, report.Categories, report.Tags, report.Comments)
}

type seedReport struct {
	Posts      int
	Categories int
	Tags       int
	Comments   int
}

type seedPost struct {
	title      string
	shortDesc  string
	paragraphs []string
	category   string
	tags       []string
	status     db.PostStatus
	featured   bool
	daysAgo    int
}

var seedCategories = []service.CategoryInput{
	{Name: "Engineering", Slug: "engineering"},
	{Name: "Design", Slug: "design"},
	{Name: "Notes", Slug: "notes"},
}

var seedTags = []string{"Go", "Web", "Databases", "Tooling", "Career"}

var seedPosts = []seedPost{
	{
		title:     "Building fast web services in Go",
		shortDesc: "Framework choice, profiling and the small habits that keep latency low.",
		paragraphs: []string{
			"Go is a comfortable language for network services: the standard library covers most of HTTP and the runtime schedules thousands of goroutines cheaply.",
			"This post walks through the middleware stack behind this site and the measurements that shaped it.",
		},
		category: "engineering",
		tags:     []string{"go", "web"},
		status:   db.PostStatusPublished,
		featured: true,
		daysAgo:  30,
	},
	{
		title:     "Tuning SQLite for a personal site",
		shortDesc: "Indexes, WAL mode and when to stop optimising.",
		paragraphs: []string{
			"SQLite handles a personal site's traffic with room to spare once the obvious indexes exist.",
			"We look at the queries behind listing pages and the two indexes that made them flat.",
		},
		category: "engineering",
		tags:     []string{"databases", "go"},
		status:   db.PostStatusPublished,
		daysAgo:  21,
	},
	{
		title:     "A content editor that stores JSON",
		shortDesc: "Why the posts here are trees instead of markdown.",
		paragraphs: []string{
			"Rich text editors emit structured documents. Keeping that structure in storage means the server decides how every node renders.",
		},
		category: "design",
		tags:     []string{"web", "tooling"},
		status:   db.PostStatusPublished,
		daysAgo:  10,
	},
	{
		title:     "Notes on switching teams",
		shortDesc: "What carried over and what did not.",
		paragraphs: []string{
			"Moving teams resets context but not habits. A short list of what helped during the first month.",
		},
		category: "notes",
		tags:     []string{"career"},
		status:   db.PostStatusPublished,
		daysAgo:  3,
	},
	{
		title:     "Half-written thoughts on tooling",
		shortDesc: "Still a draft.",
		paragraphs: []string{
			"Editors, linters and the build scripts that glue them together.",
		},
		category: "notes",
		tags:     []string{"tooling"},
		status:   db.PostStatusDraft,
	},
	{
		title:     "Next week: caching rendered pages",
		shortDesc: "Scheduled for later.",
		paragraphs: []string{
			"Rendered post bodies are keyed by id and update time, so edits invalidate themselves.",
		},
		category: "engineering",
		tags:     []string{"go", "web"},
		status:   db.PostStatusScheduled,
		daysAgo:  -7,
	},
}

// seed 写入演示数据。已有文章时跳过，避免重复执行覆盖手工内容。
func seed(ctx context.Context, gdb *gorm.DB, logger *zap.Logger, adminPassword string) (seedReport, error) {
	var report seedReport

	var existing int64
	if err := gdb.WithContext(ctx).Model(&db.Post{}).Count(&existing).Error; err != nil {
		return report, err
	}
	if existing > 0 {
		logger.Info("文章已存在，跳过生成", zap.Int64("posts", existing))
		return report, nil
	}

	users := service.NewUserService(gdb)
	admin, _, err := users.EnsureAdmin(ctx, service.RegisterInput{
		Username: "admin",
		Email:    "admin@example.com",
		Password: adminPassword,
		Name:     "Site Admin",
	})
	if err != nil {
		return report, fmt.Errorf("create admin: %w", err)
	}
	reader, err := users.Register(ctx, service.RegisterInput{
		Username: "reader",
		Email:    "reader@example.com",
		Password: "reader12345",
		Name:     "Curious Reader",
	})
	if err != nil && !errors.Is(err, service.ErrUserExists) {
		return report, fmt.Errorf("create reader: %w", err)
	}

	categories := service.NewCategoryService(gdb)
	for _, input := range seedCategories {
		if _, err := categories.Create(ctx, input); err != nil && !errors.Is(err, service.ErrCategoryExists) {
			return report, fmt.Errorf("create category %s: %w", input.Slug, err)
		}
		report.Categories++
	}

	tags := service.NewTagService(gdb)
	for _, name := range seedTags {
		if _, err := tags.Create(ctx, name, ""); err != nil && !errors.Is(err, service.ErrTagExists) {
			return report, fmt.Errorf("create tag %s: %w", name, err)
		}
		report.Tags++
	}

	adminPrincipal := auth.Principal{UserID: admin.ID, Role: auth.Role(admin.Role)}
	posts := service.NewPostService(gdb, content.NewRenderer(logger), logger)
	now := time.Now().UTC()
	var published []uint
	for _, item := range seedPosts {
		body, err := paragraphsDoc(item.paragraphs)
		if err != nil {
			return report, err
		}
		category := item.category
		shortDesc := item.shortDesc
		featured := item.featured
		input := service.PostInput{
			Title:        item.title,
			ShortDesc:    &shortDesc,
			Content:      &body,
			Status:       item.status,
			Featured:     &featured,
			CategorySlug: &category,
			TagSlugs:     item.tags,
		}
		if item.status != db.PostStatusDraft {
			at := now.AddDate(0, 0, -item.daysAgo)
			input.PublishedAt = &at
		}

		post, err := posts.Create(ctx, adminPrincipal, input)
		if err != nil {
			return report, fmt.Errorf("create post %q: %w", item.title, err)
		}
		if post.Status == db.PostStatusPublished {
			published = append(published, post.ID)
		}
		report.Posts++
	}

	if reader != nil && len(published) > 0 {
		comments := service.NewCommentService(gdb, logger)
		readerPrincipal := auth.Principal{UserID: reader.ID, Role: auth.Role(reader.Role)}
		first, err := comments.Create(ctx, readerPrincipal, service.CommentInput{
			PostID:  published[0],
			Content: "Really enjoyed the part about **middleware ordering**.",
		})
		if err != nil {
			return report, fmt.Errorf("create comment: %w", err)
		}
		if err := comments.SetStatus(ctx, adminPrincipal, first.ID, db.CommentStatusApproved); err != nil {
			return report, fmt.Errorf("approve comment: %w", err)
		}
		if _, err := comments.Create(ctx, adminPrincipal, service.CommentInput{
			PostID:   published[0],
			ParentID: &first.ID,
			Content:  "Thanks! A follow-up post is on the way.",
		}); err != nil {
			return report, fmt.Errorf("create reply: %w", err)
		}
		report.Comments = 2
	}

	logger.Info("测试数据生成完成",
		zap.Int("posts", report.Posts),
		zap.Int("categories", report.Categories),
		zap.Int("tags", report.Tags),
		zap.Int("comments", report.Comments))
	return report, nil
}

// paragraphsDoc 把若干段落拼成编辑器使用的文档 JSON。
func paragraphsDoc(paragraphs []string) (string, error) {
	type node struct {
		Type    string `json:"type"`
		Text    string `json:"text,omitempty"`
		Content []node `json:"content,omitempty"`
	}
	doc := node{Type: "doc"}
	for _, p := range paragraphs {
		doc.Content = append(doc.Content, node{
			Type:    "paragraph",
			Content: []node{{Type: "text", Text: p}},
		})
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
