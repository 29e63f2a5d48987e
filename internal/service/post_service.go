package service

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/cache"
	"github.com/folio/internal/content"
	"github.com/folio/internal/db"
	"github.com/folio/internal/metrics"
	"github.com/folio/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const wordsPerMinute = 200

// PostService wraps post related database operations.
type PostService struct {
	db       *gorm.DB
	renderer *content.Renderer
	cache    *cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// PostInput represents fields accepted when creating or updating a post.
// Nil pointers leave the stored value untouched on update.
type PostInput struct {
	Title        string
	Slug         string
	ShortDesc    *string
	Content      *string
	MainImage    *string
	Status       db.PostStatus
	Featured     *bool
	CategorySlug *string
	TagSlugs     []string
	PublishedAt  *time.Time
}

// AdminPostFilter describes filters for the staff post list.
type AdminPostFilter struct {
	Search  string
	Status  db.PostStatus
	Page    int
	PerPage int
}

// AdminPostList aggregates paginated list data and per-status counters.
type AdminPostList struct {
	Posts        []db.Post               `json:"posts"`
	Total        int64                   `json:"total"`
	StatusCounts map[db.PostStatus]int64 `json:"statusCounts"`
	TotalPages   int                     `json:"totalPages"`
	Page         int                     `json:"page"`
	PerPage      int                     `json:"perPage"`
}

// SEOInput 是 SEO 记录的可选字段。
type SEOInput struct {
	MetaTitle    *string `json:"metaTitle"`
	MetaDesc     *string `json:"metaDesc"`
	OGTitle      *string `json:"ogTitle"`
	OGDesc       *string `json:"ogDesc"`
	OGImage      *string `json:"ogImage"`
	Keywords     *string `json:"keywords"`
	CanonicalURL *string `json:"canonicalUrl"`
}

// NewPostService creates a PostService instance.
func NewPostService(gdb *gorm.DB, renderer *content.Renderer, logger *zap.Logger) *PostService {
	if renderer == nil {
		renderer = content.NewRenderer(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{
		db:       gdb,
		renderer: renderer,
		logger:   logger,
		now:      time.Now,
	}
}

// WithCache enables caching of rendered post bodies.
func (s *PostService) WithCache(c *cache.Cache, ttl time.Duration) *PostService {
	s.cache = c
	s.cacheTTL = ttl
	return s
}

func (s *PostService) WithMetrics(m *metrics.Metrics) *PostService {
	s.metrics = m
	return s
}

// WithClock 替换时间来源，测试中用于固定当前时刻。
func (s *PostService) WithClock(now func() time.Time) *PostService {
	s.now = now
	return s
}

// GetBySlug returns the detail view of a reader-visible post. viewerID, when
// non-zero, resolves whether that user liked the post.
func (s *PostService) GetBySlug(ctx context.Context, slug string, viewerID uint) (*PostDetail, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostService.GetBySlug")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	var post db.Post
	err = s.visiblePosts(ctx).
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Preload("SEO").
		Where("posts.slug = ?", strings.TrimSpace(slug)).
		First(&post).Error
	if err != nil {
		if isNotFound(err) {
			err = ErrPostNotFound
			return nil, err
		}
		err = storageError(err)
		return nil, err
	}

	detail := PostDetail{
		PostCard:   ProjectPost(post, s.now()),
		Content:    s.renderContent(ctx, post),
		Status:     string(post.Status),
		ShareCount: post.ShareCount,
		UpdatedAt:  FormatISO(post.UpdatedAt),
		SEO:        post.SEO,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&db.PostLike{}).Where("post_id = ?", post.ID).Count(&detail.LikeCount).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&db.Comment{}).
			Where("post_id = ? AND status = ?", post.ID, db.CommentStatusApproved).
			Count(&detail.CommentCount).Error
	})
	if viewerID != 0 {
		g.Go(func() error {
			var n int64
			if err := s.db.WithContext(gctx).Model(&db.PostLike{}).
				Where("post_id = ? AND user_id = ?", post.ID, viewerID).
				Count(&n).Error; err != nil {
				return err
			}
			detail.Liked = n > 0
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		err = storageError(err)
		return nil, err
	}

	return &detail, nil
}

// renderContent 渲染正文；启用缓存时以文章 ID 与更新时间为键。
func (s *PostService) renderContent(ctx context.Context, post db.Post) template.HTML {
	key := cache.RenderedPostKey(post.ID, post.UpdatedAt)
	if cached, err := cache.Get[string](ctx, s.cache, key); err == nil && cached != nil {
		return template.HTML(*cached)
	} else if err != nil && !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheDisabled) {
		s.logger.Warn("read render cache", zap.Uint("post_id", post.ID), zap.Error(err))
	}

	html := s.renderer.RenderString(post.Content)
	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, string(html), s.cacheTTL); err != nil {
			s.logger.Warn("write render cache", zap.Uint("post_id", post.ID), zap.Error(err))
		}
	}
	return html
}

// VisiblePostID resolves the id of a reader-visible post by slug.
func (s *PostService) VisiblePostID(ctx context.Context, slug string) (uint, error) {
	var post db.Post
	err := s.visiblePosts(ctx).Select("posts.id").Where("posts.slug = ?", strings.TrimSpace(slug)).First(&post).Error
	if err != nil {
		if isNotFound(err) {
			return 0, ErrPostNotFound
		}
		return 0, storageError(err)
	}
	return post.ID, nil
}

// VisibleCard returns the listing projection of a reader-visible post.
func (s *PostService) VisibleCard(ctx context.Context, slug string) (*PostCard, error) {
	var post db.Post
	err := s.visiblePosts(ctx).
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Where("posts.slug = ?", strings.TrimSpace(slug)).
		First(&post).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, storageError(err)
	}
	card := ProjectPost(post, s.now())
	return &card, nil
}

// Get fetches a post by id with all associations preloaded.
func (s *PostService) Get(ctx context.Context, id uint) (*db.Post, error) {
	var post db.Post
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Preload("SEO").
		First(&post, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, storageError(err)
	}
	return &post, nil
}

// Create persists a post authored by actor.
func (s *PostService) Create(ctx context.Context, actor auth.Principal, input PostInput) (*db.Post, error) {
	if !actor.Can(auth.CapWritePosts) {
		return nil, ErrForbidden
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationError("title is required")
	}

	status := input.Status
	if status == "" {
		status = db.PostStatusDraft
	}

	post := db.Post{
		Title:     title,
		ShortDesc: trimmedString(input.ShortDesc),
		MainImage: trimmedPtr(input.MainImage),
		AuthorID:  actor.UserID,
	}
	if input.Featured != nil {
		post.Featured = *input.Featured
	}
	if err := s.applyContent(&post, input.Content); err != nil {
		return nil, err
	}
	if err := s.applyStatus(&post, status, input.PublishedAt); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slug, err := uniqueSlug(tx, input.Slug, title)
		if err != nil {
			return err
		}
		post.Slug = slug

		if input.CategorySlug != nil {
			if post.CategoryID, err = resolveCategory(tx, *input.CategorySlug); err != nil {
				return err
			}
		}

		if err := tx.Omit(clause.Associations).Create(&post).Error; err != nil {
			return storageError(err)
		}
		return replaceTags(tx, &post, input.TagSlugs)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("post created", zap.Uint("post_id", post.ID), zap.String("slug", post.Slug), zap.String("status", string(post.Status)))
	return s.Get(ctx, post.ID)
}

// Update applies input to an existing post. The slug cannot change once
// created. Authors may only update their own posts.
func (s *PostService) Update(ctx context.Context, actor auth.Principal, id uint, input PostInput) (*db.Post, error) {
	post, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if slug := strings.TrimSpace(input.Slug); slug != "" && slug != post.Slug {
		return nil, validationError("slug cannot be changed")
	}
	if title := strings.TrimSpace(input.Title); title != "" {
		post.Title = title
	}
	if input.ShortDesc != nil {
		post.ShortDesc = trimmedString(input.ShortDesc)
	}
	if input.MainImage != nil {
		post.MainImage = trimmedPtr(input.MainImage)
	}
	if input.Featured != nil {
		post.Featured = *input.Featured
	}
	if input.Content != nil {
		if err := s.applyContent(post, input.Content); err != nil {
			return nil, err
		}
	}
	if input.Status != "" || input.PublishedAt != nil {
		status := input.Status
		if status == "" {
			status = post.Status
		}
		if err := s.applyStatus(post, status, input.PublishedAt); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.CategorySlug != nil {
			categoryID, err := resolveCategory(tx, *input.CategorySlug)
			if err != nil {
				return err
			}
			post.CategoryID = categoryID
		}

		if err := tx.Omit(clause.Associations).Save(post).Error; err != nil {
			return storageError(err)
		}
		if input.TagSlugs != nil {
			return replaceTags(tx, post, input.TagSlugs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, post.ID)
	return s.Get(ctx, post.ID)
}

// Archive hides a post from readers without deleting it.
func (s *PostService) Archive(ctx context.Context, actor auth.Principal, id uint) (*db.Post, error) {
	post, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	post.Status = db.PostStatusArchived
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(post).Error; err != nil {
		return nil, storageError(err)
	}
	s.invalidate(ctx, post.ID)
	return post, nil
}

// UpsertSEO 创建或覆盖文章的 SEO 记录。
func (s *PostService) UpsertSEO(ctx context.Context, actor auth.Principal, postID uint, input SEOInput) (*db.PostSEO, error) {
	if _, err := s.loadEditable(ctx, actor, postID); err != nil {
		return nil, err
	}

	seo := db.PostSEO{
		PostID:       postID,
		MetaTitle:    trimmedPtr(input.MetaTitle),
		MetaDesc:     trimmedPtr(input.MetaDesc),
		OGTitle:      trimmedPtr(input.OGTitle),
		OGDesc:       trimmedPtr(input.OGDesc),
		OGImage:      trimmedPtr(input.OGImage),
		Keywords:     trimmedPtr(input.Keywords),
		CanonicalURL: trimmedPtr(input.CanonicalURL),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"meta_title", "meta_desc", "og_title", "og_desc", "og_image", "keywords", "canonical_url", "updated_at",
		}),
	}).Create(&seo).Error
	if err != nil {
		return nil, storageError(err)
	}

	var stored db.PostSEO
	if err := s.db.WithContext(ctx).Where("post_id = ?", postID).First(&stored).Error; err != nil {
		return nil, storageError(err)
	}
	return &stored, nil
}

// ListForAdmin provides paginated posts with per-status counters. Callers
// without CapManageAllPosts only see their own posts.
func (s *PostService) ListForAdmin(ctx context.Context, actor auth.Principal, filter AdminPostFilter) (*AdminPostList, error) {
	if !actor.Can(auth.CapWritePosts) {
		return nil, ErrForbidden
	}

	result := &AdminPostList{Page: filter.Page, PerPage: filter.PerPage}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 || result.PerPage > MaxPageSize {
		result.PerPage = 20
	}

	base := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&db.Post{})
		if !actor.Can(auth.CapManageAllPosts) {
			query = query.Where("posts.author_id = ?", actor.UserID)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
			query = query.Where(`(LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.slug) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		return query
	}

	var rows []struct {
		Status db.PostStatus
		Count  int64
	}
	if err := base().Select("posts.status AS status, COUNT(*) AS count").Group("posts.status").Scan(&rows).Error; err != nil {
		return nil, storageError(err)
	}
	result.StatusCounts = make(map[db.PostStatus]int64, len(rows))
	for _, row := range rows {
		result.StatusCounts[row.Status] = row.Count
	}

	listQuery := func() *gorm.DB {
		query := base()
		if filter.Status != "" {
			query = query.Where("posts.status = ?", filter.Status)
		}
		return query
	}
	if err := listQuery().Count(&result.Total).Error; err != nil {
		return nil, storageError(err)
	}

	var posts []db.Post
	if err := listQuery().
		Preload("Author").
		Preload("Category").
		Preload("Tags").
		Order("posts.updated_at desc, posts.id desc").
		Offset((result.Page - 1) * result.PerPage).
		Limit(result.PerPage).
		Find(&posts).Error; err != nil {
		return nil, storageError(err)
	}

	result.Posts = posts
	result.TotalPages = TotalPages(result.Total, result.PerPage)
	return result, nil
}

// PublishDue promotes SCHEDULED posts whose PublishedAt is not after now.
func (s *PostService) PublishDue(ctx context.Context, now time.Time) (int, error) {
	res := s.db.WithContext(ctx).
		Model(&db.Post{}).
		Where("status = ? AND published_at IS NOT NULL AND published_at <= ?", db.PostStatusScheduled, now).
		UpdateColumns(map[string]any{
			"status":     db.PostStatusPublished,
			"published":  true,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, storageError(res.Error)
	}
	n := int(res.RowsAffected)
	s.metrics.PostsPublished(n)
	return n, nil
}

func (s *PostService) loadEditable(ctx context.Context, actor auth.Principal, id uint) (*db.Post, error) {
	if !actor.Can(auth.CapWritePosts) {
		return nil, ErrForbidden
	}
	var post db.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, storageError(err)
	}
	if post.AuthorID != actor.UserID && !actor.Can(auth.CapManageAllPosts) {
		return nil, ErrForbidden
	}
	return &post, nil
}

// applyContent 校验正文文档并据此计算阅读时长。
func (s *PostService) applyContent(post *db.Post, raw *string) error {
	if raw == nil || strings.TrimSpace(*raw) == "" || strings.TrimSpace(*raw) == "null" {
		post.Content = nil
		post.ReadingTime = nil
		return nil
	}
	root, err := content.ParseString(*raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	body := *raw
	post.Content = &body
	minutes := ReadingTime(content.PlainText(root))
	post.ReadingTime = &minutes
	return nil
}

// applyStatus sets the status and stamps PublishedAt on first publish.
func (s *PostService) applyStatus(post *db.Post, status db.PostStatus, publishedAt *time.Time) error {
	if !status.Valid() {
		return validationError("unknown status %q", status)
	}
	if publishedAt != nil {
		at := *publishedAt
		post.PublishedAt = &at
	}
	switch status {
	case db.PostStatusScheduled:
		if post.PublishedAt == nil {
			return validationError("scheduled posts need publishedAt")
		}
	case db.PostStatusPublished:
		if post.PublishedAt == nil {
			now := s.now()
			post.PublishedAt = &now
		}
	}
	post.Status = status
	return nil
}

func (s *PostService) invalidate(ctx context.Context, postID uint) {
	if err := s.cache.InvalidatePost(ctx, postID); err != nil {
		s.logger.Warn("invalidate post cache", zap.Uint("post_id", postID), zap.Error(err))
	}
}

// uniqueSlug 校验显式 slug 的唯一性；由标题生成时遇到冲突追加数字后缀。
func uniqueSlug(tx *gorm.DB, requested, title string) (string, error) {
	if requested = strings.TrimSpace(requested); requested != "" {
		slug := Slugify(requested)
		if slug == "" {
			return "", validationError("slug %q has no usable characters", requested)
		}
		taken, err := slugTaken(tx, slug)
		if err != nil {
			return "", err
		}
		if taken {
			return "", ErrSlugTaken
		}
		return slug, nil
	}

	base := Slugify(title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for i := 2; ; i++ {
		taken, err := slugTaken(tx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func slugTaken(tx *gorm.DB, slug string) (bool, error) {
	var count int64
	if err := tx.Model(&db.Post{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, storageError(err)
	}
	return count > 0, nil
}

// resolveCategory maps a category slug to its id; an empty slug clears it.
func resolveCategory(tx *gorm.DB, slug string) (*uint, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	var category db.Category
	if err := tx.Where("slug = ?", slug).First(&category).Error; err != nil {
		if isNotFound(err) {
			return nil, validationError("unknown category %q", slug)
		}
		return nil, storageError(err)
	}
	return &category.ID, nil
}

func replaceTags(tx *gorm.DB, post *db.Post, tagSlugs []string) error {
	slugs := cleanSlugs(tagSlugs)
	var tags []db.Tag
	if len(slugs) > 0 {
		if err := tx.Where("slug IN ?", slugs).Find(&tags).Error; err != nil {
			return storageError(err)
		}
		if len(tags) != len(slugs) {
			return validationError("unknown tag in %v", slugs)
		}
	}
	if err := tx.Model(post).Association("Tags").Replace(tags); err != nil {
		return storageError(err)
	}
	return nil
}

// ReadingTime estimates minutes to read text at 200 words per minute, at least 1.
func ReadingTime(text string) int {
	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func trimmedString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
