package service

import (
	"context"
	"strings"

	"github.com/folio/internal/db"
	"github.com/folio/internal/telemetry"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// MaxPageSize 限制单页返回的文章数量。
const MaxPageSize = 100

// PostQuery describes a reader-facing listing request. Category and tag
// slugs are OR-matched within their dimension; dimensions are ANDed.
type PostQuery struct {
	CategorySlugs []string
	TagSlugs      []string
	Search        string
	Skip          int
	PageSize      int
}

// Validate rejects non-positive page sizes and negative offsets.
func (q PostQuery) Validate() error {
	if q.PageSize <= 0 {
		return validationError("pageSize must be positive")
	}
	if q.PageSize > MaxPageSize {
		return validationError("pageSize must not exceed %d", MaxPageSize)
	}
	if q.Skip < 0 {
		return validationError("skip must not be negative")
	}
	return nil
}

func (q PostQuery) normalized() PostQuery {
	q.CategorySlugs = cleanSlugs(q.CategorySlugs)
	q.TagSlugs = cleanSlugs(q.TagSlugs)
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// PostPage 是一页文章及其分页信息。
type PostPage struct {
	Posts      []PostCard `json:"posts"`
	TotalCount int64      `json:"totalCount"`
	TotalPages int        `json:"totalPages"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	Skip       int        `json:"skip"`
}

// Empty reports whether the page holds no posts.
func (p *PostPage) Empty() bool {
	return len(p.Posts) == 0
}

// TotalPages returns ceil(total/pageSize), and 0 when there are no rows.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

// ListPublished returns one page of reader-visible posts matching q.
func (s *PostService) ListPublished(ctx context.Context, q PostQuery) (*PostPage, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostService.ListPublished")
	page, err := s.listVisible(ctx, q, nil)
	telemetry.EndSpan(span, err)
	return page, err
}

// ListByCategory lists visible posts of a single category. Tag and search
// filters in q still apply; q.CategorySlugs is ignored.
func (s *PostService) ListByCategory(ctx context.Context, slug string, q PostQuery) (*PostPage, error) {
	ctx, span := telemetry.StartSpan(ctx, "PostService.ListByCategory")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	var category db.Category
	if err = s.db.WithContext(ctx).Where("slug = ?", strings.ToLower(strings.TrimSpace(slug))).First(&category).Error; err != nil {
		if isNotFound(err) {
			err = ErrCategoryNotFound
			return nil, err
		}
		err = storageError(err)
		return nil, err
	}

	q.CategorySlugs = nil
	page, err := s.listVisible(ctx, q, func(query *gorm.DB) *gorm.DB {
		return query.Where("posts.category_id = ?", category.ID)
	})
	return page, err
}

func (s *PostService) listVisible(ctx context.Context, q PostQuery, scope func(*gorm.DB) *gorm.DB) (*PostPage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	q = q.normalized()

	build := func(ctx context.Context) *gorm.DB {
		query := s.visiblePosts(ctx)
		query = s.applyQuery(query, q)
		if scope != nil {
			query = scope(query)
		}
		return query
	}

	var (
		total int64
		posts []db.Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return build(gctx).Count(&total).Error
	})
	g.Go(func() error {
		return build(gctx).
			Preload("Author").
			Preload("Category").
			Preload("Tags").
			Order("posts.published_at desc, posts.id desc").
			Offset(q.Skip).
			Limit(q.PageSize).
			Find(&posts).Error
	})
	if err := g.Wait(); err != nil {
		return nil, storageError(err)
	}

	return &PostPage{
		Posts:      ProjectPosts(posts, s.now()),
		TotalCount: total,
		TotalPages: TotalPages(total, q.PageSize),
		Page:       q.Skip/q.PageSize + 1,
		PageSize:   q.PageSize,
		Skip:       q.Skip,
	}, nil
}

// visiblePosts 读者可见的文章：published 为真且状态为 PUBLISHED。
func (s *PostService) visiblePosts(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&db.Post{}).
		Where("posts.published = ? AND posts.status = ?", true, db.PostStatusPublished)
}

func (s *PostService) applyQuery(query *gorm.DB, q PostQuery) *gorm.DB {
	if len(q.CategorySlugs) > 0 {
		categoryIDs := s.db.Model(&db.Category{}).
			Select("categories.id").
			Where("categories.slug IN ?", q.CategorySlugs)
		query = query.Where("posts.category_id IN (?)", categoryIDs)
	}

	if len(q.TagSlugs) > 0 {
		postIDs := s.db.Table("post_tags").
			Select("post_tags.post_id").
			Joins("JOIN tags ON tags.id = post_tags.tag_id").
			Where("tags.slug IN ?", q.TagSlugs)
		query = query.Where("posts.id IN (?)", postIDs)
	}

	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		query = query.Where(`posts.search_text LIKE ? ESCAPE '\'`, pattern)
	}

	return query
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func cleanSlugs(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			slug := strings.ToLower(strings.TrimSpace(part))
			if slug == "" {
				continue
			}
			if _, ok := seen[slug]; ok {
				continue
			}
			seen[slug] = struct{}{}
			out = append(out, slug)
		}
	}
	return out
}
