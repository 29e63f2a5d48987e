package service

import (
	"context"
	"time"

	"github.com/folio/internal/db"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultAnalyticsDays = 30
	maxAnalyticsDays     = 365
)

// AnalyticsService 基于浏览日志与冗余计数生成统计数据。
type AnalyticsService struct {
	db *gorm.DB
}

// DailyViews 表示某一天（UTC）的浏览次数。
type DailyViews struct {
	Date  string `json:"date"`
	Views int64  `json:"views"`
}

// TopPostStat 描述热门文章的统计信息。
type TopPostStat struct {
	PostID     uint   `json:"postId"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	ViewCount  int64  `json:"viewCount"`
	ShareCount int64  `json:"shareCount"`
}

// SiteOverview 汇总全站计数。
type SiteOverview struct {
	PublishedPosts int64 `json:"publishedPosts"`
	TotalViews     int64 `json:"totalViews"`
	TotalLikes     int64 `json:"totalLikes"`
	TotalComments  int64 `json:"totalComments"`
	TotalShares    int64 `json:"totalShares"`
}

func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: gdb}
}

// ViewsByDay counts logged views per UTC day for the last days days ending
// at now, oldest first. Days without views are present with zero. A nil
// postID covers all posts.
func (s *AnalyticsService) ViewsByDay(ctx context.Context, postID *uint, days int, now time.Time) ([]DailyViews, error) {
	if days <= 0 {
		days = defaultAnalyticsDays
	}
	if days > maxAnalyticsDays {
		days = maxAnalyticsDays
	}

	end := now.UTC()
	start := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	query := s.db.WithContext(ctx).Model(&db.PostView{}).
		Where("created_at >= ? AND created_at <= ?", start, end)
	if postID != nil {
		query = query.Where("post_id = ?", *postID)
	}

	var stamps []time.Time
	if err := query.Pluck("created_at", &stamps).Error; err != nil {
		return nil, storageError(err)
	}

	buckets := make([]DailyViews, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		buckets[i] = DailyViews{Date: day}
		index[day] = i
	}
	for _, stamp := range stamps {
		if i, ok := index[stamp.UTC().Format("2006-01-02")]; ok {
			buckets[i].Views++
		}
	}

	return buckets, nil
}

// TopPosts 按冗余浏览计数返回读者可见的热门文章。
func (s *AnalyticsService) TopPosts(ctx context.Context, limit int) ([]TopPostStat, error) {
	if limit <= 0 {
		limit = 5
	}

	var top []TopPostStat
	if err := s.db.WithContext(ctx).Model(&db.Post{}).
		Select("posts.id AS post_id, posts.slug, posts.title, posts.view_count, posts.share_count").
		Where("posts.published = ? AND posts.status = ?", true, db.PostStatusPublished).
		Order("posts.view_count DESC, posts.id DESC").
		Limit(limit).
		Scan(&top).Error; err != nil {
		return nil, storageError(err)
	}
	if top == nil {
		top = []TopPostStat{}
	}
	return top, nil
}

// Overview 并发统计全站计数。
func (s *AnalyticsService) Overview(ctx context.Context) (SiteOverview, error) {
	var overview SiteOverview

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&db.Post{}).
			Where("published = ? AND status = ?", true, db.PostStatusPublished).
			Count(&overview.PublishedPosts).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&db.PostView{}).Count(&overview.TotalViews).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&db.PostLike{}).Count(&overview.TotalLikes).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&db.Comment{}).Count(&overview.TotalComments).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&db.Post{}).
			Select("COALESCE(SUM(share_count), 0)").
			Scan(&overview.TotalShares).Error
	})
	if err := g.Wait(); err != nil {
		return SiteOverview{}, storageError(err)
	}
	return overview, nil
}
