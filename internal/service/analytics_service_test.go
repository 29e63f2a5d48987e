package service

import (
	"context"
	"testing"
	"time"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/db"
)

func TestAnalytics_ViewsByDayBucketsAndZeroFills(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewAnalyticsService(gdb)
	ctx := context.Background()

	author := createUser(t, gdb, "writer", auth.RoleAuthor)
	first := createPost(t, gdb, postSeed{Slug: "first", AuthorID: author.ID})
	second := createPost(t, gdb, postSeed{Slug: "second", AuthorID: author.ID})

	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	views := []db.PostView{
		{PostID: first.ID, CreatedAt: now.Add(-1 * time.Hour)},
		{PostID: first.ID, CreatedAt: now.Add(-2 * time.Hour)},
		{PostID: second.ID, CreatedAt: now.Add(-3 * time.Hour)},
		{PostID: first.ID, CreatedAt: now.AddDate(0, 0, -2)},
		{PostID: first.ID, CreatedAt: now.AddDate(0, 0, -10)},
	}
	if err := gdb.Create(&views).Error; err != nil {
		t.Fatalf("seed views: %v", err)
	}

	all, err := svc.ViewsByDay(ctx, nil, 3, now)
	if err != nil {
		t.Fatalf("views by day: %v", err)
	}
	want := []DailyViews{
		{Date: "2024-05-08", Views: 1},
		{Date: "2024-05-09", Views: 0},
		{Date: "2024-05-10", Views: 3},
	}
	if len(all) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(all))
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("bucket %d: expected %+v, got %+v", i, want[i], all[i])
		}
	}

	scoped, err := svc.ViewsByDay(ctx, &second.ID, 3, now)
	if err != nil {
		t.Fatalf("scoped views: %v", err)
	}
	if scoped[2].Views != 1 || scoped[0].Views != 0 {
		t.Fatalf("unexpected scoped buckets %+v", scoped)
	}
}

func TestAnalytics_TopPostsAndOverview(t *testing.T) {
	gdb := setupTestDB(t)
	svc := NewAnalyticsService(gdb)
	ctx := context.Background()

	author := createUser(t, gdb, "writer", auth.RoleAuthor)
	popular := createPost(t, gdb, postSeed{Slug: "popular", AuthorID: author.ID})
	quiet := createPost(t, gdb, postSeed{Slug: "quiet", AuthorID: author.ID})
	hidden := createPost(t, gdb, postSeed{Slug: "hidden", AuthorID: author.ID, Status: db.PostStatusDraft})

	gdb.Model(&popular).UpdateColumns(map[string]any{"view_count": 50, "share_count": 2})
	gdb.Model(&quiet).UpdateColumns(map[string]any{"view_count": 5, "share_count": 1})
	gdb.Model(&hidden).UpdateColumn("view_count", 500)

	top, err := svc.TopPosts(ctx, 5)
	if err != nil {
		t.Fatalf("top posts: %v", err)
	}
	if len(top) != 2 || top[0].Slug != "popular" || top[0].ViewCount != 50 {
		t.Fatalf("unexpected top posts %+v", top)
	}

	if err := gdb.Create(&db.PostView{PostID: popular.ID, CreatedAt: time.Now()}).Error; err != nil {
		t.Fatalf("seed view: %v", err)
	}
	if err := gdb.Create(&db.PostLike{PostID: popular.ID, UserID: author.ID}).Error; err != nil {
		t.Fatalf("seed like: %v", err)
	}

	overview, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.PublishedPosts != 2 || overview.TotalViews != 1 || overview.TotalLikes != 1 || overview.TotalShares != 3 {
		t.Fatalf("unexpected overview %+v", overview)
	}
}
