package service

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:folio-service-%d-%d?mode=memory&cache=shared", time.Now().UnixNano(), testDBSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

func createUser(t *testing.T, gdb *gorm.DB, username string, role auth.Role) db.User {
	t.Helper()
	user := db.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Name:     username,
		Role:     string(role),
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createCategory(t *testing.T, gdb *gorm.DB, name, slug string) db.Category {
	t.Helper()
	category := db.Category{Name: name, Slug: slug}
	if err := gdb.Create(&category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

func createTag(t *testing.T, gdb *gorm.DB, name, slug string) db.Tag {
	t.Helper()
	tag := db.Tag{Name: name, Slug: slug}
	if err := gdb.Create(&tag).Error; err != nil {
		t.Fatalf("create tag: %v", err)
	}
	return tag
}

type postSeed struct {
	Slug        string
	Title       string
	ShortDesc   string
	Status      db.PostStatus
	AuthorID    uint
	Category    *db.Category
	Tags        []db.Tag
	PublishedAt *time.Time
	Content     *string
}

var seedClock = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func createPost(t *testing.T, gdb *gorm.DB, seed postSeed) db.Post {
	t.Helper()
	if seed.Status == "" {
		seed.Status = db.PostStatusPublished
	}
	if seed.Title == "" {
		seed.Title = seed.Slug
	}
	if seed.PublishedAt == nil && seed.Status == db.PostStatusPublished {
		seedClock = seedClock.Add(time.Hour)
		at := seedClock
		seed.PublishedAt = &at
	}

	post := db.Post{
		Slug:        seed.Slug,
		Title:       seed.Title,
		ShortDesc:   seed.ShortDesc,
		Status:      seed.Status,
		AuthorID:    seed.AuthorID,
		PublishedAt: seed.PublishedAt,
		Content:     seed.Content,
	}
	if seed.Category != nil {
		post.CategoryID = &seed.Category.ID
	}
	if err := gdb.Omit(clause.Associations).Create(&post).Error; err != nil {
		t.Fatalf("create post %s: %v", seed.Slug, err)
	}
	if len(seed.Tags) > 0 {
		if err := gdb.Model(&post).Association("Tags").Replace(seed.Tags); err != nil {
			t.Fatalf("attach tags: %v", err)
		}
	}
	return post
}

func cardSlugs(cards []PostCard) []string {
	slugs := make([]string, 0, len(cards))
	for _, card := range cards {
		slugs = append(slugs, card.Slug)
	}
	return slugs
}
