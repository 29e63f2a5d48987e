package db

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm/logger"
)

func TestPostBeforeSaveDerivesPublished(t *testing.T) {
	dsn := fmt.Sprintf("file:db-post-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := Open(DriverSQLite, dsn, logger.Silent)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	author := User{Username: "writer", Email: "writer@example.com", Password: "x", Role: "AUTHOR"}
	if err := gdb.Create(&author).Error; err != nil {
		t.Fatalf("create author: %v", err)
	}

	tests := []struct {
		name   string
		status PostStatus
		want   bool
	}{
		{name: "draft", status: PostStatusDraft, want: false},
		{name: "scheduled", status: PostStatusScheduled, want: false},
		{name: "published", status: PostStatusPublished, want: true},
		{name: "archived", status: PostStatusArchived, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := Post{Slug: "post-" + tt.name, Title: tt.name, Status: tt.status, Published: !tt.want, AuthorID: author.ID}
			if err := gdb.Create(&post).Error; err != nil {
				t.Fatalf("create post: %v", err)
			}

			var stored Post
			if err := gdb.First(&stored, post.ID).Error; err != nil {
				t.Fatalf("reload post: %v", err)
			}
			if stored.Published != tt.want {
				t.Fatalf("expected published=%v, got %v", tt.want, stored.Published)
			}
			if stored.Visible() != tt.want {
				t.Fatalf("expected visible=%v", tt.want)
			}
		})
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "whatever", logger.Silent); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestStatusValid(t *testing.T) {
	if PostStatus("LIVE").Valid() {
		t.Fatalf("unexpected valid post status")
	}
	if !CommentStatusSpam.Valid() {
		t.Fatalf("expected SPAM to be a valid comment status")
	}
}

func TestPostSearchTextFoldsUnicodeAndBackfills(t *testing.T) {
	dsn := fmt.Sprintf("file:db-search-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := Open(DriverSQLite, dsn, logger.Silent)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}

	author := User{Username: "writer", Email: "writer@example.com", Password: "x", Role: "AUTHOR"}
	if err := gdb.Create(&author).Error; err != nil {
		t.Fatalf("create author: %v", err)
	}
	post := Post{Slug: "uber", Title: "Über Go", ShortDesc: "ÉTÉ", Status: PostStatusDraft, AuthorID: author.ID}
	if err := gdb.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	var stored Post
	if err := gdb.First(&stored, post.ID).Error; err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if want := "über go\nété"; stored.SearchText != want {
		t.Fatalf("expected search text %q, got %q", want, stored.SearchText)
	}

	if err := gdb.Model(&Post{}).Where("id = ?", post.ID).UpdateColumn("search_text", "").Error; err != nil {
		t.Fatalf("clear search text: %v", err)
	}
	if err := Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := gdb.First(&stored, post.ID).Error; err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if want := "über go\nété"; stored.SearchText != want {
		t.Fatalf("expected backfilled search text %q, got %q", want, stored.SearchText)
	}
}
