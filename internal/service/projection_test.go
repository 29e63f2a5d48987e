package service

import (
	"testing"
	"time"

	"github.com/folio/internal/db"
)

func strPtr(s string) *string { return &s }

func TestProjectPostFallbacks(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	created := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

	card := ProjectPost(db.Post{
		ID:        1,
		Slug:      "bare",
		Title:     "Bare",
		MainImage: strPtr("   "),
		CreatedAt: created,
	}, now)

	if card.AuthorName != FallbackAuthorName {
		t.Fatalf("expected author fallback, got %q", card.AuthorName)
	}
	if card.AuthorImage != FallbackAuthorImage {
		t.Fatalf("expected avatar fallback, got %q", card.AuthorImage)
	}
	if card.Category != FallbackCategory {
		t.Fatalf("expected category fallback, got %q", card.Category)
	}
	if card.MainImage != FallbackMainImage {
		t.Fatalf("expected image fallback, got %q", card.MainImage)
	}
	if card.Tags == nil || len(card.Tags) != 0 {
		t.Fatalf("expected empty non-nil tags, got %#v", card.Tags)
	}
	if card.CreatedAt != "2024-01-02T03:04:05.006Z" {
		t.Fatalf("unexpected createdAt %q", card.CreatedAt)
	}
}

func TestProjectPostUsesJoinedRecords(t *testing.T) {
	card := ProjectPost(db.Post{
		Title:     "Full",
		MainImage: strPtr("/img/cover.png"),
		Author:    db.User{Username: "ada", Name: "Ada Lovelace", Image: strPtr("/img/ada.png")},
		Category:  &db.Category{Name: "Engineering", Slug: "engineering"},
		Tags:      []db.Tag{{Name: "Go", Slug: "go"}, {Name: "SQL", Slug: "sql"}},
	}, time.Now())

	if card.AuthorName != "Ada Lovelace" || card.AuthorImage != "/img/ada.png" {
		t.Fatalf("unexpected author fields %+v", card)
	}
	if card.Category != "Engineering" || card.CategorySlug != "engineering" {
		t.Fatalf("unexpected category fields %+v", card)
	}
	if card.MainImage != "/img/cover.png" {
		t.Fatalf("unexpected main image %q", card.MainImage)
	}
	if len(card.Tags) != 2 || card.Tags[0] != "Go" || card.Tags[1] != "SQL" {
		t.Fatalf("unexpected tags %#v", card.Tags)
	}
}

func TestProjectPostAuthorNameFallsBackToUsername(t *testing.T) {
	card := ProjectPost(db.Post{Author: db.User{Username: "grace"}}, time.Now())
	if card.AuthorName != "grace" {
		t.Fatalf("expected username, got %q", card.AuthorName)
	}
}

func TestDisplayDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	published := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		post db.Post
		want time.Time
	}{
		{
			name: "published with publishedAt",
			post: db.Post{Published: true, PublishedAt: &published, CreatedAt: created},
			want: published,
		},
		{
			name: "published without publishedAt uses now",
			post: db.Post{Published: true, CreatedAt: created},
			want: now,
		},
		{
			name: "unpublished uses createdAt",
			post: db.Post{Published: false, PublishedAt: &published, CreatedAt: created},
			want: created,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayDate(tt.post, now); !got.Equal(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestProjectPostsNeverNil(t *testing.T) {
	if cards := ProjectPosts(nil, time.Now()); cards == nil {
		t.Fatalf("expected empty slice")
	}
}
