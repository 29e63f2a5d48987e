package service

import (
	"html/template"
	"strings"
	"time"

	"github.com/folio/internal/db"
)

const (
	FallbackAuthorName  = "Unknown Author"
	FallbackAuthorImage = "/images/default-avatar.png"
	FallbackCategory    = "Uncategorized"
	FallbackMainImage   = "/images/default-post.jpg"
)

// isoLayout 与 JavaScript Date.toISOString 的输出一致。
const isoLayout = "2006-01-02T15:04:05.000Z"

// PostCard is the flattened listing shape of a post. Every string field is
// always populated and Tags is never nil.
type PostCard struct {
	ID           uint     `json:"id"`
	Slug         string   `json:"slug"`
	Title        string   `json:"title"`
	ShortDesc    string   `json:"shortDesc"`
	MainImage    string   `json:"mainImage"`
	AuthorName   string   `json:"authorName"`
	AuthorImage  string   `json:"authorImage"`
	Category     string   `json:"category"`
	CategorySlug string   `json:"categorySlug,omitempty"`
	Tags         []string `json:"tags"`
	Featured     bool     `json:"featured"`
	ReadingTime  int      `json:"readingTime"`
	ViewCount    int64    `json:"viewCount"`
	CreatedAt    string   `json:"createdAt"`
}

// PostDetail 是单篇文章页面使用的视图模型。
type PostDetail struct {
	PostCard
	Content      template.HTML `json:"content"`
	Status       string        `json:"status"`
	ShareCount   int64         `json:"shareCount"`
	LikeCount    int64         `json:"likeCount"`
	CommentCount int64         `json:"commentCount"`
	Liked        bool          `json:"liked"`
	UpdatedAt    string        `json:"updatedAt"`
	SEO          *db.PostSEO   `json:"seo,omitempty"`
}

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// DisplayDate resolves the date shown for a post: published posts use
// PublishedAt, or now when it is missing; unpublished posts use CreatedAt.
func DisplayDate(post db.Post, now time.Time) time.Time {
	if post.Published {
		if post.PublishedAt != nil {
			return *post.PublishedAt
		}
		return now
	}
	return post.CreatedAt
}

// ProjectPost flattens a post loaded with Author, Category and Tags.
func ProjectPost(post db.Post, now time.Time) PostCard {
	card := PostCard{
		ID:          post.ID,
		Slug:        post.Slug,
		Title:       post.Title,
		ShortDesc:   post.ShortDesc,
		MainImage:   nonEmpty(post.MainImage, FallbackMainImage),
		AuthorName:  FallbackAuthorName,
		AuthorImage: nonEmpty(post.Author.Image, FallbackAuthorImage),
		Category:    FallbackCategory,
		Tags:        make([]string, 0, len(post.Tags)),
		Featured:    post.Featured,
		ViewCount:   post.ViewCount,
		CreatedAt:   FormatISO(DisplayDate(post, now)),
	}

	if name := strings.TrimSpace(post.Author.Name); name != "" {
		card.AuthorName = name
	} else if username := strings.TrimSpace(post.Author.Username); username != "" {
		card.AuthorName = username
	}
	if post.Category != nil && strings.TrimSpace(post.Category.Name) != "" {
		card.Category = post.Category.Name
		card.CategorySlug = post.Category.Slug
	}
	for _, tag := range post.Tags {
		card.Tags = append(card.Tags, tag.Name)
	}
	if post.ReadingTime != nil {
		card.ReadingTime = *post.ReadingTime
	}

	return card
}

// ProjectPosts 批量投影，结果切片永不为 nil。
func ProjectPosts(posts []db.Post, now time.Time) []PostCard {
	cards := make([]PostCard, 0, len(posts))
	for _, post := range posts {
		cards = append(cards, ProjectPost(post, now))
	}
	return cards
}

func nonEmpty(value *string, fallback string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return fallback
	}
	return *value
}
