package db

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// PostStatus 描述文章的生命周期状态。
type PostStatus string

const (
	PostStatusDraft     PostStatus = "DRAFT"
	PostStatusScheduled PostStatus = "SCHEDULED"
	PostStatusPublished PostStatus = "PUBLISHED"
	PostStatusArchived  PostStatus = "ARCHIVED"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusScheduled, PostStatusPublished, PostStatusArchived:
		return true
	}
	return false
}

// Post 定义了文章模型
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Slug        string     `gorm:"size:191;uniqueIndex;not null" json:"slug"`
	Title       string     `gorm:"not null" json:"title"`
	ShortDesc   string     `gorm:"type:text" json:"shortDesc"`
	Content     *string    `gorm:"type:text" json:"content"`
	MainImage   *string    `json:"mainImage"`
	Status      PostStatus `gorm:"size:16;index;not null" json:"status"`
	Published   bool       `gorm:"index;not null" json:"published"`
	Featured    bool       `gorm:"not null" json:"featured"`
	ViewCount   int64      `gorm:"not null;default:0" json:"viewCount"`
	ShareCount  int64      `gorm:"not null;default:0" json:"shareCount"`
	ReadingTime *int       `json:"readingTime"`
	SearchText  string     `gorm:"type:text;not null;default:''" json:"-"`
	PublishedAt *time.Time `gorm:"index" json:"publishedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	AuthorID   uint      `gorm:"index;not null" json:"authorId"`
	Author     User      `json:"author"`
	CategoryID *uint     `gorm:"index" json:"categoryId"`
	Category   *Category `json:"category,omitempty"`
	Tags       []Tag     `gorm:"many2many:post_tags;" json:"tags"`
	SEO        *PostSEO  `gorm:"constraint:OnDelete:CASCADE;" json:"seo,omitempty"`
}

// BeforeSave keeps the denormalized published flag and search text in line
// with the status, title and short description.
func (p *Post) BeforeSave(tx *gorm.DB) error {
	p.Published = p.Status == PostStatusPublished
	p.SearchText = SearchText(p.Title, p.ShortDesc)
	return nil
}

// SearchText 返回标题与摘要的 Unicode 小写形式，两段以换行分隔。
// 查询关键字必须用同样的 strings.ToLower 折叠。
func SearchText(title, shortDesc string) string {
	return strings.ToLower(title) + "\n" + strings.ToLower(shortDesc)
}

// Visible 读者可见：已发布且状态为 PUBLISHED。
func (p *Post) Visible() bool {
	return p.Published && p.Status == PostStatusPublished
}

// PostSEO 保存文章的 SEO 元数据，与文章一对一。
type PostSEO struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PostID       uint      `gorm:"uniqueIndex;not null" json:"postId"`
	MetaTitle    *string   `json:"metaTitle"`
	MetaDesc     *string   `json:"metaDesc"`
	OGTitle      *string   `json:"ogTitle"`
	OGDesc       *string   `json:"ogDesc"`
	OGImage      *string   `json:"ogImage"`
	Keywords     *string   `json:"keywords"`
	CanonicalURL *string   `json:"canonicalUrl"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 指定自定义表名。
func (PostSEO) TableName() string {
	return "post_seo"
}
