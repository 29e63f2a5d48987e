package db

import "time"

// Tag 定义了标签模型
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:191;uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"size:191;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Posts     []Post    `gorm:"many2many:post_tags;" json:"-"`
	PostCount int64     `gorm:"->;-:migration" json:"postCount"`
}

// Category 定义了文章分类，一篇文章至多属于一个分类。
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:191;uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"size:191;uniqueIndex;not null" json:"slug"`
	Description *string   `gorm:"type:text" json:"description"`
	Image       *string   `json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	PostCount   int64     `gorm:"->;-:migration" json:"postCount"`
}
