package db

import "time"

// PostView 是只追加的浏览日志，每次页面加载记录一行。
type PostView struct {
	ID        uint      `gorm:"primaryKey"`
	PostID    uint      `gorm:"index;not null"`
	IP        string    `gorm:"size:64"`
	UserAgent string    `gorm:"size:512"`
	Referrer  string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName 指定自定义表名。
func (PostView) TableName() string {
	return "post_views"
}

// PostLike 记录用户对文章的点赞，(post_id, user_id) 唯一。
type PostLike struct {
	ID        uint `gorm:"primaryKey"`
	PostID    uint `gorm:"not null;uniqueIndex:idx_post_like_user"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_post_like_user"`
	CreatedAt time.Time
}

// TableName 指定自定义表名。
func (PostLike) TableName() string {
	return "post_likes"
}

// CommentLike 记录用户对评论的点赞，(comment_id, user_id) 唯一。
type CommentLike struct {
	ID        uint `gorm:"primaryKey"`
	CommentID uint `gorm:"not null;uniqueIndex:idx_comment_like_user"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_comment_like_user"`
	CreatedAt time.Time
}

// TableName 指定自定义表名。
func (CommentLike) TableName() string {
	return "comment_likes"
}
