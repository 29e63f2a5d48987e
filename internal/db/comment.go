package db

import "time"

// CommentStatus 描述评论的审核状态。
type CommentStatus string

const (
	CommentStatusPending  CommentStatus = "PENDING"
	CommentStatusApproved CommentStatus = "APPROVED"
	CommentStatusRejected CommentStatus = "REJECTED"
	CommentStatusSpam     CommentStatus = "SPAM"
)

// Valid reports whether the status is a known moderation state.
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentStatusPending, CommentStatusApproved, CommentStatusRejected, CommentStatusSpam:
		return true
	}
	return false
}

// Comment 定义了评论模型，ParentID 仅支持一层回复。
type Comment struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	Status    CommentStatus `gorm:"size:16;index;not null" json:"status"`
	PostID    uint          `gorm:"index;not null" json:"postId"`
	Post      Post          `json:"-"`
	AuthorID  uint          `gorm:"index;not null" json:"authorId"`
	Author    User          `json:"author"`
	ParentID  *uint         `gorm:"index" json:"parentId"`
	Replies   []Comment     `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
