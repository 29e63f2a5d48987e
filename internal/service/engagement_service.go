package service

import (
	"context"
	"strings"
	"time"

	"github.com/folio/internal/db"
	"github.com/folio/internal/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EngagementService 记录浏览、点赞与分享。
type EngagementService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	now     func() time.Time
}

// ViewInput describes the reader request that produced a view.
type ViewInput struct {
	IP        string
	UserAgent string
	Referrer  string
}

// LikeState is the result of a like toggle.
type LikeState struct {
	Liked bool  `json:"liked"`
	Count int64 `json:"count"`
}

func NewEngagementService(gdb *gorm.DB, m *metrics.Metrics) *EngagementService {
	return &EngagementService{db: gdb, metrics: m, now: time.Now}
}

// WithClock 替换时间来源。
func (s *EngagementService) WithClock(now func() time.Time) *EngagementService {
	s.now = now
	return s
}

// RecordView appends a row to the view log. Every call is a distinct view.
// bumpCounter additionally increments the denormalized view_count.
func (s *EngagementService) RecordView(ctx context.Context, postID uint, input ViewInput, bumpCounter bool) error {
	if postID == 0 {
		return validationError("post id is required")
	}

	view := db.PostView{
		PostID:    postID,
		IP:        truncate(input.IP, 64),
		UserAgent: truncate(input.UserAgent, 512),
		Referrer:  truncate(input.Referrer, 512),
		CreatedAt: s.now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&view).Error; err != nil {
			return err
		}
		if !bumpCounter {
			return nil
		}
		return tx.Model(&db.Post{}).
			Where("id = ?", postID).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	})
	if err != nil {
		return storageError(err)
	}

	s.metrics.ViewRecorded()
	return nil
}

// TogglePostLike flips the like of userID on postID. An existing like is
// removed; otherwise one is inserted. A concurrent insert that hits the
// unique index is a no-op and still reports the post as liked.
func (s *EngagementService) TogglePostLike(ctx context.Context, postID, userID uint) (LikeState, error) {
	if postID == 0 || userID == 0 {
		return LikeState{}, validationError("post and user are required")
	}

	var state LikeState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&db.PostLike{})
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected == 0 {
			like := db.PostLike{PostID: postID, UserID: userID, CreatedAt: s.now()}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
				DoNothing: true,
			}).Create(&like).Error; err != nil {
				return err
			}
			state.Liked = true
		}

		return tx.Model(&db.PostLike{}).Where("post_id = ?", postID).Count(&state.Count).Error
	})
	if err != nil {
		return LikeState{}, storageError(err)
	}

	s.metrics.LikeToggled("post", state.Liked)
	return state, nil
}

// ToggleCommentLike flips the like of userID on a comment. Only approved
// comments on reader-visible posts can be liked; anything else reports
// ErrCommentNotFound.
func (s *EngagementService) ToggleCommentLike(ctx context.Context, commentID, userID uint) (LikeState, error) {
	if commentID == 0 || userID == 0 {
		return LikeState{}, validationError("comment and user are required")
	}

	var state LikeState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&db.Comment{}).
			Joins("JOIN posts ON posts.id = comments.post_id").
			Where("comments.id = ? AND comments.status = ?", commentID, db.CommentStatusApproved).
			Where("posts.published = ? AND posts.status = ?", true, db.PostStatusPublished).
			Count(&exists).Error; err != nil {
			return storageError(err)
		}
		if exists == 0 {
			return ErrCommentNotFound
		}

		removed := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&db.CommentLike{})
		if removed.Error != nil {
			return storageError(removed.Error)
		}

		if removed.RowsAffected == 0 {
			like := db.CommentLike{CommentID: commentID, UserID: userID, CreatedAt: s.now()}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "comment_id"}, {Name: "user_id"}},
				DoNothing: true,
			}).Create(&like).Error; err != nil {
				return storageError(err)
			}
			state.Liked = true
		}

		if err := tx.Model(&db.CommentLike{}).Where("comment_id = ?", commentID).Count(&state.Count).Error; err != nil {
			return storageError(err)
		}
		return nil
	})
	if err != nil {
		return LikeState{}, err
	}

	s.metrics.LikeToggled("comment", state.Liked)
	return state, nil
}

// IncrementShare adds one share to postID and returns the new total. Shares
// are not deduplicated.
func (s *EngagementService) IncrementShare(ctx context.Context, postID uint) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.Post{}).
			Where("id = ?", postID).
			UpdateColumn("share_count", gorm.Expr("share_count + ?", 1))
		if res.Error != nil {
			return storageError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrPostNotFound
		}
		var post db.Post
		if err := tx.Select("share_count").First(&post, postID).Error; err != nil {
			return storageError(err)
		}
		total = post.ShareCount
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.metrics.ShareRecorded()
	return total, nil
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}
