package service

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/db"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	MaxCommentLength    = 500
	maxModerationPageSz = 100
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	commentSanitizer = bluemonday.UGCPolicy()
)

// CommentService 负责评论的创建、审核与删除。
type CommentService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// CommentInput is the payload for a new comment or reply.
type CommentInput struct {
	PostID   uint
	ParentID *uint
	Content  string
}

// CommentView 是评论对外展示的结构，回复嵌套在顶层评论下。
type CommentView struct {
	ID          uint          `json:"id"`
	Content     string        `json:"content"`
	HTML        template.HTML `json:"html"`
	Status      string        `json:"status"`
	AuthorID    uint          `json:"authorId"`
	AuthorName  string        `json:"authorName"`
	AuthorImage string        `json:"authorImage"`
	ParentID    *uint         `json:"parentId"`
	LikeCount   int64         `json:"likeCount"`
	CreatedAt   string        `json:"createdAt"`
	Replies     []CommentView `json:"replies"`
}

func NewCommentService(gdb *gorm.DB, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{db: gdb, logger: logger}
}

// Create stores a comment on a reader-visible post. Replies to a reply are
// attached to the top-level comment. Staff comments skip moderation.
func (s *CommentService) Create(ctx context.Context, actor auth.Principal, input CommentInput) (*CommentView, error) {
	if !actor.Can(auth.CapEngage) {
		return nil, ErrForbidden
	}
	body := strings.TrimSpace(input.Content)
	if body == "" {
		return nil, validationError("comment content is required")
	}
	if utf8.RuneCountInString(body) > MaxCommentLength {
		return nil, validationError("comment exceeds %d characters", MaxCommentLength)
	}

	var post db.Post
	err := s.db.WithContext(ctx).Select("id").
		Where("id = ? AND published = ? AND status = ?", input.PostID, true, db.PostStatusPublished).
		First(&post).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrPostNotFound
		}
		return nil, storageError(err)
	}

	comment := db.Comment{
		Content:  body,
		Status:   db.CommentStatusPending,
		PostID:   post.ID,
		AuthorID: actor.UserID,
	}
	if auth.IsStaff(actor.Role) {
		comment.Status = db.CommentStatusApproved
	}

	if input.ParentID != nil {
		var parent db.Comment
		if err := s.db.WithContext(ctx).First(&parent, *input.ParentID).Error; err != nil {
			if isNotFound(err) {
				return nil, ErrCommentNotFound
			}
			return nil, storageError(err)
		}
		if parent.PostID != post.ID {
			return nil, validationError("parent comment belongs to another post")
		}
		rootID := parent.ID
		if parent.ParentID != nil {
			rootID = *parent.ParentID
		}
		comment.ParentID = &rootID
	}

	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, storageError(err)
	}
	if err := s.db.WithContext(ctx).Preload("Author").First(&comment, comment.ID).Error; err != nil {
		return nil, storageError(err)
	}

	view := s.project(comment, nil)
	return &view, nil
}

// ListForPost returns approved top-level comments, oldest first, each with its
// approved replies.
func (s *CommentService) ListForPost(ctx context.Context, postID uint) ([]CommentView, error) {
	var comments []db.Comment
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ? AND status = ?", postID, db.CommentStatusApproved).
		Order("created_at asc").
		Order("id asc").
		Find(&comments).Error; err != nil {
		return nil, storageError(err)
	}

	likes, err := s.likeCounts(ctx, comments)
	if err != nil {
		return nil, err
	}

	views := make([]CommentView, 0, len(comments))
	index := make(map[uint]int, len(comments))
	for _, c := range comments {
		if c.ParentID != nil {
			continue
		}
		index[c.ID] = len(views)
		views = append(views, s.project(c, likes))
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		// 父评论未通过审核时，其回复一并隐藏
		if i, ok := index[*c.ParentID]; ok {
			views[i].Replies = append(views[i].Replies, s.project(c, likes))
		}
	}
	return views, nil
}

// ListByStatus returns the most recent comments in status for moderators.
func (s *CommentService) ListByStatus(ctx context.Context, actor auth.Principal, status db.CommentStatus, limit int) ([]CommentView, error) {
	if !actor.Can(auth.CapModerateComments) {
		return nil, ErrForbidden
	}
	if status != "" && !status.Valid() {
		return nil, validationError("unknown comment status %q", status)
	}
	if limit <= 0 || limit > maxModerationPageSz {
		limit = maxModerationPageSz
	}

	query := s.db.WithContext(ctx).Preload("Author").Order("created_at desc").Order("id desc").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var comments []db.Comment
	if err := query.Find(&comments).Error; err != nil {
		return nil, storageError(err)
	}

	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, s.project(c, nil))
	}
	return views, nil
}

// SetStatus changes the moderation state of a comment.
func (s *CommentService) SetStatus(ctx context.Context, actor auth.Principal, id uint, status db.CommentStatus) error {
	if !actor.Can(auth.CapModerateComments) {
		return ErrForbidden
	}
	if !status.Valid() {
		return validationError("unknown comment status %q", status)
	}

	result := s.db.WithContext(ctx).Model(&db.Comment{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return storageError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// Delete removes a comment together with its replies and their likes. Only
// the author or a moderator may delete.
func (s *CommentService) Delete(ctx context.Context, actor auth.Principal, id uint) error {
	var comment db.Comment
	if err := s.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		if isNotFound(err) {
			return ErrCommentNotFound
		}
		return storageError(err)
	}
	if comment.AuthorID != actor.UserID && !actor.Can(auth.CapModerateComments) {
		return ErrForbidden
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uint{comment.ID}
		var replyIDs []uint
		if err := tx.Model(&db.Comment{}).Where("parent_id = ?", comment.ID).Pluck("id", &replyIDs).Error; err != nil {
			return err
		}
		ids = append(ids, replyIDs...)

		if err := tx.Where("comment_id IN ?", ids).Delete(&db.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&db.Comment{}).Error
	})
	if err != nil {
		return storageError(err)
	}
	return nil
}

func (s *CommentService) likeCounts(ctx context.Context, comments []db.Comment) (map[uint]int64, error) {
	if len(comments) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.ID)
	}

	var rows []struct {
		CommentID uint
		Total     int64
	}
	if err := s.db.WithContext(ctx).Model(&db.CommentLike{}).
		Select("comment_id, COUNT(*) AS total").
		Where("comment_id IN ?", ids).
		Group("comment_id").
		Scan(&rows).Error; err != nil {
		return nil, storageError(err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.CommentID] = row.Total
	}
	return counts, nil
}

func (s *CommentService) project(c db.Comment, likes map[uint]int64) CommentView {
	name := strings.TrimSpace(c.Author.Name)
	if name == "" {
		name = nonEmpty(&c.Author.Username, FallbackAuthorName)
	}
	return CommentView{
		ID:          c.ID,
		Content:     c.Content,
		HTML:        s.renderMarkdown(c.Content),
		Status:      string(c.Status),
		AuthorID:    c.AuthorID,
		AuthorName:  name,
		AuthorImage: nonEmpty(c.Author.Image, FallbackAuthorImage),
		ParentID:    c.ParentID,
		LikeCount:   likes[c.ID],
		CreatedAt:   FormatISO(c.CreatedAt),
		Replies:     []CommentView{},
	}
}

func (s *CommentService) renderMarkdown(body string) template.HTML {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(body), &buf); err != nil {
		s.logger.Warn("render comment markdown", zap.Error(err))
		return template.HTML(template.HTMLEscapeString(body))
	}
	return template.HTML(commentSanitizer.SanitizeBytes(buf.Bytes()))
}
