package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/folio/internal/db"
	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
)

type commentRequest struct {
	PostID   uint   `json:"postId" binding:"required"`
	ParentID *uint  `json:"parentId"`
	Content  string `json:"content" binding:"required"`
}

type commentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListPostComments 返回文章下已审核的评论。
func (a *API) ListPostComments(c *gin.Context) {
	ctx := c.Request.Context()
	postID, err := a.posts.VisiblePostID(ctx, c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	comments, err := a.comments.ListForPost(ctx, postID)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "empty": len(comments) == 0})
}

// CreateComment 发表评论或回复。
func (a *API) CreateComment(c *gin.Context) {
	var req commentRequest
	if !bindJSON(c, &req, "postId and content are required") {
		return
	}
	p, _ := principalFrom(c)

	comment, err := a.comments.Create(c.Request.Context(), p, service.CommentInput{
		PostID:   req.PostID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// LikeComment toggles the caller's like on a comment.
func (a *API) LikeComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid comment id")
		return
	}
	p, _ := principalFrom(c)

	state, err := a.engagement.ToggleCommentLike(c.Request.Context(), id, p.UserID)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// DeleteComment removes a comment with its replies.
func (a *API) DeleteComment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid comment id")
		return
	}
	p, _ := principalFrom(c)

	if err := a.comments.Delete(c.Request.Context(), p, id); err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

// ListModerationComments 供审核使用，可按状态过滤。
func (a *API) ListModerationComments(c *gin.Context) {
	p, _ := principalFrom(c)
	limit, _ := strconv.Atoi(c.Query("limit"))
	status := db.CommentStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))

	comments, err := a.comments.ListByStatus(c.Request.Context(), p, status, limit)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// SetCommentStatus 修改评论审核状态。
func (a *API) SetCommentStatus(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid comment id")
		return
	}
	var req commentStatusRequest
	if !bindJSON(c, &req, "status is required") {
		return
	}
	p, _ := principalFrom(c)

	status := db.CommentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := a.comments.SetStatus(c.Request.Context(), p, id, status); err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment updated", "status": status})
}
