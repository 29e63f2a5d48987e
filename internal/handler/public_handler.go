package handler

import (
	"net/http"
	"strings"

	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type subscribeRequest struct {
	Email string `json:"email" binding:"required"`
}

// ListPosts 返回已发布文章的分页列表。
func (a *API) ListPosts(c *gin.Context) {
	q, err := a.postQuery(c)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	page, err := a.posts.ListPublished(c.Request.Context(), q)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	respondPage(c, page)
}

// ListCategoryPosts lists visible posts in one category; tag and search
// filters still apply.
func (a *API) ListCategoryPosts(c *gin.Context) {
	q, err := a.postQuery(c)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	page, err := a.posts.ListByCategory(c.Request.Context(), c.Param("slug"), q)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	respondPage(c, page)
}

// GetPost 返回文章详情并记录一次浏览。
func (a *API) GetPost(c *gin.Context) {
	ctx := c.Request.Context()
	var viewerID uint
	if p, ok := principalFrom(c); ok {
		viewerID = p.UserID
	}

	detail, err := a.posts.GetBySlug(ctx, c.Param("slug"), viewerID)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	view := service.ViewInput{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referrer:  c.Request.Referer(),
	}
	if err := a.engagement.RecordView(ctx, detail.ID, view, true); err != nil {
		// 浏览记录失败不影响文章展示
		a.logger.Warn("record post view", zap.Uint("post_id", detail.ID), zap.Error(err))
	} else {
		detail.ViewCount++
	}

	c.JSON(http.StatusOK, gin.H{"post": detail})
}

// ListCategories returns categories with visible post counts.
func (a *API) ListCategories(c *gin.Context) {
	categories, err := a.categories.List(c.Request.Context(), true)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// ListTags returns tags with visible post counts.
func (a *API) ListTags(c *gin.Context) {
	tags, err := a.tags.List(c.Request.Context(), true)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

// LikePost toggles the caller's like on a post.
func (a *API) LikePost(c *gin.Context) {
	p, _ := principalFrom(c)
	ctx := c.Request.Context()

	postID, err := a.posts.VisiblePostID(ctx, c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	state, err := a.engagement.TogglePostLike(ctx, postID, p.UserID)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SharePost 记录一次分享。
func (a *API) SharePost(c *gin.Context) {
	ctx := c.Request.Context()
	postID, err := a.posts.VisiblePostID(ctx, c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	count, err := a.engagement.IncrementShare(ctx, postID)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shareCount": count})
}

// Contact forwards the contact form to its webhook.
func (a *API) Contact(c *gin.Context) {
	var req service.ContactInput
	if !bindJSON(c, &req, "invalid contact payload") {
		return
	}
	if err := a.webhooks.Contact(c.Request.Context(), req); err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "message sent"})
}

// Subscribe forwards a newsletter signup to its webhook.
func (a *API) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if !bindJSON(c, &req, "email is required") {
		return
	}
	if err := a.webhooks.Subscribe(c.Request.Context(), req.Email); err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "subscribed"})
}

func (a *API) postQuery(c *gin.Context) (service.PostQuery, error) {
	skip, err := parseIntQuery(c, "skip", 0)
	if err != nil {
		return service.PostQuery{}, err
	}
	pageSize, err := parseIntQuery(c, "pageSize", a.defaultPageSize)
	if err != nil {
		return service.PostQuery{}, err
	}
	return service.PostQuery{
		CategorySlugs: c.QueryArray("category"),
		TagSlugs:      c.QueryArray("tag"),
		Search:        strings.TrimSpace(c.Query("q")),
		Skip:          skip,
		PageSize:      pageSize,
	}, nil
}

func respondPage(c *gin.Context, page *service.PostPage) {
	c.JSON(http.StatusOK, gin.H{
		"posts":      page.Posts,
		"totalCount": page.TotalCount,
		"totalPages": page.TotalPages,
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"skip":       page.Skip,
		"empty":      page.Empty(),
	})
}
