package handler

import (
	"net/http"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const automationRecentLimit = 10

// AutomationCreatePost creates a post on behalf of the first admin account.
func (a *API) AutomationCreatePost(c *gin.Context) {
	var req postRequest
	if !bindJSON(c, &req, "invalid post payload") {
		return
	}
	ctx := c.Request.Context()

	admin, err := a.users.FirstAdmin(ctx)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	post, err := a.posts.Create(ctx, auth.Principal{UserID: admin.ID, Role: auth.RoleAdmin}, req.input())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	a.logger.Info("automation created post", zap.Uint("post_id", post.ID), zap.String("slug", post.Slug))
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// AutomationRecentPosts 返回最近发布的文章。
func (a *API) AutomationRecentPosts(c *gin.Context) {
	limit, err := parseIntQuery(c, "limit", automationRecentLimit)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	page, err := a.posts.ListPublished(c.Request.Context(), service.PostQuery{PageSize: limit})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": page.Posts, "empty": page.Empty()})
}

// AutomationSharePost pushes a visible post to the social webhook and counts
// the share once delivery succeeds.
func (a *API) AutomationSharePost(c *gin.Context) {
	ctx := c.Request.Context()
	card, err := a.posts.VisibleCard(ctx, c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	if err := a.webhooks.ShareToSocial(ctx, *card); err != nil {
		a.respondServiceError(c, err)
		return
	}
	count, err := a.engagement.IncrementShare(ctx, card.ID)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "shared", "shareCount": count})
}
