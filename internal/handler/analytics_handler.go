package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
)

type analyticsProvider interface {
	Overview(ctx context.Context) (service.SiteOverview, error)
	ViewsByDay(ctx context.Context, postID *uint, days int, now time.Time) ([]service.DailyViews, error)
	TopPosts(ctx context.Context, limit int) ([]service.TopPostStat, error)
}

// AnalyticsOverview 返回站点汇总数据与最近的浏览趋势。
func (a *API) AnalyticsOverview(c *gin.Context) {
	a.analyticsOverview(c, a.analytics)
}

func (a *API) analyticsOverview(c *gin.Context, provider analyticsProvider) {
	ctx := c.Request.Context()
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	overview, err := provider.Overview(ctx)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	trend, err := provider.ViewsByDay(ctx, nil, days, a.now())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	top, err := provider.TopPosts(ctx, limit)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"overview": overview,
		"views":    trend,
		"topPosts": top,
	})
}

// PostViewTrend 返回单篇文章的每日浏览量。
func (a *API) PostViewTrend(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	trend, err := a.analytics.ViewsByDay(c.Request.Context(), &id, days, a.now())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": trend})
}
