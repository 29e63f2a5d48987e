package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
)

type stubAnalytics struct {
	overview service.SiteOverview
	err      error
	days     int
}

func (s *stubAnalytics) Overview(context.Context) (service.SiteOverview, error) {
	return s.overview, s.err
}

func (s *stubAnalytics) ViewsByDay(_ context.Context, _ *uint, days int, _ time.Time) ([]service.DailyViews, error) {
	s.days = days
	return []service.DailyViews{{Date: "2024-01-01", Views: 3}}, nil
}

func (s *stubAnalytics) TopPosts(context.Context, int) ([]service.TopPostStat, error) {
	return []service.TopPostStat{}, nil
}

func TestAnalyticsOverview(t *testing.T) {
	env := setupTestAPI(t, Options{})
	stub := &stubAnalytics{overview: service.SiteOverview{PublishedPosts: 4, TotalViews: 10}}
	env.engine.GET("/api/admin/analytics", func(c *gin.Context) { env.api.analyticsOverview(c, stub) })

	rr := env.do(t, http.MethodGet, "/api/admin/analytics?days=7", nil, "")
	expectStatus(t, rr, http.StatusOK)

	var body struct {
		Overview service.SiteOverview `json:"overview"`
		Views    []service.DailyViews `json:"views"`
	}
	decodeBody(t, rr, &body)
	if body.Overview.PublishedPosts != 4 || len(body.Views) != 1 || stub.days != 7 {
		t.Fatalf("unexpected analytics response %+v (days=%d)", body, stub.days)
	}
}

func TestAnalyticsOverviewStorageFailure(t *testing.T) {
	env := setupTestAPI(t, Options{})
	stub := &stubAnalytics{err: errors.Join(service.ErrStorage, errors.New("disk gone"))}
	env.engine.GET("/api/admin/analytics", func(c *gin.Context) { env.api.analyticsOverview(c, stub) })

	rr := env.do(t, http.MethodGet, "/api/admin/analytics", nil, "")
	expectStatus(t, rr, http.StatusInternalServerError)
}
