package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 汇总服务导出的 Prometheus 指标。所有方法对 nil 接收者安全。
type Metrics struct {
	gatherer prometheus.Gatherer

	postViews      prometheus.Counter
	likeToggles    *prometheus.CounterVec
	shares         prometheus.Counter
	webhookCalls   *prometheus.CounterVec
	postsPublished prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	renderFailures prometheus.Counter
}

// New registers all collectors on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		gatherer: reg,
		postViews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "folio_post_views_total",
			Help: "Total number of recorded post views.",
		}),
		likeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_like_toggles_total",
			Help: "Like toggles by target and resulting state.",
		}, []string{"target", "state"}),
		shares: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "folio_post_shares_total",
			Help: "Total number of post shares.",
		}),
		webhookCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_webhook_calls_total",
			Help: "Outbound webhook calls by kind and result.",
		}, []string{"kind", "result"}),
		postsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "folio_scheduled_posts_published_total",
			Help: "Scheduled posts promoted to published.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "folio_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		renderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "folio_content_render_failures_total",
			Help: "Post bodies that could not be parsed for rendering.",
		}),
	}

	reg.MustRegister(
		m.postViews,
		m.likeToggles,
		m.shares,
		m.webhookCalls,
		m.postsPublished,
		m.httpRequests,
		m.httpDuration,
		m.renderFailures,
	)
	return m
}

func (m *Metrics) ViewRecorded() {
	if m == nil {
		return
	}
	m.postViews.Inc()
}

func (m *Metrics) LikeToggled(target string, liked bool) {
	if m == nil {
		return
	}
	state := "unliked"
	if liked {
		state = "liked"
	}
	m.likeToggles.WithLabelValues(target, state).Inc()
}

func (m *Metrics) ShareRecorded() {
	if m == nil {
		return
	}
	m.shares.Inc()
}

func (m *Metrics) WebhookCalled(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.webhookCalls.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) PostsPublished(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.postsPublished.Add(float64(n))
}

func (m *Metrics) RenderFailed() {
	if m == nil {
		return
	}
	m.renderFailures.Inc()
}

// Middleware records request count and latency keyed by the matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
