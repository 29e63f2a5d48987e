package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/db"
	"github.com/folio/internal/service"
)

func registerAutomationRoutes(env *testEnv) {
	group := env.engine.Group("/api/automation", env.api.AutomationAuth())
	group.POST("/posts", env.api.AutomationCreatePost)
	group.GET("/posts/recent", env.api.AutomationRecentPosts)
	group.POST("/posts/:slug/share", env.api.AutomationSharePost)
}

func TestAutomationCreatePostAttributesFirstAdmin(t *testing.T) {
	env := setupTestAPI(t, Options{})
	registerAutomationRoutes(env)

	rr := env.do(t, http.MethodPost, "/api/automation/posts", map[string]any{"title": "Bot post"}, testAutomationToken)
	expectStatus(t, rr, http.StatusNotFound)

	admin := seedUser(t, env.db, "admin", auth.RoleAdmin)
	seedUser(t, env.db, "admin2", auth.RoleAdmin)

	rr = env.do(t, http.MethodPost, "/api/automation/posts", map[string]any{"title": "Bot post", "status": "PUBLISHED"}, testAutomationToken)
	expectStatus(t, rr, http.StatusCreated)
	var body struct {
		Post db.Post `json:"post"`
	}
	decodeBody(t, rr, &body)
	if body.Post.AuthorID != admin.ID || body.Post.Slug != "bot-post" {
		t.Fatalf("unexpected automation post %+v", body.Post)
	}

	rr = env.do(t, http.MethodGet, "/api/automation/posts/recent?limit=5", nil, testAutomationToken)
	expectStatus(t, rr, http.StatusOK)
	var recent struct {
		Posts []service.PostCard `json:"posts"`
	}
	decodeBody(t, rr, &recent)
	if len(recent.Posts) != 1 || recent.Posts[0].Slug != "bot-post" {
		t.Fatalf("unexpected recent posts %+v", recent.Posts)
	}
}

func TestAutomationSharePostCallsWebhook(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	env := setupTestAPI(t, Options{Webhooks: service.WebhookConfig{SocialURL: server.URL, SiteBaseURL: "https://folio.dev"}})
	registerAutomationRoutes(env)

	author := seedUser(t, env.db, "writer", auth.RoleAuthor)
	post := seedPost(t, env.db, "hello", author.ID, db.PostStatusPublished)
	seedPost(t, env.db, "draft", author.ID, db.PostStatusDraft)

	rr := env.do(t, http.MethodPost, "/api/automation/posts/draft/share", nil, testAutomationToken)
	expectStatus(t, rr, http.StatusNotFound)

	rr = env.do(t, http.MethodPost, "/api/automation/posts/hello/share", nil, testAutomationToken)
	expectStatus(t, rr, http.StatusOK)
	if payload["url"] != "https://folio.dev/blog/hello" {
		t.Fatalf("unexpected webhook payload %v", payload)
	}

	var stored db.Post
	env.db.First(&stored, post.ID)
	if stored.ShareCount != 1 {
		t.Fatalf("expected share count 1, got %d", stored.ShareCount)
	}
}

func TestAutomationSharePostWebhookFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	env := setupTestAPI(t, Options{Webhooks: service.WebhookConfig{SocialURL: server.URL}})
	registerAutomationRoutes(env)
	author := seedUser(t, env.db, "writer", auth.RoleAuthor)
	post := seedPost(t, env.db, "hello", author.ID, db.PostStatusPublished)

	rr := env.do(t, http.MethodPost, "/api/automation/posts/hello/share", nil, testAutomationToken)
	expectStatus(t, rr, http.StatusInternalServerError)

	var stored db.Post
	env.db.First(&stored, post.ID)
	if stored.ShareCount != 0 {
		t.Fatalf("failed delivery must not count a share, got %d", stored.ShareCount)
	}
}
