package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/folio/internal/auth"
)

func registerAuthRoutes(env *testEnv) {
	env.engine.POST("/api/auth/register", env.api.Register)
	env.engine.POST("/api/auth/login", env.api.Login)
	env.engine.POST("/api/auth/logout", env.api.Logout)
	env.engine.GET("/api/auth/me", env.api.RequireAuth(), env.api.Me)
}

func TestRegisterStartsSession(t *testing.T) {
	env := setupTestAPI(t, Options{})
	registerAuthRoutes(env)

	raw, _ := json.Marshal(map[string]string{"username": "reader", "email": "reader@example.com", "password": "long-password"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	env.engine.ServeHTTP(rr, req)
	expectStatus(t, rr, http.StatusCreated)

	cookies := rr.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("expected session cookie")
	}

	me := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, cookie := range cookies {
		me.AddCookie(cookie)
	}
	rr = httptest.NewRecorder()
	env.engine.ServeHTTP(rr, me)
	expectStatus(t, rr, http.StatusOK)

	var body struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	decodeBody(t, rr, &body)
	if body.User.Username != "reader" || body.User.Role != string(auth.RoleReader) {
		t.Fatalf("unexpected user %+v", body.User)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	env := setupTestAPI(t, Options{})
	registerAuthRoutes(env)

	rr := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{"username": "reader", "email": "reader@example.com", "password": "long-password"}, "")
	expectStatus(t, rr, http.StatusCreated)

	rr = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"login": "reader", "password": "wrong-password"}, "")
	expectStatus(t, rr, http.StatusUnauthorized)

	rr = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"login": "reader", "password": "long-password"}, "")
	expectStatus(t, rr, http.StatusOK)
	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, rr, &body)
	if body.Token == "" {
		t.Fatalf("expected access token")
	}

	rr = env.do(t, http.MethodGet, "/api/auth/me", nil, body.Token)
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(t, http.MethodGet, "/api/auth/me", nil, "not-a-jwt")
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestAutomationAuthUniformRejection(t *testing.T) {
	env := setupTestAPI(t, Options{})
	env.engine.GET("/api/automation/posts/recent", env.api.AutomationAuth(), env.api.AutomationRecentPosts)

	for _, token := range []string{"", "wrong-token", testAutomationToken + "x"} {
		rr := env.do(t, http.MethodGet, "/api/automation/posts/recent", nil, token)
		expectStatus(t, rr, http.StatusUnauthorized)
		var body map[string]string
		decodeBody(t, rr, &body)
		if len(body) != 1 || body["error"] != "unauthorized" {
			t.Fatalf("expected uniform error body, got %v", body)
		}
	}

	rr := env.do(t, http.MethodGet, "/api/automation/posts/recent", nil, testAutomationToken)
	expectStatus(t, rr, http.StatusOK)
}
