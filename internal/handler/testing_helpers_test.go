package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/db"
	"github.com/folio/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const testAutomationToken = "automation-secret"

var handlerDBSeq atomic.Int64

type testEnv struct {
	api    *API
	db     *gorm.DB
	engine *gin.Engine
}

func setupTestAPI(t *testing.T, opts Options) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:folio-handler-%d-%d?mode=memory&cache=shared", time.Now().UnixNano(), handlerDBSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	if opts.AutomationToken == "" {
		opts.AutomationToken = testAutomationToken
	}
	if opts.Tokens == nil {
		opts.Tokens = auth.NewTokenManager("jwt-secret", time.Hour)
	}
	if opts.Services == nil {
		opts.Services = &Services{Users: service.NewUserService(gdb).WithPasswordCost(bcrypt.MinCost)}
	}
	api := NewAPI(gdb, opts)

	engine := gin.New()
	engine.Use(sessions.Sessions("folio_test", cookie.NewStore([]byte("test-secret"))))
	engine.Use(api.Authenticate())

	return &testEnv{api: api, db: gdb, engine: engine}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.engine.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) tokenFor(t *testing.T, user db.User) string {
	t.Helper()
	token, err := e.api.tokens.Issue(auth.Principal{UserID: user.ID, Role: auth.Role(user.Role)})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func seedUser(t *testing.T, gdb *gorm.DB, username string, role auth.Role) db.User {
	t.Helper()
	user := db.User{Username: username, Email: username + "@example.com", Password: "x", Name: username, Role: string(role)}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedPost(t *testing.T, gdb *gorm.DB, slug string, authorID uint, status db.PostStatus) db.Post {
	t.Helper()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	post := db.Post{Slug: slug, Title: slug, Status: status, AuthorID: authorID}
	if status == db.PostStatusPublished {
		post.PublishedAt = &at
	}
	if err := gdb.Omit(clause.Associations).Create(&post).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return post
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rr.Code, rr.Body.String())
	}
}

