package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/content"
	"github.com/folio/internal/db"
	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
)

// postRequest 是文章创建与更新的请求体。content 直接接收文档树 JSON。
type postRequest struct {
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	ShortDesc   *string         `json:"shortDesc"`
	Content     json.RawMessage `json:"content"`
	MainImage   *string         `json:"mainImage"`
	Status      string          `json:"status"`
	Featured    *bool           `json:"featured"`
	Category    *string         `json:"category"`
	Tags        []string        `json:"tags"`
	PublishedAt *time.Time      `json:"publishedAt"`
}

type previewRequest struct {
	Content json.RawMessage `json:"content" binding:"required"`
}

func (r postRequest) input() service.PostInput {
	input := service.PostInput{
		Title:        r.Title,
		Slug:         r.Slug,
		ShortDesc:    r.ShortDesc,
		MainImage:    r.MainImage,
		Status:       db.PostStatus(strings.ToUpper(strings.TrimSpace(r.Status))),
		Featured:     r.Featured,
		CategorySlug: r.Category,
		TagSlugs:     r.Tags,
		PublishedAt:  r.PublishedAt,
	}
	if raw := bytes.TrimSpace(r.Content); len(raw) > 0 {
		value := string(raw)
		input.Content = &value
	}
	return input
}

// AdminListPosts 返回后台文章列表及各状态数量。
func (a *API) AdminListPosts(c *gin.Context) {
	p, _ := principalFrom(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "20"))

	list, err := a.posts.ListForAdmin(c.Request.Context(), p, service.AdminPostFilter{
		Search:  c.Query("q"),
		Status:  db.PostStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// AdminGetPost 获取单篇文章，作者只能查看自己的文章。
func (a *API) AdminGetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}
	p, _ := principalFrom(c)

	post, err := a.posts.Get(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	if post.AuthorID != p.UserID && !p.Can(auth.CapManageAllPosts) {
		respondError(c, http.StatusForbidden, "forbidden")
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// CreatePost 创建新文章。
func (a *API) CreatePost(c *gin.Context) {
	var req postRequest
	if !bindJSON(c, &req, "invalid post payload") {
		return
	}
	p, _ := principalFrom(c)

	post, err := a.posts.Create(c.Request.Context(), p, req.input())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "post created", "post": post})
}

// UpdatePost 更新文章。
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}
	var req postRequest
	if !bindJSON(c, &req, "invalid post payload") {
		return
	}
	p, _ := principalFrom(c)

	post, err := a.posts.Update(c.Request.Context(), p, id, req.input())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post updated", "post": post})
}

// ArchivePost 归档文章，读者不可见但数据保留。
func (a *API) ArchivePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}
	p, _ := principalFrom(c)

	post, err := a.posts.Archive(c.Request.Context(), p, id)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post archived", "post": post})
}

// UpsertPostSEO 保存文章 SEO 信息。
func (a *API) UpsertPostSEO(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid post id")
		return
	}
	var req service.SEOInput
	if !bindJSON(c, &req, "invalid seo payload") {
		return
	}
	p, _ := principalFrom(c)

	seo, err := a.posts.UpsertSEO(c.Request.Context(), p, id, req)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seo": seo})
}

// PreviewPost renders a document tree without saving it. Malformed trees are
// rejected instead of rendering the placeholder.
func (a *API) PreviewPost(c *gin.Context) {
	var req previewRequest
	if !bindJSON(c, &req, "content is required") {
		return
	}

	root, err := content.Parse(req.Content)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	raw := string(req.Content)
	c.JSON(http.StatusOK, gin.H{
		"html":        a.renderer.RenderString(&raw),
		"readingTime": service.ReadingTime(content.PlainText(root)),
	})
}
