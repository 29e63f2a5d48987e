package handler

import (
	"net/http"

	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
)

// AdminListCategories 获取分类列表
func (a *API) AdminListCategories(c *gin.Context) {
	categories, err := a.categories.List(c.Request.Context(), false)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// CreateCategory 创建分类
func (a *API) CreateCategory(c *gin.Context) {
	var req service.CategoryInput
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}

	category, err := a.categories.Create(c.Request.Context(), req)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "category created", "category": category})
}

// UpdateCategory 更新分类
func (a *API) UpdateCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid category id")
		return
	}
	var req service.CategoryInput
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}

	category, err := a.categories.Update(c.Request.Context(), id, req)
	if err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category updated", "category": category})
}

// DeleteCategory 删除分类，仍有文章引用时拒绝。
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid category id")
		return
	}

	if err := a.categories.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}
