package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/folio/internal/auth"
	"github.com/folio/internal/content"
	"github.com/folio/internal/service"
	"github.com/folio/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const genericServerError = "internal server error"

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseIntQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", service.ErrValidation, key)
	}
	return value, nil
}

// errorStatus 将服务层错误类别映射为 HTTP 状态码与对外消息。
// 存储类及未知错误只返回通用消息。
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrValidation), errors.Is(err, content.ErrParse):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, storage.ErrNotImage):
		return http.StatusBadRequest, storage.ErrNotImage.Error()
	case errors.Is(err, storage.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, storage.ErrImageTooLarge.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrWebhookNotConfigured), errors.Is(err, service.ErrWebhookFailed):
		return http.StatusInternalServerError, "request could not be delivered"
	default:
		return http.StatusInternalServerError, genericServerError
	}
}

func (a *API) respondServiceError(c *gin.Context, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	respondError(c, status, message)
}
