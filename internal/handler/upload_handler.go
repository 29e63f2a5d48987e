package handler

import (
	"io"
	"net/http"

	"github.com/folio/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadImage 处理图片上传请求
func (a *API) UploadImage(c *gin.Context) {
	if a.images == nil {
		respondError(c, http.StatusServiceUnavailable, "uploads are not configured")
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "image file is required")
		return
	}
	if file.Size > storage.MaxImageSize {
		a.respondServiceError(c, storage.ErrImageTooLarge)
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "image file cannot be read")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, storage.MaxImageSize+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "image file cannot be read")
		return
	}

	obj, err := storage.PrepareImage(data, a.now())
	if err != nil {
		a.respondServiceError(c, err)
		return
	}

	url, err := a.images.Save(c.Request.Context(), obj)
	if err != nil {
		a.logger.Error("save uploaded image", zap.String("key", obj.Key), zap.Error(err))
		respondError(c, http.StatusInternalServerError, "failed to save image")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": 1,
		"data": gin.H{
			"key": obj.Key,
			"url": url,
		},
	})
}
