package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// MaxImageSize 限制单张上传图片的大小。
const MaxImageSize = 10 << 20

var (
	ErrNotImage      = errors.New("file is not a supported image")
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// ImageStore persists uploaded images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, obj Object) (string, error)
}

// Object 是已校验的待保存图片。
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// PrepareImage validates data by decoding its header and assigns a unique
// object key of the form 20060102-<uuid>.<ext>.
func PrepareImage(data []byte, now time.Time) (Object, error) {
	if len(data) > MaxImageSize {
		return Object{}, ErrImageTooLarge
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Object{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	ext, ok := extensions[format]
	if !ok {
		return Object{}, ErrNotImage
	}

	return Object{
		Key:         fmt.Sprintf("%s-%s%s", now.Format("20060102"), uuid.New().String(), ext),
		ContentType: contentTypes[format],
		Data:        data,
	}, nil
}
