package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore 将图片写入本地目录，由静态文件路由对外提供。
type LocalStore struct {
	dir     string
	urlPath string
}

func NewLocalStore(dir, urlPath string) *LocalStore {
	return &LocalStore{dir: dir, urlPath: "/" + strings.Trim(urlPath, "/")}
}

func (s *LocalStore) Save(_ context.Context, obj Object) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := filepath.Base(obj.Key)
	if err := os.WriteFile(filepath.Join(s.dir, name), obj.Data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return fmt.Sprintf("%s/%s", s.urlPath, name), nil
}
