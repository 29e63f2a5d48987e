package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// 错误分类。具体的哨兵错误包装其中之一，调用方用 errors.Is 判断类别。
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrStorage    = errors.New("storage error")
)

var (
	ErrPostNotFound     = fmt.Errorf("post %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)
	ErrTagNotFound      = fmt.Errorf("tag %w", ErrNotFound)
	ErrCommentNotFound  = fmt.Errorf("comment %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)

	ErrCategoryExists = fmt.Errorf("%w: category already exists", ErrConflict)
	ErrCategoryInUse  = fmt.Errorf("%w: category is associated with posts", ErrConflict)
	ErrTagExists      = fmt.Errorf("%w: tag already exists", ErrConflict)
	ErrTagInUse       = fmt.Errorf("%w: tag is associated with posts", ErrConflict)
	ErrSlugTaken      = fmt.Errorf("%w: slug already in use", ErrConflict)
	ErrUserExists     = fmt.Errorf("%w: username or email already registered", ErrConflict)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storageError 将底层数据库错误归入 ErrStorage，保留原始信息用于日志。
func storageError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
