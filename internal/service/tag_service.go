package service

import (
	"context"
	"strings"

	"github.com/folio/internal/db"
	"gorm.io/gorm"
)

// TagService wraps tag related operations.
type TagService struct {
	db *gorm.DB
}

// NewTagService creates a TagService instance.
func NewTagService(gdb *gorm.DB) *TagService {
	return &TagService{db: gdb}
}

// List returns tags ordered by name with post counts. visibleOnly restricts
// the counts to reader-visible posts.
func (s *TagService) List(ctx context.Context, visibleOnly bool) ([]db.Tag, error) {
	join := "LEFT JOIN posts ON posts.id = post_tags.post_id"
	args := []any{}
	if visibleOnly {
		join += " AND posts.published = ? AND posts.status = ?"
		args = append(args, true, db.PostStatusPublished)
	}

	tags := []db.Tag{}
	if err := s.db.WithContext(ctx).
		Model(&db.Tag{}).
		Select("tags.*, COUNT(posts.id) AS post_count").
		Joins("LEFT JOIN post_tags ON post_tags.tag_id = tags.id").
		Joins(join, args...).
		Group("tags.id").
		Order("tags.name asc").
		Order("tags.id asc").
		Find(&tags).Error; err != nil {
		return nil, storageError(err)
	}
	return tags, nil
}

// Create inserts a new tag; slug defaults to the slugified name.
func (s *TagService) Create(ctx context.Context, name, slug string) (*db.Tag, error) {
	name, slug, err := nameAndSlug(name, slug)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Tag{}).Where("name = ? OR slug = ?", name, slug).Count(&count).Error; err != nil {
		return nil, storageError(err)
	}
	if count > 0 {
		return nil, ErrTagExists
	}

	tag := db.Tag{Name: name, Slug: slug}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, storageError(err)
	}
	return &tag, nil
}

// Update renames a tag while keeping name and slug unique.
func (s *TagService) Update(ctx context.Context, id uint, name, slug string) (*db.Tag, error) {
	name, slug, err := nameAndSlug(name, slug)
	if err != nil {
		return nil, err
	}

	var tag db.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrTagNotFound
		}
		return nil, storageError(err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Tag{}).
		Where("(name = ? OR slug = ?) AND id <> ?", name, slug, id).
		Count(&count).Error; err != nil {
		return nil, storageError(err)
	}
	if count > 0 {
		return nil, ErrTagExists
	}

	tag.Name = name
	tag.Slug = slug
	if err := s.db.WithContext(ctx).Save(&tag).Error; err != nil {
		return nil, storageError(err)
	}

	if tag.PostCount, err = s.postUsageCount(ctx, tag.ID); err != nil {
		return nil, err
	}
	return &tag, nil
}

// Delete removes a tag if it is not associated with posts.
func (s *TagService) Delete(ctx context.Context, id uint) error {
	var tag db.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if isNotFound(err) {
			return ErrTagNotFound
		}
		return storageError(err)
	}

	count, err := s.postUsageCount(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrTagInUse
	}

	if err := s.db.WithContext(ctx).Delete(&tag).Error; err != nil {
		return storageError(err)
	}
	return nil
}

func (s *TagService) postUsageCount(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Table("post_tags").
		Where("post_tags.tag_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, storageError(err)
	}
	return count, nil
}

// nameAndSlug 规范化名称与 slug，slug 为空时由名称生成。
func nameAndSlug(name, slug string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", validationError("name is required")
	}
	if strings.TrimSpace(slug) == "" {
		slug = name
	}
	slug = Slugify(slug)
	if slug == "" {
		return "", "", validationError("slug is required for %q", name)
	}
	return name, slug, nil
}
