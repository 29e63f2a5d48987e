package service

import (
	"context"
	"strings"

	"github.com/folio/internal/db"
	"gorm.io/gorm"
)

// CategoryService wraps category related operations.
type CategoryService struct {
	db *gorm.DB
}

// CategoryInput 是创建或更新分类时接受的字段。
type CategoryInput struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// List returns categories ordered by name with post counts. visibleOnly
// restricts the counts to reader-visible posts.
func (s *CategoryService) List(ctx context.Context, visibleOnly bool) ([]db.Category, error) {
	join := "LEFT JOIN posts ON posts.category_id = categories.id"
	args := []any{}
	if visibleOnly {
		join += " AND posts.published = ? AND posts.status = ?"
		args = append(args, true, db.PostStatusPublished)
	}

	categories := []db.Category{}
	if err := s.db.WithContext(ctx).
		Model(&db.Category{}).
		Select("categories.*, COUNT(posts.id) AS post_count").
		Joins(join, args...).
		Group("categories.id").
		Order("categories.name asc").
		Find(&categories).Error; err != nil {
		return nil, storageError(err)
	}
	return categories, nil
}

// GetBySlug returns the category with slug.
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*db.Category, error) {
	var category db.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", strings.TrimSpace(slug)).First(&category).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, storageError(err)
	}
	return &category, nil
}

func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*db.Category, error) {
	name, slug, err := nameAndSlug(input.Name, input.Slug)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, name, slug, 0); err != nil {
		return nil, err
	}

	category := db.Category{
		Name:        name,
		Slug:        slug,
		Description: trimmedPtr(input.Description),
		Image:       trimmedPtr(input.Image),
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, storageError(err)
	}
	return &category, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, input CategoryInput) (*db.Category, error) {
	name, slug, err := nameAndSlug(input.Name, input.Slug)
	if err != nil {
		return nil, err
	}

	var category db.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, storageError(err)
	}
	if err := s.ensureUnique(ctx, name, slug, id); err != nil {
		return nil, err
	}

	category.Name = name
	category.Slug = slug
	category.Description = trimmedPtr(input.Description)
	category.Image = trimmedPtr(input.Image)
	if err := s.db.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, storageError(err)
	}
	return &category, nil
}

// Delete removes a category unless a post still references it.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	var category db.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if isNotFound(err) {
			return ErrCategoryNotFound
		}
		return storageError(err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Post{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return storageError(err)
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	if err := s.db.WithContext(ctx).Delete(&category).Error; err != nil {
		return storageError(err)
	}
	return nil
}

func (s *CategoryService) ensureUnique(ctx context.Context, name, slug string, exceptID uint) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Category{}).
		Where("(name = ? OR slug = ?) AND id <> ?", name, slug, exceptID).
		Count(&count).Error; err != nil {
		return storageError(err)
	}
	if count > 0 {
		return ErrCategoryExists
	}
	return nil
}
