package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open 按驱动类型建立数据库连接并执行自动迁移。
// sqlite 的 dsn 为空时回退到默认文件 folio.db。
func Open(driver, dsn string, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		path := strings.TrimSpace(dsn)
		if path == "" {
			path = "folio.db"
		}
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(path)
	case DriverPostgres:
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("postgres dsn is required")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate 为全部模型创建或更新表结构。
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&User{},
		&Category{},
		&Tag{},
		&Post{},
		&PostSEO{},
		&Comment{},
		&PostView{},
		&PostLike{},
		&CommentLike{},
	); err != nil {
		return err
	}
	return backfillSearchText(gdb)
}

// backfillSearchText 为迁移前写入、search_text 仍为空的文章补齐搜索列。
func backfillSearchText(gdb *gorm.DB) error {
	var posts []Post
	return gdb.Select("id", "title", "short_desc").
		Where("search_text = ? OR search_text IS NULL", "").
		FindInBatches(&posts, 200, func(tx *gorm.DB, _ int) error {
			for _, p := range posts {
				if err := gdb.Model(&Post{}).Where("id = ?", p.ID).
					UpdateColumn("search_text", SearchText(p.Title, p.ShortDesc)).Error; err != nil {
					return err
				}
			}
			return nil
		}).Error
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") {
		return nil
	}

	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
