package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss 表示键不存在或缓存未启用。
	ErrCacheMiss     = errors.New("cache miss")
	ErrCacheDisabled = errors.New("cache disabled")
)

const (
	renderedPostKey = "post:%d:rendered:%d" // <postID>:<updatedAt unix nano>
	postPrefixKey   = "post:%d:*"
)

// RenderedPostKey 以文章 ID 与更新时间区分渲染结果，内容变更后旧键自然失效。
func RenderedPostKey(postID uint, updatedAt time.Time) string {
	return fmt.Sprintf(renderedPostKey, postID, updatedAt.UnixNano())
}

// Cache wraps a redis client. A nil *Cache behaves as a disabled cache.
type Cache struct {
	rdb    *redis.Client
	prefix string
}

// New connects to url and pings it. An empty url returns a nil cache.
func New(ctx context.Context, url, prefix string) (*Cache, error) {
	if url == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return NewWithClient(rdb, prefix), nil
}

func NewWithClient(rdb *redis.Client, prefix string) *Cache {
	return &Cache{rdb: rdb, prefix: prefix}
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil
}

// SetJSON stores value encoded as JSON.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.enabled() {
		return ErrCacheDisabled
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(key), raw, ttl).Err()
}

// Get decodes the JSON value stored at key.
func Get[T any](ctx context.Context, c *Cache, key string) (*T, error) {
	if !c.enabled() {
		return nil, ErrCacheDisabled
	}

	value, err := c.rdb.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	if value == "null" {
		return nil, ErrCacheMiss
	}

	var result T
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Del removes keys; missing keys are ignored.
func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// InvalidatePost 删除某篇文章的全部缓存条目。
func (c *Cache) InvalidatePost(ctx context.Context, postID uint) error {
	if !c.enabled() {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, c.key(fmt.Sprintf(postPrefixKey, postID)), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Close()
}
