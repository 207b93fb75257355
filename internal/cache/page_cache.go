// Package cache keeps rendered listing pages in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"DevcampAPI/internal/logger"
	"DevcampAPI/internal/metrics"
	"DevcampAPI/internal/query"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "page:"

// PageCache stores PageResults by resource, parent scope and query string.
// A nil *PageCache is a valid, disabled cache.
type PageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *PageCache {
	if rdb == nil {
		return nil
	}
	return &PageCache{rdb: rdb, ttl: ttl}
}

// Key is "page:<resource>:<sha256>" over the parent id and the canonical
// (key-sorted) query string.
func Key(resource, parentID string, params url.Values) string {
	sum := sha256.Sum256([]byte(parentID + "|" + params.Encode()))
	return keyPrefix + resource + ":" + hex.EncodeToString(sum[:])
}

// GetOrBuild returns the cached page or builds and stores it.
// Redis failures are logged and fall through to build.
func (c *PageCache) GetOrBuild(ctx context.Context, resource, parentID string, params url.Values,
	build func(context.Context) (query.PageResult, error)) (query.PageResult, error) {
	if c == nil {
		return build(ctx)
	}
	key := Key(resource, parentID, params)

	// 1. Попытка загрузить из Redis
	cached, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var page query.PageResult
		if err := json.Unmarshal(cached, &page); err == nil {
			logger.Debug("page_cache_hit", map[string]any{"key": key})
			metrics.PageCacheLookups.WithLabelValues(resource, "hit").Inc()
			return page, nil
		}
		logger.Warn("page_cache_invalid", map[string]any{"key": key, "error": err.Error()})
	} else if err != redis.Nil {
		logger.Warn("page_cache_get_failed", map[string]any{"key": key, "error": err.Error()})
	}

	// 2. Строим страницу
	metrics.PageCacheLookups.WithLabelValues(resource, "miss").Inc()
	page, err := build(ctx)
	if err != nil {
		return query.PageResult{}, err
	}

	// 3. Сохраняем в Redis
	data, err := json.Marshal(page)
	if err != nil {
		logger.Warn("page_cache_marshal_failed", map[string]any{"key": key, "error": err.Error()})
		return page, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("page_cache_set_failed", map[string]any{"key": key, "error": err.Error()})
	}
	return page, nil
}

// Flush удаляет все закэшированные страницы перечисленных ресурсов
func (c *PageCache) Flush(ctx context.Context, resources ...string) error {
	if c == nil {
		return nil
	}
	for _, name := range resources {
		iter := c.rdb.Scan(ctx, 0, keyPrefix+name+":*", 1000).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			if err := c.rdb.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("failed to delete key %s: %w", key, err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan error: %w", err)
		}
	}
	return nil
}
