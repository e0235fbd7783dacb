// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"labeling_backend/internal/feature/labeling/domain/entity"
	"labeling_backend/internal/feature/labeling/usecase"
)

// CachingRecordRepository decorates a LabelingRecordRepository with Redis
// caching for the read side. The polling display client hits Find repeatedly
// while waiting for a result, so successful lookups are cached and entries
// are invalidated whenever the record is overwritten.
type CachingRecordRepository struct {
	inner     usecase.LabelingRecordRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingRecordRepository decorates a LabelingRecordRepository with Redis
// caching. If ttl is 0, it defaults to 1 minute. If namespace is empty, it
// uses "labels".
func NewCachingRecordRepository(rdb *redis.Client, ttl time.Duration, inner usecase.LabelingRecordRepository, namespace string) *CachingRecordRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if namespace == "" {
		namespace = "labels"
	}
	return &CachingRecordRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Upsert writes through to the underlying repository and invalidates the
// cached entry for the image so pollers never observe a stale record.
func (c *CachingRecordRepository) Upsert(ctx context.Context, record entity.LabelingRecord) error {
	if err := c.inner.Upsert(ctx, record); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}
	// Best effort: a failed invalidation only delays visibility until TTL
	_ = c.rdb.Del(ctx, c.cacheKey(record.ImageName)).Err()
	return nil
}

// Find retrieves a record, checking the cache first and falling back to the
// underlying store. Misses (ErrRecordNotFound) are not cached: the common
// case is a client polling for a record that is about to appear.
func (c *CachingRecordRepository) Find(ctx context.Context, imageName string) (*entity.LabelingRecord, error) {
	if c.rdb == nil {
		return c.inner.Find(ctx, imageName)
	}

	key := c.cacheKey(imageName)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.LabelingRecord
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.Find(ctx, imageName)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// cacheKey generates the cache key for an image name.
func (c *CachingRecordRepository) cacheKey(imageName string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(imageName))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
