package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/maheshrc27/social-publisher/internal/models"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func publishedKey(publicationID int64) string {
	return fmt.Sprintf("publication:%d:published", publicationID)
}

func (c *RedisCache) StorePublished(ctx context.Context, pub *models.Publication) error {
	if pub.PlatformPostID == nil || pub.PublishedAt == nil {
		return fmt.Errorf("publication %d is not published", pub.ID)
	}

	val := PublishedEntry{
		PublicationID:  pub.ID,
		PostID:         pub.PostID,
		Platform:       pub.Platform,
		PlatformPostID: *pub.PlatformPostID,
		PublishedAt:    pub.PublishedAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, publishedKey(pub.ID), b, c.ttl).Err()
}

// GetPublished returns nil, nil when nothing is cached for the id.
func (c *RedisCache) GetPublished(ctx context.Context, publicationID int64) (*PublishedEntry, error) {
	raw, err := c.rdb.Get(ctx, publishedKey(publicationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry PublishedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *RedisCache) Forget(ctx context.Context, publicationID int64) error {
	return c.rdb.Del(ctx, publishedKey(publicationID)).Err()
}
