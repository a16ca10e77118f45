package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ms-events/internal/models"
)

const categoriesKey = "events:categories:v1"

// CategoryCache keeps the category list in Redis for TTL.
type CategoryCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCategoryCache(client *redis.Client, ttl time.Duration) *CategoryCache {
	return &CategoryCache{Client: client, TTL: ttl}
}

// Get returns (nil, nil) on a cache miss.
func (c *CategoryCache) Get(ctx context.Context) ([]models.EventCategory, error) {
	raw, err := c.Client.Get(ctx, categoriesKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read category cache: %w", err)
	}
	var categories []models.EventCategory
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("decode category cache: %w", err)
	}
	return categories, nil
}

func (c *CategoryCache) Set(ctx context.Context, categories []models.EventCategory) error {
	raw, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("encode category cache: %w", err)
	}
	if err := c.Client.Set(ctx, categoriesKey, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("write category cache: %w", err)
	}
	return nil
}

func (c *CategoryCache) Invalidate(ctx context.Context) error {
	return c.Client.Del(ctx, categoriesKey).Err()
}
