// Package rediscache stores region-mapping snapshots in Redis so several
// service instances can share one rebuilt mapping.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

const keyPrefix = "vacancy:region_mapping:"

// Cache implements region.Cache on a Redis client.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a Cache. A zero TTL keeps snapshots until invalidated.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// NewFromURL parses redisURL, verifies connectivity, and returns a Cache.
func NewFromURL(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(client, ttl), nil
}

// Load reads the snapshot for the platform. A missing key is a cache miss.
func (c *Cache) Load(ctx context.Context, platform vacancy.Platform) (region.Mapping, bool, error) {
	data, err := c.rdb.Get(ctx, key(platform)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var mapping region.Mapping
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, false, fmt.Errorf("decode mapping: %w", err)
	}
	return mapping, true, nil
}

// Store writes the snapshot. Last writer wins.
func (c *Cache) Store(ctx context.Context, platform vacancy.Platform, m region.Mapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	if err := c.rdb.Set(ctx, key(platform), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot for the platform.
func (c *Cache) Invalidate(ctx context.Context, platform vacancy.Platform) error {
	if err := c.rdb.Del(ctx, key(platform)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func key(platform vacancy.Platform) string {
	return keyPrefix + strings.ToLower(string(platform))
}
