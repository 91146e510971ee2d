// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package readcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/faultlinehq/faultline/internal/metrics"
	"github.com/faultlinehq/faultline/internal/models"
)

// recentIndexKey is the sorted set holding issue IDs scored by creation
// time. It carries the same TTL as the entries it indexes, refreshed on
// every write, so an idle cache empties itself.
const recentIndexKey = "issues:recent"

func issueCacheKey(id string) string {
	return "issue:" + id
}

// RedisRecentCache implements RecentCache on Redis.
type RedisRecentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRecentCache wraps an existing Redis client.
func NewRedisRecentCache(client *redis.Client, ttl time.Duration) *RedisRecentCache {
	return &RedisRecentCache{client: client, ttl: ttl}
}

// Put implements RecentCache.
func (c *RedisRecentCache) Put(ctx context.Context, issue *models.Issue) error {
	data, err := json.Marshal(issue)
	if err != nil {
		return fmt.Errorf("marshal issue for cache: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, issueCacheKey(issue.ID), data, c.ttl)
	pipe.ZAdd(ctx, recentIndexKey, redis.Z{
		Score:  float64(issue.CreatedAt.UTC().UnixNano()),
		Member: issue.ID,
	})
	pipe.Expire(ctx, recentIndexKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.CacheWriteFailures.Inc()
		return fmt.Errorf("cache issue %s: %w", issue.ID, err)
	}
	return nil
}

// Get implements RecentCache.
func (c *RedisRecentCache) Get(ctx context.Context, id string) (*models.Issue, bool, error) {
	data, err := c.client.Get(ctx, issueCacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.CacheMisses.Inc()
		return nil, false, fmt.Errorf("cache get %s: %w", id, err)
	}

	var issue models.Issue
	if err := json.Unmarshal(data, &issue); err != nil {
		metrics.CacheMisses.Inc()
		return nil, false, fmt.Errorf("decode cached issue %s: %w", id, err)
	}
	metrics.CacheHits.Inc()
	return &issue, true, nil
}

// ListRecent implements RecentCache. Index members whose issue entry
// expired are skipped and pruned from the index.
func (c *RedisRecentCache) ListRecent(ctx context.Context, limit int) ([]*models.Issue, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids, err := c.client.ZRevRange(ctx, recentIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent index: %w", err)
	}

	issues := make([]*models.Issue, 0, len(ids))
	for _, id := range ids {
		issue, ok, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			c.client.ZRem(ctx, recentIndexKey, id)
			continue
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// Invalidate implements RecentCache.
func (c *RedisRecentCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, issueCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidate issue %s: %w", id, err)
	}
	return nil
}

// Close implements RecentCache.
func (c *RedisRecentCache) Close() error {
	return c.client.Close()
}
