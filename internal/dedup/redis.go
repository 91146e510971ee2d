// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/faultlinehq/faultline/internal/metrics"
)

// RedisCache stores fingerprint entries in Redis under
// {reporter}:error_fingerprint:{fingerprint} with a rolling TTL, so the
// dedup window is shared across all ingest instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing Redis client. The caller owns the
// client's lifecycle unless Close is used.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func dedupKey(reporterID, fingerprint string) string {
	return fmt.Sprintf("%s:error_fingerprint:%s", reporterID, fingerprint)
}

// Lookup implements Cache.
func (c *RedisCache) Lookup(ctx context.Context, reporterID, fingerprint string) (string, bool, error) {
	issueID, err := c.client.Get(ctx, dedupKey(reporterID, fingerprint)).Result()
	if errors.Is(err, redis.Nil) {
		metrics.DedupMisses.Inc()
		return "", false, nil
	}
	if err != nil {
		metrics.DedupMisses.Inc()
		return "", false, fmt.Errorf("dedup lookup: %w", err)
	}
	metrics.DedupHits.Inc()
	return issueID, true, nil
}

// Remember implements Cache.
func (c *RedisCache) Remember(ctx context.Context, reporterID, fingerprint, issueID string) error {
	if err := c.client.Set(ctx, dedupKey(reporterID, fingerprint), issueID, c.ttl).Err(); err != nil {
		return fmt.Errorf("dedup remember: %w", err)
	}
	return nil
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
