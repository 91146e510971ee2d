// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package readcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/faultlinehq/faultline/internal/metrics"
	"github.com/faultlinehq/faultline/internal/models"
)

// MemoryRecentCache is a process-local RecentCache for single-instance
// deployments and tests.
type MemoryRecentCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	issue     *models.Issue
	expiresAt time.Time
}

// NewMemoryRecentCache creates an in-memory read cache with the given TTL.
func NewMemoryRecentCache(ttl time.Duration) *MemoryRecentCache {
	return &MemoryRecentCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put implements RecentCache.
func (c *MemoryRecentCache) Put(_ context.Context, issue *models.Issue) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := *issue
	c.entries[issue.ID] = memoryEntry{
		issue:     &copied,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Get implements RecentCache.
func (c *MemoryRecentCache) Get(_ context.Context, id string) (*models.Issue, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok || c.now().After(entry.expiresAt) {
		delete(c.entries, id)
		metrics.CacheMisses.Inc()
		return nil, false, nil
	}
	metrics.CacheHits.Inc()
	copied := *entry.issue
	return &copied, true, nil
}

// ListRecent implements RecentCache.
func (c *MemoryRecentCache) ListRecent(_ context.Context, limit int) ([]*models.Issue, error) {
	if limit <= 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	live := make([]*models.Issue, 0, len(c.entries))
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
			continue
		}
		live = append(live, entry.issue)
	}

	sort.Slice(live, func(i, j int) bool {
		return live[i].CreatedAt.After(live[j].CreatedAt)
	})
	if len(live) > limit {
		live = live[:limit]
	}

	out := make([]*models.Issue, len(live))
	for i, issue := range live {
		copied := *issue
		out[i] = &copied
	}
	return out, nil
}

// Invalidate implements RecentCache.
func (c *MemoryRecentCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

// Close implements RecentCache.
func (c *MemoryRecentCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}
