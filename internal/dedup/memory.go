// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package dedup

import (
	"context"
	"sync"
	"time"

	"github.com/faultlinehq/faultline/internal/metrics"
)

// MemoryCache is a process-local Cache for single-instance deployments
// and tests. Expired entries are dropped lazily on lookup.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	issueID   string
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory dedup cache with the given window.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCacheWithClock(ttl, time.Now)
}

// NewMemoryCacheWithClock creates an in-memory dedup cache with an
// injected clock, letting tests drive TTL expiry deterministically.
func NewMemoryCacheWithClock(ttl time.Duration, now func() time.Time) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Lookup implements Cache.
func (c *MemoryCache) Lookup(_ context.Context, reporterID, fingerprint string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := dedupKey(reporterID, fingerprint)
	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		metrics.DedupMisses.Inc()
		return "", false, nil
	}
	metrics.DedupHits.Inc()
	return entry.issueID, true, nil
}

// Remember implements Cache.
func (c *MemoryCache) Remember(_ context.Context, reporterID, fingerprint, issueID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[dedupKey(reporterID, fingerprint)] = memoryEntry{
		issueID:   issueID,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Close implements Cache.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoryEntry)
	return nil
}
