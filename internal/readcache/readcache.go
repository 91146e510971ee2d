// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package readcache keeps a short-lived copy of recently written issues
// in front of the document store. Entries expire after a TTL and the
// cache may be flushed at any time; readers fall through to the store
// on a miss, so cache loss is never data loss.
package readcache

import (
	"context"

	"github.com/faultlinehq/faultline/internal/models"
)

// RecentCache caches individual issues and a recency-ordered index of
// their IDs.
type RecentCache interface {
	// Put stores the issue under its ID with the cache TTL and adds it
	// to the recency index scored by creation time.
	Put(ctx context.Context, issue *models.Issue) error

	// Get returns the cached issue, or ok=false on a miss or an
	// expired entry.
	Get(ctx context.Context, id string) (issue *models.Issue, ok bool, err error)

	// ListRecent returns up to limit cached issues newest first.
	// IDs whose entries have expired are skipped, so fewer than limit
	// results does not mean fewer issues exist in the store.
	ListRecent(ctx context.Context, limit int) ([]*models.Issue, error)

	// Invalidate drops the cached copy of an issue after a store-side
	// mutation so readers do not see stale fields for a full TTL.
	Invalidate(ctx context.Context, id string) error

	// Close releases underlying resources.
	Close() error
}
