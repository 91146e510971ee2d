// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package dedup remembers recently reported issue fingerprints per
// reporter so that repeat reports inside the dedup window are folded
// into the existing issue instead of creating a new one.
//
// Entries expire after a configurable TTL. A cache outage degrades to
// cache misses: duplicate suppression is best-effort and a missed
// lookup only costs an extra issue, never a lost report.
package dedup

import "context"

// Cache maps (reporter, fingerprint) pairs to the issue they resolved
// to, for the duration of the dedup window.
type Cache interface {
	// Lookup returns the issue ID previously remembered for this
	// reporter and fingerprint. ok is false when no live entry exists.
	Lookup(ctx context.Context, reporterID, fingerprint string) (issueID string, ok bool, err error)

	// Remember records that this reporter's fingerprint resolved to
	// issueID. The entry expires after the cache's TTL; remembering an
	// existing entry refreshes its expiry.
	Remember(ctx context.Context, reporterID, fingerprint, issueID string) error

	// Close releases underlying resources.
	Close() error
}
