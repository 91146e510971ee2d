// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package metrics provides Prometheus instrumentation for the issue
// ingestion pipeline: publish outcomes, consumer throughput, persistence
// failures, and cache efficiency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Publisher metrics
	PublishAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_publish_accepted_total",
			Help: "Issue events acknowledged by the broker",
		},
	)

	PublishDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_publish_degraded_total",
			Help: "Publish calls answered in degraded mode (broker absent or send failed)",
		},
	)

	// Consumer metrics
	ConsumerMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_consumer_messages_total",
			Help: "Messages received from the issues topic",
		},
	)

	ConsumerProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_consumer_processed_total",
			Help: "Messages fully processed (issue persisted and cached)",
		},
	)

	ConsumerParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_consumer_parse_errors_total",
			Help: "Poison messages skipped due to payload parse failure",
		},
	)

	// Persistence metrics
	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_store_writes_total",
			Help: "Document store write operations",
		},
		[]string{"operation"},
	)

	StoreWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_store_write_failures_total",
			Help: "Document store writes that failed and were committed-and-dropped",
		},
		[]string{"operation"},
	)

	// Read cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_read_cache_hits_total",
			Help: "Issue snapshots served from the read cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_read_cache_misses_total",
			Help: "Read cache lookups that fell back to the document store",
		},
	)

	CacheWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_read_cache_write_failures_total",
			Help: "Read cache writes that failed (ingestion unaffected)",
		},
	)

	// Deduplication metrics
	DedupHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_dedup_hits_total",
			Help: "Reports routed to an existing issue by fingerprint",
		},
	)

	DedupMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faultline_dedup_misses_total",
			Help: "Reports that created a new issue event",
		},
	)
)

// RecordPublish increments the counter for a publish outcome.
func RecordPublish(accepted bool) {
	if accepted {
		PublishAccepted.Inc()
		return
	}
	PublishDegraded.Inc()
}
