// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package config loads and validates application configuration with
// layered sources: built-in defaults, an optional YAML file, and
// environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Broker    BrokerConfig    `koanf:"broker"`
	Publisher PublisherConfig `koanf:"publisher"`
	Consumer  ConsumerConfig  `koanf:"consumer"`
	Store     StoreConfig     `koanf:"store"`
	Redis     RedisConfig     `koanf:"redis"`
	Dedup     DedupConfig     `koanf:"dedup"`
	ReadCache ReadCacheConfig `koanf:"read_cache"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// BrokerConfig holds NATS JetStream settings shared by the publisher and
// the consumer.
type BrokerConfig struct {
	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// Embedded starts an in-process NATS server instead of dialing URL.
	Embedded bool `koanf:"embedded"`

	// StoreDir is the JetStream storage directory (embedded mode).
	StoreDir string `koanf:"store_dir"`

	// MaxMemory/MaxStore bound JetStream resources in bytes (embedded mode).
	MaxMemory int64 `koanf:"max_memory"`
	MaxStore  int64 `koanf:"max_store"`

	// StreamName is the JetStream stream holding issue events.
	StreamName string `koanf:"stream_name"`

	// RetentionDays is how long the stream keeps events. This window
	// bounds external replay after committed-and-dropped store failures.
	RetentionDays int `koanf:"retention_days"`
}

// PublisherConfig holds reporting-side publish settings.
type PublisherConfig struct {
	// ConnectBackoff is the fixed wait schedule between connection
	// attempts at construction. Exhausting it puts the publisher in
	// degraded mode until process restart.
	ConnectBackoff []time.Duration `koanf:"connect_backoff"`

	// ConnectTimeout bounds each individual connection attempt.
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// ConsumerConfig holds the poll/process/commit loop settings.
type ConsumerConfig struct {
	// Group is the consumer-group identity (JetStream durable name and
	// queue group). Instances sharing it split partition ownership.
	Group string `koanf:"group"`

	// PollTimeout bounds one poll cycle.
	PollTimeout time.Duration `koanf:"poll_timeout"`

	// BatchSize is the maximum messages handled per cycle.
	BatchSize int `koanf:"batch_size"`

	// IdleSleep is the pause after an empty poll.
	IdleSleep time.Duration `koanf:"idle_sleep"`

	// WriteTimeout is the per-call budget for store and cache writes so
	// one unavailable dependency cannot stall a whole batch.
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	// Path is the BadgerDB directory.
	Path string `koanf:"path"`
}

// RedisConfig holds the shared Redis connection settings used by the
// deduplication cache and the read cache.
type RedisConfig struct {
	// Enabled switches both caches to Redis; when false, in-memory
	// implementations are used (single-instance deployments).
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
	DB      int    `koanf:"db"`
}

// DedupConfig holds fingerprint deduplication settings.
type DedupConfig struct {
	// TTL is the window during which repeated fingerprints collapse into
	// the existing issue.
	TTL time.Duration `koanf:"ttl"`
}

// ReadCacheConfig holds recent-issue cache settings.
type ReadCacheConfig struct {
	// TTL bounds how long snapshots and the recent index live.
	TTL time.Duration `koanf:"ttl"`
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Broker.URL == "" && !c.Broker.Embedded {
		return fmt.Errorf("broker.url required when broker.embedded is false")
	}
	if c.Broker.StreamName == "" {
		return fmt.Errorf("broker.stream_name required")
	}
	if c.Consumer.BatchSize < 1 {
		return fmt.Errorf("consumer.batch_size must be positive, got %d", c.Consumer.BatchSize)
	}
	if c.Consumer.PollTimeout <= 0 {
		return fmt.Errorf("consumer.poll_timeout must be positive")
	}
	if c.Consumer.Group == "" {
		return fmt.Errorf("consumer.group required")
	}
	if c.Dedup.TTL <= 0 {
		return fmt.Errorf("dedup.ttl must be positive")
	}
	if c.ReadCache.TTL <= 0 {
		return fmt.Errorf("read_cache.ttl must be positive")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path required")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required when redis.enabled is true")
	}
	return nil
}
