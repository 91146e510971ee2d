// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/faultline/config.yaml",
	"/etc/faultline/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. The publish
// backoff schedule and consumer poll values are design constants of the
// pipeline, overridable for testing.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    6001,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Broker: BrokerConfig{
			URL:           "nats://127.0.0.1:4222",
			Embedded:      false,
			StoreDir:      "/data/nats/jetstream",
			MaxMemory:     1 << 30,  // 1GB
			MaxStore:      10 << 30, // 10GB
			StreamName:    "ISSUES",
			RetentionDays: 7,
		},
		Publisher: PublisherConfig{
			ConnectBackoff: []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second},
			ConnectTimeout: 5 * time.Second,
		},
		Consumer: ConsumerConfig{
			Group:        "issuetracker-consumer",
			PollTimeout:  time.Second,
			BatchSize:    10,
			IdleSleep:    100 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Path: "/data/faultline/issues",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "127.0.0.1:6379",
			DB:      0,
		},
		Dedup: DedupConfig{
			TTL: 24 * time.Hour,
		},
		ReadCache: ReadCacheConfig{
			TTL: time.Hour,
		},
	}
}

// Load builds configuration using Koanf v2 with layered sources:
//
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables: highest priority
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings translates environment variable names to config paths.
// Only listed variables are honored; everything else is ignored so that
// unrelated environment noise cannot reshape the configuration.
var envMappings = map[string]string{
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"nats_url":            "broker.url",
	"nats_embedded":       "broker.embedded",
	"nats_store_dir":      "broker.store_dir",
	"nats_max_memory":     "broker.max_memory",
	"nats_max_store":      "broker.max_store",
	"nats_stream_name":    "broker.stream_name",
	"nats_retention_days": "broker.retention_days",

	"publisher_connect_timeout": "publisher.connect_timeout",

	"consumer_group":         "consumer.group",
	"consumer_poll_timeout":  "consumer.poll_timeout",
	"consumer_batch_size":    "consumer.batch_size",
	"consumer_idle_sleep":    "consumer.idle_sleep",
	"consumer_write_timeout": "consumer.write_timeout",

	"store_path": "store.path",

	"redis_enabled": "redis.enabled",
	"redis_addr":    "redis.addr",
	"redis_db":      "redis.db",

	"dedup_ttl":      "dedup.ttl",
	"read_cache_ttl": "read_cache.ttl",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
