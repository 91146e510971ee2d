// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Server.Port != 6001 {
		t.Errorf("Expected default port 6001, got %d", cfg.Server.Port)
	}
	if cfg.Consumer.BatchSize != 10 {
		t.Errorf("Expected default batch size 10, got %d", cfg.Consumer.BatchSize)
	}
	if cfg.Consumer.PollTimeout != time.Second {
		t.Errorf("Expected default poll timeout 1s, got %s", cfg.Consumer.PollTimeout)
	}
	if cfg.Dedup.TTL != 24*time.Hour {
		t.Errorf("Expected default dedup TTL 24h, got %s", cfg.Dedup.TTL)
	}
	if cfg.ReadCache.TTL != time.Hour {
		t.Errorf("Expected default read cache TTL 1h, got %s", cfg.ReadCache.TTL)
	}
	if cfg.Broker.StreamName != "ISSUES" {
		t.Errorf("Expected default stream ISSUES, got %s", cfg.Broker.StreamName)
	}

	backoff := cfg.Publisher.ConnectBackoff
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(backoff) != len(want) {
		t.Fatalf("Expected %d backoff steps, got %d", len(want), len(backoff))
	}
	for i := range want {
		if backoff[i] != want[i] {
			t.Errorf("Expected backoff[%d]=%s, got %s", i, want[i], backoff[i])
		}
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "7777")
	t.Setenv("CONSUMER_BATCH_SIZE", "25")
	t.Setenv("DEDUP_TTL", "48h")
	t.Setenv("NATS_URL", "nats://broker.internal:4222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("Expected port 7777, got %d", cfg.Server.Port)
	}
	if cfg.Consumer.BatchSize != 25 {
		t.Errorf("Expected batch size 25, got %d", cfg.Consumer.BatchSize)
	}
	if cfg.Dedup.TTL != 48*time.Hour {
		t.Errorf("Expected dedup TTL 48h, got %s", cfg.Dedup.TTL)
	}
	if cfg.Broker.URL != "nats://broker.internal:4222" {
		t.Errorf("Expected broker URL override, got %s", cfg.Broker.URL)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9090\nconsumer:\n  group: file-consumers\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090 from file, got %d", cfg.Server.Port)
	}
	if cfg.Consumer.Group != "file-consumers" {
		t.Errorf("Expected group from file, got %s", cfg.Consumer.Group)
	}
	// Untouched settings keep their defaults.
	if cfg.Consumer.BatchSize != 10 {
		t.Errorf("Expected default batch size, got %d", cfg.Consumer.BatchSize)
	}
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7777")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Expected env to win over file, got %d", cfg.Server.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }},
		{"missing broker url", func(c *Config) { c.Broker.URL = ""; c.Broker.Embedded = false }},
		{"missing stream name", func(c *Config) { c.Broker.StreamName = "" }},
		{"zero batch size", func(c *Config) { c.Consumer.BatchSize = 0 }},
		{"zero poll timeout", func(c *Config) { c.Consumer.PollTimeout = 0 }},
		{"missing consumer group", func(c *Config) { c.Consumer.Group = "" }},
		{"zero dedup ttl", func(c *Config) { c.Dedup.TTL = 0 }},
		{"zero read cache ttl", func(c *Config) { c.ReadCache.TTL = 0 }},
		{"missing store path", func(c *Config) { c.Store.Path = "" }},
		{"redis enabled without addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		if err := defaultConfig().Validate(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("embedded broker allows empty url", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.Broker.URL = ""
		cfg.Broker.Embedded = true
		if err := cfg.Validate(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})
}
