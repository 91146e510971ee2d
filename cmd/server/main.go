// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Command server runs the Faultline ingestion pipeline: HTTP reporting
// endpoint, broker publisher, stream consumer, document store and read
// cache, all under one supervision tree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/faultlinehq/faultline/internal/api"
	"github.com/faultlinehq/faultline/internal/broker"
	"github.com/faultlinehq/faultline/internal/config"
	"github.com/faultlinehq/faultline/internal/consumer"
	"github.com/faultlinehq/faultline/internal/dedup"
	"github.com/faultlinehq/faultline/internal/ingest"
	"github.com/faultlinehq/faultline/internal/logging"
	"github.com/faultlinehq/faultline/internal/publisher"
	"github.com/faultlinehq/faultline/internal/readcache"
	"github.com/faultlinehq/faultline/internal/store"
	"github.com/faultlinehq/faultline/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "faultline: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()
	logger.Info().Msg("Starting Faultline")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Embedded broker for single-instance deployments.
	if cfg.Broker.Embedded {
		embedded, err := broker.NewEmbeddedServer(cfg.Broker)
		if err != nil {
			return fmt.Errorf("start embedded broker: %w", err)
		}
		cfg.Broker.URL = embedded.ClientURL()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Embedded broker shutdown failed")
			}
		}()
		logger.Info().Str("url", cfg.Broker.URL).Msg("Embedded broker started")
	}

	// The stream must exist before the publisher or consumer bind to
	// it. Broker unavailability here is not fatal: the publisher will
	// enter degraded mode and the consumer will stay stopped, but the
	// read path keeps serving.
	brokerUp := ensureStream(ctx, cfg.Broker)

	docs, err := store.NewBadgerStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() {
		if err := docs.Close(); err != nil {
			logger.Error().Err(err).Msg("Document store close failed")
		}
	}()

	dedupCache, recentCache := buildCaches(cfg)
	defer dedupCache.Close()
	defer recentCache.Close()

	wmLogger := logging.NewWatermillAdapter(logging.With().Str("component", "watermill").Logger())

	pub, err := publisher.New(cfg.Publisher, publisher.NATSConnect(cfg.Broker, cfg.Publisher.ConnectTimeout, wmLogger))
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Error().Err(err).Msg("Publisher close failed")
		}
	}()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	if brokerUp {
		sub, err := consumer.NATSSubscriber(cfg.Broker, cfg.Consumer, wmLogger)
		if err != nil {
			logger.Error().Err(err).Msg("Consumer subscriber unavailable, running without consumption")
		} else {
			defer func() {
				if err := sub.Close(); err != nil {
					logger.Error().Err(err).Msg("Subscriber close failed")
				}
			}()
			tree.AddPipelineService(consumer.New(sub, docs, recentCache, cfg.Consumer))
		}
	} else {
		logger.Warn().Msg("Broker unreachable, running without consumption")
	}

	ingestSvc := ingest.NewService(pub, dedupCache, docs)
	handler := api.NewHandler(ingestSvc, docs, recentCache, pub)
	router := api.NewRouter(handler, cfg.Server.Timeout)
	tree.AddAPIService(api.NewServer(cfg.Server, router))

	logger.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Bool("broker_up", brokerUp).
		Msg("Faultline ready")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("supervisor: %w", err)
	}

	logger.Info().Msg("Faultline stopped")
	return nil
}

// ensureStream provisions the issues stream, reporting whether the
// broker could be reached.
func ensureStream(ctx context.Context, cfg config.BrokerConfig) bool {
	nc, err := natsgo.Connect(cfg.URL, natsgo.Timeout(5*time.Second))
	if err != nil {
		logging.Error().Err(err).Str("url", cfg.URL).Msg("Broker connection failed")
		return false
	}
	defer nc.Close()

	mgr, err := broker.NewStreamManager(nc, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Stream manager creation failed")
		return false
	}

	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := mgr.EnsureStream(streamCtx); err != nil {
		logging.Error().Err(err).Str("stream", cfg.StreamName).Msg("Stream provisioning failed")
		return false
	}
	return true
}

// buildCaches selects Redis-backed caches when configured, falling back
// to process-local ones.
func buildCaches(cfg *config.Config) (dedup.Cache, readcache.RecentCache) {
	if !cfg.Redis.Enabled {
		return dedup.NewMemoryCache(cfg.Dedup.TTL), readcache.NewMemoryRecentCache(cfg.ReadCache.TTL)
	}

	// Separate clients so each cache owns its connection lifecycle.
	dedupClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	recentClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	return dedup.NewRedisCache(dedupClient, cfg.Dedup.TTL), readcache.NewRedisRecentCache(recentClient, cfg.ReadCache.TTL)
}
