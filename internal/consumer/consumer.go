// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package consumer drains issue events from the broker into the
// document store and the read cache.
//
// Delivery is at least once and every message is acknowledged after a
// single processing attempt, whether it succeeded or not. A message
// that cannot be parsed is poison and retrying it cannot help; a store
// write failure is logged and counted rather than redelivered, trading
// a possible lost write for a pipeline that cannot wedge itself on one
// bad message. Idempotent document IDs make the duplicates that
// at-least-once delivery produces harmless.
package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/faultlinehq/faultline/internal/config"
	"github.com/faultlinehq/faultline/internal/logging"
	"github.com/faultlinehq/faultline/internal/metrics"
	"github.com/faultlinehq/faultline/internal/models"
	"github.com/faultlinehq/faultline/internal/readcache"
	"github.com/faultlinehq/faultline/internal/store"
)

// Consumer is a suture service that polls the issues topic in small
// batches and writes each event through to storage.
type Consumer struct {
	subscriber message.Subscriber
	store      store.DocumentStore
	cache      readcache.RecentCache
	cfg        config.ConsumerConfig
	logger     zerolog.Logger
}

// New creates a consumer over an already-connected subscriber.
func New(subscriber message.Subscriber, docs store.DocumentStore, cache readcache.RecentCache, cfg config.ConsumerConfig) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		store:      docs,
		cache:      cache,
		cfg:        cfg,
		logger:     logging.With().Str("component", "consumer").Logger(),
	}
}

// String implements fmt.Stringer for supervisor logging.
func (c *Consumer) String() string {
	return "issue-consumer"
}

// Serve implements suture.Service. It subscribes and polls until the
// context is canceled. Shutdown is only observed between polls: a batch
// in flight is always finished and acknowledged first.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, models.TopicIssues)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", models.TopicIssues, err)
	}

	c.logger.Info().
		Str("topic", models.TopicIssues).
		Int("batch_size", c.cfg.BatchSize).
		Dur("poll_timeout", c.cfg.PollTimeout).
		Msg("Consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Consumer stopping")
			return ctx.Err()
		default:
		}

		batch, open := c.poll(ctx, messages)
		for _, msg := range batch {
			c.process(msg)
			msg.Ack()
		}
		if !open {
			return fmt.Errorf("subscription channel closed")
		}
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.IdleSleep):
			}
		}
	}
}

// poll gathers up to BatchSize messages, waiting at most PollTimeout
// for the batch to fill. open is false when the subscription closed.
func (c *Consumer) poll(ctx context.Context, messages <-chan *message.Message) (batch []*message.Message, open bool) {
	timer := time.NewTimer(c.cfg.PollTimeout)
	defer timer.Stop()

	for len(batch) < c.cfg.BatchSize {
		select {
		case msg, ok := <-messages:
			if !ok {
				return batch, false
			}
			batch = append(batch, msg)
		case <-timer.C:
			return batch, true
		case <-ctx.Done():
			return batch, true
		}
	}
	return batch, true
}

// process handles one message. It never fails: each outcome is logged
// and counted, and the caller acknowledges regardless.
func (c *Consumer) process(msg *message.Message) {
	metrics.ConsumerMessages.Inc()

	event, err := models.DeserializeEvent(msg.Payload)
	if err != nil {
		metrics.ConsumerParseErrors.Inc()
		c.logger.Error().Err(err).
			Str("message_uuid", msg.UUID).
			Msg("Discarding unparseable message")
		return
	}

	issue := models.IssueFromEvent(event)

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()

	created, err := c.store.CreateOrUpdate(ctx, issue)
	if err != nil {
		c.logger.Error().Err(err).
			Str("event_id", event.EventID).
			Str("issue_id", issue.ID).
			Msg("Failed to persist issue, message will not be redelivered")
		return
	}
	if !created {
		c.logger.Debug().
			Str("issue_id", issue.ID).
			Msg("Duplicate delivery, document already exists")
	}

	if err := c.cache.Put(ctx, issue); err != nil {
		// Cache loss is tolerated; readers fall through to the store.
		c.logger.Warn().Err(err).
			Str("issue_id", issue.ID).
			Msg("Failed to cache issue")
	}

	metrics.ConsumerProcessed.Inc()
}
