// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package publisher sends issue events to the broker without ever
// failing the reporting path. If the broker cannot be reached during
// startup the publisher runs degraded for the life of the process:
// reports are acknowledged as degraded instead of being accepted, and
// callers are expected to resubmit once the service is restarted
// against a healthy broker.
package publisher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/faultlinehq/faultline/internal/config"
	"github.com/faultlinehq/faultline/internal/logging"
	"github.com/faultlinehq/faultline/internal/metrics"
	"github.com/faultlinehq/faultline/internal/models"
)

// Result tells the caller what happened to their report.
type Result string

// Result values.
const (
	// ResultAccepted means the event was handed to the broker.
	ResultAccepted Result = "accepted"
	// ResultDegraded means the event was not published and will not be
	// retried. The report itself is still acknowledged.
	ResultDegraded Result = "degraded"
)

// State is the publisher's connection state.
type State string

// State values. Degraded is terminal: once entered it holds until the
// process restarts.
const (
	StateConnected State = "connected"
	StateDegraded  State = "degraded"
)

// ConnectFunc produces a connected broker publisher. Injected so tests
// can stand in an in-memory pub/sub or a failing connection.
type ConnectFunc func() (message.Publisher, error)

// Publisher wraps a Watermill publisher with startup retry, a terminal
// degraded mode and circuit breaker protection on sends.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[any]
	logger         zerolog.Logger

	mu     sync.RWMutex
	state  State
	closed bool
}

// New connects to the broker via connect, retrying on a fixed backoff
// schedule. When every attempt fails the returned publisher is valid
// but degraded; New itself never returns an error for broker
// unavailability, only for a nil connect function.
func New(cfg config.PublisherConfig, connect ConnectFunc) (*Publisher, error) {
	if connect == nil {
		return nil, fmt.Errorf("publisher: connect function is required")
	}

	logger := logging.With().Str("component", "publisher").Logger()

	p := &Publisher{
		logger: logger,
		state:  StateDegraded,
	}

	attempts := len(cfg.ConnectBackoff) + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := cfg.ConnectBackoff[attempt-1]
			logger.Warn().
				Int("attempt", attempt+1).
				Dur("backoff", wait).
				Msg("Broker connection failed, retrying")
			time.Sleep(wait)
		}

		pub, err := connect()
		if err == nil {
			p.publisher = pub
			p.state = StateConnected
			break
		}
		logger.Error().Err(err).Int("attempt", attempt+1).Msg("Broker connection attempt failed")
	}

	if p.state == StateDegraded {
		logger.Error().Msg("All broker connection attempts failed, entering degraded mode until restart")
		return p, nil
	}

	p.circuitBreaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "issue-publisher",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	})

	logger.Info().Msg("Publisher connected")
	return p, nil
}

// State returns the current connection state.
func (p *Publisher) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// PublishEvent serializes and publishes an issue event. It never
// returns an error: any failure is absorbed into ResultDegraded so the
// reporting path stays available.
func (p *Publisher) PublishEvent(ctx context.Context, event *models.IssueEvent) Result {
	p.mu.RLock()
	state, closed := p.state, p.closed
	p.mu.RUnlock()

	if closed || state == StateDegraded {
		metrics.RecordPublish(false)
		return ResultDegraded
	}

	data, err := models.SerializeEvent(event)
	if err != nil {
		p.logger.Error().Err(err).Str("event_id", event.EventID).Msg("Failed to serialize event")
		metrics.RecordPublish(false)
		return ResultDegraded
	}

	msg := message.NewMessage(event.EventID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("reporter_id", event.ReporterID)
	// Broker-side deduplication key for redelivered publishes.
	msg.Metadata.Set(natsgo.MsgIdHdr, event.EventID)

	_, err = p.circuitBreaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(event.Topic(), msg)
	})
	if err != nil {
		p.logger.Error().Err(err).
			Str("event_id", event.EventID).
			Str("topic", event.Topic()).
			Msg("Failed to publish event")
		metrics.RecordPublish(false)
		return ResultDegraded
	}

	metrics.RecordPublish(true)
	return ResultAccepted
}

// Close shuts down the underlying publisher. Safe to call in degraded
// mode and more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.publisher == nil {
		return nil
	}
	return p.publisher.Close()
}
