// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package publisher

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/faultlinehq/faultline/internal/config"
)

// NATSConnect returns a ConnectFunc that dials NATS JetStream once,
// failing fast so the caller's backoff schedule controls retries.
func NATSConnect(cfg config.BrokerConfig, timeout time.Duration, logger watermill.LoggerAdapter) ConnectFunc {
	return func() (message.Publisher, error) {
		natsOpts := []natsgo.Option{
			natsgo.RetryOnFailedConnect(false),
			natsgo.Timeout(timeout),
			natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
				if err != nil {
					logger.Error("NATS disconnected", err, nil)
				}
			}),
			natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
				logger.Info("NATS reconnected", watermill.LogFields{
					"url": nc.ConnectedUrl(),
				})
			}),
		}

		wmConfig := wmNats.PublisherConfig{
			URL:         cfg.URL,
			NatsOptions: natsOpts,
			Marshaler:   &wmNats.NATSMarshaler{},
			JetStream: wmNats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false, // Stream is pre-created by broker.StreamManager
				TrackMsgId:    true,
				PublishOptions: []natsgo.PubOpt{
					natsgo.RetryAttempts(3),
					natsgo.RetryWait(100 * time.Millisecond),
				},
			},
		}

		pub, err := wmNats.NewPublisher(wmConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("create watermill publisher: %w", err)
		}
		return pub, nil
	}
}
