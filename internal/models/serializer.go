// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// SerializeEvent encodes an event for the broker. Events are validated
// before encoding so malformed reports never reach the stream.
func SerializeEvent(event *IssueEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	return data, nil
}

// DeserializeEvent decodes an event received from the broker. No
// validation happens here; the consumer decides what to do with a
// structurally valid but semantically bad event.
func DeserializeEvent(data []byte) (*IssueEvent, error) {
	var event IssueEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}

	return &event, nil
}
