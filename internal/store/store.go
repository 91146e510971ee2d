// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package store persists issues, comments and activity records in an
// embedded BadgerDB document store. It is the system of record: the
// read cache in front of it may lose data at any time, the store must
// not.
package store

import (
	"context"
	"errors"

	"github.com/faultlinehq/faultline/internal/models"
)

// ErrNotFound is returned when the requested issue does not exist.
var ErrNotFound = errors.New("store: issue not found")

// DocumentStore is the persistence contract used by the consumer and
// the API layer.
type DocumentStore interface {
	// CreateOrUpdate writes the issue if no document with its ID
	// exists. Redelivered events carry the same derived ID, so a
	// duplicate write leaves the stored document untouched and returns
	// created=false.
	CreateOrUpdate(ctx context.Context, issue *models.Issue) (created bool, err error)

	// Get returns the issue with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Issue, error)

	// ListRecent returns up to limit issues ordered newest first by
	// creation time.
	ListRecent(ctx context.Context, limit int) ([]*models.Issue, error)

	// Update applies the given field changes to an existing issue,
	// bumps its UpdatedAt and records an update activity attributed to
	// actorID in the same transaction. Unknown fields are rejected.
	Update(ctx context.Context, id, actorID string, changes map[string]any) (*models.Issue, error)

	// AppendComment stores a comment under its issue, or ErrNotFound.
	AppendComment(ctx context.Context, comment *models.Comment) error

	// AppendActivity stores an activity record under its issue, or
	// ErrNotFound.
	AppendActivity(ctx context.Context, activity *models.Activity) error

	// Comments returns an issue's comments ordered oldest first.
	Comments(ctx context.Context, issueID string) ([]*models.Comment, error)

	// Activities returns an issue's activity log ordered oldest first.
	Activities(ctx context.Context, issueID string) ([]*models.Activity, error)

	// Close flushes and closes the store.
	Close() error
}
