// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/faultlinehq/faultline/internal/logging"
	"github.com/faultlinehq/faultline/internal/metrics"
	"github.com/faultlinehq/faultline/internal/models"
)

// Key layout. Sub-records carry a zero-padded creation timestamp so a
// plain prefix scan returns them in chronological order.
//
//	issue:{id}                          issue document
//	created:{unixnano:020d}:{id}        recency index for ListRecent
//	comment:{issueID}:{unixnano:020d}:{commentID}
//	activity:{issueID}:{unixnano:020d}:{activityID}
const (
	prefixIssue    = "issue:"
	prefixCreated  = "created:"
	prefixComment  = "comment:"
	prefixActivity = "activity:"
)

// BadgerStore implements DocumentStore on an embedded BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
	gcStop chan struct{}
	gcDone chan struct{}
}

// NewBadgerStore opens (or creates) the store at path. An empty path
// opens an in-memory instance for tests.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		logger: logging.With().Str("component", "store").Logger(),
		gcStop: make(chan struct{}),
		gcDone: make(chan struct{}),
	}
	go s.runGC()
	return s, nil
}

// runGC triggers value log garbage collection periodically. Badger
// requires the caller to drive this.
func (s *BadgerStore) runGC() {
	defer close(s.gcDone)
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

func issueKey(id string) []byte {
	return []byte(prefixIssue + id)
}

func createdKey(createdAt time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixCreated, createdAt.UTC().UnixNano(), id))
}

func subKey(prefix, issueID string, createdAt time.Time, recordID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", prefix, issueID, createdAt.UTC().UnixNano(), recordID))
}

// CreateOrUpdate implements DocumentStore. A document that already
// exists under the derived ID is a redelivered event and is left alone.
func (s *BadgerStore) CreateOrUpdate(_ context.Context, issue *models.Issue) (bool, error) {
	created := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := issueKey(issue.ID)
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		data, err := json.Marshal(issue)
		if err != nil {
			return fmt.Errorf("marshal issue: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set(createdKey(issue.CreatedAt, issue.ID), []byte(issue.ID)); err != nil {
			return err
		}

		activity := &models.Activity{
			ID:        uuid.New().String(),
			IssueID:   issue.ID,
			Type:      models.ActivityCreated,
			UserID:    issue.ReporterID,
			CreatedAt: issue.CreatedAt,
		}
		actData, err := json.Marshal(activity)
		if err != nil {
			return fmt.Errorf("marshal activity: %w", err)
		}
		if err := txn.Set(subKey(prefixActivity, issue.ID, activity.CreatedAt, activity.ID), actData); err != nil {
			return err
		}

		created = true
		return nil
	})
	if err != nil {
		metrics.StoreWriteFailures.WithLabelValues("create").Inc()
		return false, fmt.Errorf("create issue %s: %w", issue.ID, err)
	}
	metrics.StoreWrites.WithLabelValues("create").Inc()
	return created, nil
}

// Get implements DocumentStore.
func (s *BadgerStore) Get(_ context.Context, id string) (*models.Issue, error) {
	var issue models.Issue
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(issueKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &issue)
		})
	})
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListRecent implements DocumentStore. It walks the recency index in
// reverse so the newest issues come first.
func (s *BadgerStore) ListRecent(ctx context.Context, limit int) ([]*models.Issue, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids := make([]string, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixCreated)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the end of the prefix range for reverse iteration.
		seek := append([]byte(prefixCreated), 0xFF)
		for it.Seek(seek); it.Valid() && len(ids) < limit; it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list recent issues: %w", err)
	}

	issues := make([]*models.Issue, 0, len(ids))
	for _, id := range ids {
		issue, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// updatableFields maps PATCH field names to their application on the
// issue document. Each returns a field error for invalid values.
var updatableFields = map[string]func(*models.Issue, any) error{
	"title": func(i *models.Issue, v any) error {
		s, ok := v.(string)
		if !ok || s == "" {
			return &models.ValidationError{Field: "title", Message: "must be a non-empty string"}
		}
		i.Title = s
		return nil
	},
	"description": func(i *models.Issue, v any) error {
		s, ok := v.(string)
		if !ok {
			return &models.ValidationError{Field: "description", Message: "must be a string"}
		}
		i.Description = s
		return nil
	},
	"status": func(i *models.Issue, v any) error {
		s, ok := v.(string)
		if !ok || !models.IssueStatus(s).Valid() {
			return &models.ValidationError{Field: "status", Message: "unknown value"}
		}
		i.Status = models.IssueStatus(s)
		return nil
	},
	"priority": func(i *models.Issue, v any) error {
		s, ok := v.(string)
		if !ok || !models.IssuePriority(s).Valid() {
			return &models.ValidationError{Field: "priority", Message: "unknown value"}
		}
		i.Priority = models.IssuePriority(s)
		return nil
	},
	"severity": func(i *models.Issue, v any) error {
		s, ok := v.(string)
		if !ok || !models.IssueSeverity(s).Valid() {
			return &models.ValidationError{Field: "severity", Message: "unknown value"}
		}
		i.Severity = models.IssueSeverity(s)
		return nil
	},
	"assignee_id": func(i *models.Issue, v any) error {
		s, ok := v.(string)
		if !ok {
			return &models.ValidationError{Field: "assignee_id", Message: "must be a string"}
		}
		i.AssigneeID = s
		return nil
	},
	"component": func(i *models.Issue, v any) error {
		s, ok := v.(string)
		if !ok {
			return &models.ValidationError{Field: "component", Message: "must be a string"}
		}
		i.Component = s
		return nil
	},
	"tags": func(i *models.Issue, v any) error {
		raw, ok := v.([]any)
		if !ok {
			return &models.ValidationError{Field: "tags", Message: "must be a string array"}
		}
		tags := make([]string, 0, len(raw))
		for _, t := range raw {
			s, ok := t.(string)
			if !ok {
				return &models.ValidationError{Field: "tags", Message: "must be a string array"}
			}
			tags = append(tags, s)
		}
		i.Tags = tags
		return nil
	},
}

// activityTypeFor picks the audit type for a set of changed fields.
func activityTypeFor(changes map[string]any) models.ActivityType {
	if len(changes) == 1 {
		if _, ok := changes["status"]; ok {
			return models.ActivityStatusChanged
		}
		if _, ok := changes["assignee_id"]; ok {
			return models.ActivityAssigned
		}
	}
	return models.ActivityUpdated
}

// Update implements DocumentStore.
func (s *BadgerStore) Update(_ context.Context, id, actorID string, changes map[string]any) (*models.Issue, error) {
	if len(changes) == 0 {
		return nil, &models.ValidationError{Field: "changes", Message: "no fields to update"}
	}
	for field := range changes {
		if _, ok := updatableFields[field]; !ok {
			return nil, &models.ValidationError{Field: field, Message: "not updatable"}
		}
	}

	var issue models.Issue
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(issueKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &issue)
		}); err != nil {
			return err
		}

		for field, value := range changes {
			if err := updatableFields[field](&issue, value); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		issue.UpdatedAt = now

		data, err := json.Marshal(&issue)
		if err != nil {
			return fmt.Errorf("marshal issue: %w", err)
		}
		if err := txn.Set(issueKey(id), data); err != nil {
			return err
		}

		activity := &models.Activity{
			ID:        uuid.New().String(),
			IssueID:   id,
			Type:      activityTypeFor(changes),
			UserID:    actorID,
			Details:   changes,
			CreatedAt: now,
		}
		actData, err := json.Marshal(activity)
		if err != nil {
			return fmt.Errorf("marshal activity: %w", err)
		}
		return txn.Set(subKey(prefixActivity, id, now, activity.ID), actData)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				metrics.StoreWriteFailures.WithLabelValues("update").Inc()
			}
		}
		return nil, err
	}
	metrics.StoreWrites.WithLabelValues("update").Inc()
	return &issue, nil
}

// AppendComment implements DocumentStore. The comment activity and the
// comment itself land in one transaction.
func (s *BadgerStore) AppendComment(_ context.Context, comment *models.Comment) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(issueKey(comment.IssueID)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}

		data, err := json.Marshal(comment)
		if err != nil {
			return fmt.Errorf("marshal comment: %w", err)
		}
		if err := txn.Set(subKey(prefixComment, comment.IssueID, comment.CreatedAt, comment.ID), data); err != nil {
			return err
		}

		activity := &models.Activity{
			ID:        uuid.New().String(),
			IssueID:   comment.IssueID,
			Type:      models.ActivityCommented,
			UserID:    comment.AuthorID,
			Details:   map[string]any{"comment_id": comment.ID},
			CreatedAt: comment.CreatedAt,
		}
		actData, err := json.Marshal(activity)
		if err != nil {
			return fmt.Errorf("marshal activity: %w", err)
		}
		return txn.Set(subKey(prefixActivity, comment.IssueID, activity.CreatedAt, activity.ID), actData)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.StoreWriteFailures.WithLabelValues("comment").Inc()
		}
		return err
	}
	metrics.StoreWrites.WithLabelValues("comment").Inc()
	return nil
}

// AppendActivity implements DocumentStore.
func (s *BadgerStore) AppendActivity(_ context.Context, activity *models.Activity) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(issueKey(activity.IssueID)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return err
		}

		data, err := json.Marshal(activity)
		if err != nil {
			return fmt.Errorf("marshal activity: %w", err)
		}
		return txn.Set(subKey(prefixActivity, activity.IssueID, activity.CreatedAt, activity.ID), data)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			metrics.StoreWriteFailures.WithLabelValues("activity").Inc()
		}
		return err
	}
	metrics.StoreWrites.WithLabelValues("activity").Inc()
	return nil
}

// Comments implements DocumentStore.
func (s *BadgerStore) Comments(_ context.Context, issueID string) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := s.scanPrefix(prefixComment+issueID+":", func(val []byte) error {
		var c models.Comment
		if err := json.Unmarshal(val, &c); err != nil {
			return err
		}
		comments = append(comments, &c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list comments for %s: %w", issueID, err)
	}
	return comments, nil
}

// Activities implements DocumentStore.
func (s *BadgerStore) Activities(_ context.Context, issueID string) ([]*models.Activity, error) {
	var activities []*models.Activity
	err := s.scanPrefix(prefixActivity+issueID+":", func(val []byte) error {
		var a models.Activity
		if err := json.Unmarshal(val, &a); err != nil {
			return err
		}
		activities = append(activities, &a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list activities for %s: %w", issueID, err)
	}
	return activities, nil
}

func (s *BadgerStore) scanPrefix(prefix string, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close implements DocumentStore.
func (s *BadgerStore) Close() error {
	close(s.gcStop)
	<-s.gcDone
	if err := s.db.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to close document store")
		return err
	}
	return nil
}
