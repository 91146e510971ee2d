// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/faultlinehq/faultline/internal/models"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore("")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return s
}

func testIssue(id string, createdAt time.Time) *models.Issue {
	return &models.Issue{
		ID:         id,
		Title:      "Test issue",
		Kind:       models.KindBug,
		Priority:   models.PriorityHigh,
		Status:     models.StatusOpen,
		ReporterID: "user-1",
		Component:  "svc-a",
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestBadgerStore_CreateOrUpdate(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	t.Run("creates a new document", func(t *testing.T) {
		s := newTestStore(t)
		created, err := s.CreateOrUpdate(ctx, testIssue("a", base))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !created {
			t.Error("Expected created=true for a new document")
		}

		got, err := s.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got.Title != "Test issue" || got.Status != models.StatusOpen {
			t.Errorf("Unexpected document: %+v", got)
		}
	})

	t.Run("redelivery is idempotent", func(t *testing.T) {
		s := newTestStore(t)
		issue := testIssue("a", base)
		if _, err := s.CreateOrUpdate(ctx, issue); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		redelivered := testIssue("a", base)
		redelivered.Title = "Different text, same event"
		created, err := s.CreateOrUpdate(ctx, redelivered)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if created {
			t.Error("Expected created=false for a duplicate delivery")
		}

		got, err := s.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got.Title != "Test issue" {
			t.Error("Expected original document to be untouched")
		}

		issues, err := s.ListRecent(ctx, 10)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(issues) != 1 {
			t.Errorf("Expected exactly one document, got %d", len(issues))
		}
	})

	t.Run("records a created activity", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.CreateOrUpdate(ctx, testIssue("a", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		activities, err := s.Activities(ctx, "a")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(activities) != 1 || activities[0].Type != models.ActivityCreated {
			t.Fatalf("Expected one created activity, got %+v", activities)
		}
	})
}

func TestBadgerStore_Get(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestBadgerStore_ListRecent(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		issue := testIssue(fmt.Sprintf("issue-%d", i), base.Add(time.Duration(i)*time.Minute))
		if _, err := s.CreateOrUpdate(ctx, issue); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	t.Run("newest first with limit", func(t *testing.T) {
		issues, err := s.ListRecent(ctx, 3)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(issues) != 3 {
			t.Fatalf("Expected 3 issues, got %d", len(issues))
		}
		if issues[0].ID != "issue-4" || issues[1].ID != "issue-3" || issues[2].ID != "issue-2" {
			t.Errorf("Expected newest first, got %s %s %s", issues[0].ID, issues[1].ID, issues[2].ID)
		}
	})

	t.Run("zero limit lists nothing", func(t *testing.T) {
		issues, err := s.ListRecent(ctx, 0)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(issues) != 0 {
			t.Errorf("Expected no issues, got %d", len(issues))
		}
	})
}

func TestBadgerStore_Update(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	t.Run("applies changes and records activity", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.CreateOrUpdate(ctx, testIssue("a", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		updated, err := s.Update(ctx, "a", "admin-1", map[string]any{"status": "resolved"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if updated.Status != models.StatusResolved {
			t.Errorf("Expected resolved, got %s", updated.Status)
		}
		if !updated.UpdatedAt.After(updated.CreatedAt) {
			t.Error("Expected UpdatedAt to advance")
		}

		activities, err := s.Activities(ctx, "a")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(activities) != 2 {
			t.Fatalf("Expected created + update activities, got %d", len(activities))
		}
		last := activities[len(activities)-1]
		if last.Type != models.ActivityStatusChanged || last.UserID != "admin-1" {
			t.Errorf("Unexpected activity: %+v", last)
		}
	})

	t.Run("assignee-only change is an assignment", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.CreateOrUpdate(ctx, testIssue("a", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if _, err := s.Update(ctx, "a", "admin-1", map[string]any{"assignee_id": "dev-7"}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		activities, _ := s.Activities(ctx, "a")
		last := activities[len(activities)-1]
		if last.Type != models.ActivityAssigned {
			t.Errorf("Expected assigned activity, got %s", last.Type)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.CreateOrUpdate(ctx, testIssue("a", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		_, err := s.Update(ctx, "a", "admin-1", map[string]any{"reporter_id": "someone-else"})
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("rejects invalid enum values", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.CreateOrUpdate(ctx, testIssue("a", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		_, err := s.Update(ctx, "a", "admin-1", map[string]any{"status": "done"})
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("missing issue", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Update(ctx, "missing", "admin-1", map[string]any{"status": "closed"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestBadgerStore_Comments(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	t.Run("append and list in order", func(t *testing.T) {
		s := newTestStore(t)
		if _, err := s.CreateOrUpdate(ctx, testIssue("a", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		for i := 0; i < 3; i++ {
			comment := &models.Comment{
				ID:        uuid.New().String(),
				IssueID:   "a",
				AuthorID:  "user-1",
				Content:   fmt.Sprintf("comment %d", i),
				CreatedAt: base.Add(time.Duration(i+1) * time.Minute),
			}
			if err := s.AppendComment(ctx, comment); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		}

		comments, err := s.Comments(ctx, "a")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(comments) != 3 {
			t.Fatalf("Expected 3 comments, got %d", len(comments))
		}
		for i, c := range comments {
			if c.Content != fmt.Sprintf("comment %d", i) {
				t.Errorf("Expected oldest first ordering, got %q at %d", c.Content, i)
			}
		}

		// Each comment also left a commented activity.
		activities, _ := s.Activities(ctx, "a")
		commented := 0
		for _, a := range activities {
			if a.Type == models.ActivityCommented {
				commented++
			}
		}
		if commented != 3 {
			t.Errorf("Expected 3 commented activities, got %d", commented)
		}
	})

	t.Run("missing issue", func(t *testing.T) {
		s := newTestStore(t)
		comment := &models.Comment{
			ID:        uuid.New().String(),
			IssueID:   "missing",
			AuthorID:  "user-1",
			Content:   "hello",
			CreatedAt: base,
		}
		if err := s.AppendComment(ctx, comment); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestBadgerStore_AppendActivity(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	s := newTestStore(t)

	if _, err := s.CreateOrUpdate(ctx, testIssue("a", base)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	activity := &models.Activity{
		ID:        uuid.New().String(),
		IssueID:   "a",
		Type:      models.ActivityDuplicateReport,
		UserID:    "user-2",
		Details:   map[string]any{"source": "api"},
		CreatedAt: base.Add(time.Minute),
	}
	if err := s.AppendActivity(ctx, activity); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	activities, err := s.Activities(ctx, "a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(activities) != 2 {
		t.Fatalf("Expected 2 activities, got %d", len(activities))
	}
	if activities[1].Type != models.ActivityDuplicateReport {
		t.Errorf("Expected duplicate-report activity, got %s", activities[1].Type)
	}

	if err := s.AppendActivity(ctx, &models.Activity{
		ID:        uuid.New().String(),
		IssueID:   "missing",
		Type:      models.ActivityUpdated,
		CreatedAt: base,
	}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
