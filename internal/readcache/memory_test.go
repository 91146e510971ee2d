// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package readcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/faultlinehq/faultline/internal/models"
)

func testIssue(id string, createdAt time.Time) *models.Issue {
	return &models.Issue{
		ID:         id,
		Title:      "Test issue " + id,
		Kind:       models.KindBug,
		Priority:   models.PriorityHigh,
		Status:     models.StatusOpen,
		ReporterID: "user-1",
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestMemoryRecentCache_GetPut(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	t.Run("miss on empty cache", func(t *testing.T) {
		c := NewMemoryRecentCache(time.Hour)
		_, ok, err := c.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if ok {
			t.Error("Expected miss")
		}
	})

	t.Run("hit after put", func(t *testing.T) {
		c := NewMemoryRecentCache(time.Hour)
		if err := c.Put(ctx, testIssue("a", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		issue, ok, err := c.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !ok || issue.ID != "a" {
			t.Errorf("Expected hit for a, got ok=%v", ok)
		}
	})

	t.Run("returned issue is a copy", func(t *testing.T) {
		c := NewMemoryRecentCache(time.Hour)
		if err := c.Put(ctx, testIssue("a", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		first, _, _ := c.Get(ctx, "a")
		first.Title = "mutated"

		second, _, _ := c.Get(ctx, "a")
		if second.Title == "mutated" {
			t.Error("Expected cached issue to be isolated from callers")
		}
	})

	t.Run("invalidate drops the entry", func(t *testing.T) {
		c := NewMemoryRecentCache(time.Hour)
		if err := c.Put(ctx, testIssue("a", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if err := c.Invalidate(ctx, "a"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, ok, _ := c.Get(ctx, "a"); ok {
			t.Error("Expected miss after invalidation")
		}
	})
}

func TestMemoryRecentCache_ListRecent(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	t.Run("newest first", func(t *testing.T) {
		c := NewMemoryRecentCache(time.Hour)
		for i := 0; i < 5; i++ {
			issue := testIssue(fmt.Sprintf("issue-%d", i), base.Add(time.Duration(i)*time.Minute))
			if err := c.Put(ctx, issue); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
		}

		issues, err := c.ListRecent(ctx, 3)
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

	t.Run("expired entries are skipped", func(t *testing.T) {
		now := base
		c := NewMemoryRecentCache(time.Hour)
		c.now = func() time.Time { return now }

		if err := c.Put(ctx, testIssue("old", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		now = now.Add(30 * time.Minute)
		if err := c.Put(ctx, testIssue("new", base.Add(30*time.Minute))); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		// 70 minutes after "old" was written, 40 after "new".
		now = now.Add(40 * time.Minute)
		issues, err := c.ListRecent(ctx, 10)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(issues) != 1 || issues[0].ID != "new" {
			t.Fatalf("Expected only the live entry, got %d entries", len(issues))
		}
	})

	t.Run("fully expired cache lists nothing", func(t *testing.T) {
		now := base
		c := NewMemoryRecentCache(time.Hour)
		c.now = func() time.Time { return now }

		if err := c.Put(ctx, testIssue("a", base)); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		now = now.Add(61 * time.Minute)
		issues, err := c.ListRecent(ctx, 10)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(issues) != 0 {
			t.Errorf("Expected empty listing after TTL, got %d entries", len(issues))
		}
	})
}
