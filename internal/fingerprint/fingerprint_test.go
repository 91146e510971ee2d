// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package fingerprint

import (
	"strings"
	"testing"
)

func TestGenerate_Determinism(t *testing.T) {
	t.Run("identical inputs produce identical fingerprints", func(t *testing.T) {
		a := Generate("TimeoutError", "svc-a", "request timed out", "client.go:Do")
		b := Generate("TimeoutError", "svc-a", "request timed out", "client.go:Do")
		if a != b {
			t.Errorf("Expected equal fingerprints, got %s and %s", a, b)
		}
	})

	t.Run("messages differing only in numeric ids match", func(t *testing.T) {
		a := Generate("NotFoundError", "svc-a", "user 42 not found", "users.go:Lookup")
		b := Generate("NotFoundError", "svc-a", "user 9001 not found", "users.go:Lookup")
		if a != b {
			t.Errorf("Expected numeric ids to normalize away, got %s and %s", a, b)
		}
	})

	t.Run("messages differing only in timestamps match", func(t *testing.T) {
		a := Generate("DeadlineError", "svc-b", "deadline at 2026-08-26T10:00:00Z exceeded", "")
		b := Generate("DeadlineError", "svc-b", "deadline at 2026-08-25T23:59:59Z exceeded", "")
		if a != b {
			t.Errorf("Expected timestamps to normalize away, got %s and %s", a, b)
		}
	})

	t.Run("messages differing only in memory addresses match", func(t *testing.T) {
		a := Generate("PanicError", "svc-c", "nil pointer at 0xc000123abc", "handler.go:Serve")
		b := Generate("PanicError", "svc-c", "nil pointer at 0xc0004567de", "handler.go:Serve")
		if a != b {
			t.Errorf("Expected addresses to normalize away, got %s and %s", a, b)
		}
	})

	t.Run("messages differing only in uuids match", func(t *testing.T) {
		a := Generate("ConflictError", "svc-d", "duplicate key 0d5a7f9e-1b2c-4d3e-8f90-a1b2c3d4e5f6", "")
		b := Generate("ConflictError", "svc-d", "duplicate key 9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b", "")
		if a != b {
			t.Errorf("Expected uuids to normalize away, got %s and %s", a, b)
		}
	})

	t.Run("fingerprint has fixed length", func(t *testing.T) {
		fp := Generate("E", "c", "m", "s")
		if len(fp) != Length {
			t.Errorf("Expected length %d, got %d", Length, len(fp))
		}
	})
}

func TestGenerate_Distinctness(t *testing.T) {
	t.Run("different components differ", func(t *testing.T) {
		a := Generate("TimeoutError", "svc-a", "request timed out", "client.go:Do")
		b := Generate("TimeoutError", "svc-b", "request timed out", "client.go:Do")
		if a == b {
			t.Error("Expected different components to produce different fingerprints")
		}
	})

	t.Run("different error types differ", func(t *testing.T) {
		a := Generate("TimeoutError", "svc-a", "request failed", "")
		b := Generate("ConnectionError", "svc-a", "request failed", "")
		if a == b {
			t.Error("Expected different error types to produce different fingerprints")
		}
	})

	t.Run("different stack locations differ", func(t *testing.T) {
		a := Generate("TimeoutError", "svc-a", "request failed", "client.go:Do")
		b := Generate("TimeoutError", "svc-a", "request failed", "pool.go:Get")
		if a == b {
			t.Error("Expected different stack locations to produce different fingerprints")
		}
	})

	t.Run("genuinely different messages differ", func(t *testing.T) {
		a := Generate("ValueError", "svc-a", "user 42 not found", "")
		b := Generate("ValueError", "svc-a", "user not found", "")
		if a == b {
			t.Error("Expected placeholder to keep removed id significant")
		}
	})
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"numeric ids", "user 42 not found", "user <n> not found"},
		{"uuid", "key 0d5a7f9e-1b2c-4d3e-8f90-a1b2c3d4e5f6 exists", "key <uuid> exists"},
		{"hex address", "panic at 0xDEADBEEF", "panic at <addr>"},
		{"timestamp", "at 2026-08-26T10:00:00Z failed", "at <ts> failed"},
		{"case folds", "Connection REFUSED", "connection refused"},
		{"whitespace collapses", "a \t\n  b", "a b"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.message)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestNormalize_TimestampBeforeDigits(t *testing.T) {
	// A timestamp must collapse into one <ts>, not a run of <n> tokens.
	got := Normalize("failed at 2026-08-26 10:00:00")
	if strings.Contains(got, "<n>-<n>") {
		t.Errorf("Timestamp was split into digit placeholders: %q", got)
	}
}
