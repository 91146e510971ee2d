// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package api exposes the HTTP surface: report ingestion, issue reads,
// updates, comments, health and metrics.
package api

// ReportIssueRequest is the POST /api/v1/issues payload. The error_*
// fields feed deduplication; requests without them always create a new
// issue.
type ReportIssueRequest struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"max=10000"`
	Kind        string         `json:"kind" validate:"required,oneof=bug feature task enhancement"`
	Priority    string         `json:"priority" validate:"required,oneof=low medium high critical"`
	ReporterID  string         `json:"reporter_id" validate:"required,max=128"`
	AssigneeID  string         `json:"assignee_id" validate:"omitempty,max=128"`
	Tags        []string       `json:"tags" validate:"omitempty,max=20,dive,max=64"`
	Component   string         `json:"component" validate:"omitempty,max=128"`
	Severity    string         `json:"severity" validate:"omitempty,oneof=warning error critical"`
	Context     map[string]any `json:"context"`
	Source      string         `json:"source" validate:"omitempty,max=64"`

	ErrorType     string `json:"error_type" validate:"omitempty,max=256"`
	ErrorMessage  string `json:"error_message" validate:"omitempty,max=10000"`
	StackLocation string `json:"stack_location" validate:"omitempty,max=512"`
}

// CreateCommentRequest is the POST /api/v1/issues/{id}/comments payload.
type CreateCommentRequest struct {
	AuthorID string `json:"author_id" validate:"required,max=128"`
	Content  string `json:"content" validate:"required,max=10000"`
}

// ListRecentRequest bounds the recent listing query.
type ListRecentRequest struct {
	Limit int `validate:"min=1,max=100"`
}
