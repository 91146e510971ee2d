// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package models defines the wire and persistence types of the issue
// ingestion pipeline: the IssueEvent published to the broker, the Issue
// entity owned by the document store, and its comment/activity
// subcollections.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current IssueEvent schema version.
// Increment this when making breaking changes to IssueEvent.
const SchemaVersion = 1

// IssueKind classifies what an issue is about.
type IssueKind string

// IssueKind values.
const (
	KindBug         IssueKind = "bug"
	KindFeature     IssueKind = "feature"
	KindTask        IssueKind = "task"
	KindEnhancement IssueKind = "enhancement"
)

// Valid reports whether the kind is one of the known values.
func (k IssueKind) Valid() bool {
	switch k {
	case KindBug, KindFeature, KindTask, KindEnhancement:
		return true
	}
	return false
}

// IssuePriority orders issues by urgency.
type IssuePriority string

// IssuePriority values.
const (
	PriorityLow      IssuePriority = "low"
	PriorityMedium   IssuePriority = "medium"
	PriorityHigh     IssuePriority = "high"
	PriorityCritical IssuePriority = "critical"
)

// Valid reports whether the priority is one of the known values.
func (p IssuePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// IssueSeverity grades the impact of the reported error occurrence.
type IssueSeverity string

// IssueSeverity values.
const (
	SeverityWarning  IssueSeverity = "warning"
	SeverityError    IssueSeverity = "error"
	SeverityCritical IssueSeverity = "critical"
)

// Valid reports whether the severity is one of the known values.
func (s IssueSeverity) Valid() bool {
	switch s {
	case SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// IssueStatus tracks the lifecycle of a persisted issue.
type IssueStatus string

// IssueStatus values.
const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in-progress"
	StatusResolved   IssueStatus = "resolved"
	StatusClosed     IssueStatus = "closed"
)

// Valid reports whether the status is one of the known values.
func (s IssueStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ActivityType classifies entries in an issue's activity log.
type ActivityType string

// ActivityType values.
const (
	ActivityCreated         ActivityType = "created"
	ActivityUpdated         ActivityType = "updated"
	ActivityAssigned        ActivityType = "assigned"
	ActivityStatusChanged   ActivityType = "status-changed"
	ActivityCommented       ActivityType = "commented"
	ActivityDuplicateReport ActivityType = "duplicate-report"
)

// IssueEvent is the wire message published to the issues topic.
// It is immutable once published; the Consumer turns it into an Issue.
type IssueEvent struct {
	// Schema version for forward/backward compatibility.
	SchemaVersion int `json:"schema_version,omitempty"`

	// Identification
	EventID     string `json:"event_id"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Source      string `json:"source"`

	// Issue content
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Kind        IssueKind      `json:"kind"`
	Priority    IssuePriority  `json:"priority"`
	ReporterID  string         `json:"reporter_id"`
	AssigneeID  string         `json:"assignee_id,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Component   string         `json:"component,omitempty"`
	Severity    IssueSeverity  `json:"severity,omitempty"`
	Context     map[string]any `json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewIssueEvent creates an event with a unique ID, timestamp, and schema
// version. The event ID doubles as the caller-visible tracking identifier.
func NewIssueEvent(source string) *IssueEvent {
	return &IssueEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Source:        source,
		CreatedAt:     time.Now().UTC(),
	}
}

// Validate checks required fields and returns an error if validation fails.
func (e *IssueEvent) Validate() error {
	if e.EventID == "" {
		return &ValidationError{Field: "event_id", Message: "required"}
	}
	if e.Source == "" {
		return &ValidationError{Field: "source", Message: "required"}
	}
	if e.Title == "" {
		return &ValidationError{Field: "title", Message: "required"}
	}
	if e.ReporterID == "" {
		return &ValidationError{Field: "reporter_id", Message: "required"}
	}
	if !e.Kind.Valid() {
		return &ValidationError{Field: "kind", Message: "unknown value"}
	}
	if !e.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "unknown value"}
	}
	if e.Severity != "" && !e.Severity.Valid() {
		return &ValidationError{Field: "severity", Message: "unknown value"}
	}
	return nil
}

// Topic returns the broker subject for this event.
func (e *IssueEvent) Topic() string {
	return TopicIssues
}

// TopicIssues is the subject issue events are published to.
const TopicIssues = "issues.reported"

// issueNamespace seeds deterministic issue IDs. Fixed so that every
// process derives the same document key for the same event.
var issueNamespace = uuid.MustParse("8f3b9a52-6c1e-4d2a-9b01-5e7d4c3f2a10")

// DeriveIssueID returns the deterministic document key for an event.
//
// Events carrying a fingerprint key on (fingerprint, creation time) so a
// redelivered message resolves to the same document instead of a duplicate
// insert. Events without a fingerprint key on the event ID, which is
// equally stable across redeliveries.
func DeriveIssueID(fingerprint string, createdAt time.Time, eventID string) string {
	if fingerprint == "" {
		return uuid.NewSHA1(issueNamespace, []byte(eventID)).String()
	}
	seed := fingerprint + "|" + createdAt.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(issueNamespace, []byte(seed)).String()
}

// Issue is the persisted entity, the superset of IssueEvent owned by the
// document store. Mutations go through the Document Store Writer only.
type Issue struct {
	ID          string         `json:"id"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Kind        IssueKind      `json:"kind"`
	Priority    IssuePriority  `json:"priority"`
	Status      IssueStatus    `json:"status"`
	ReporterID  string         `json:"reporter_id"`
	AssigneeID  string         `json:"assignee_id,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Component   string         `json:"component,omitempty"`
	Severity    IssueSeverity  `json:"severity,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	Source      string         `json:"source,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IssueFromEvent builds the persisted entity for a wire event.
// The ID is derived deterministically so redelivery is idempotent.
func IssueFromEvent(e *IssueEvent) *Issue {
	return &Issue{
		ID:          DeriveIssueID(e.Fingerprint, e.CreatedAt, e.EventID),
		Fingerprint: e.Fingerprint,
		Title:       e.Title,
		Description: e.Description,
		Kind:        e.Kind,
		Priority:    e.Priority,
		Status:      StatusOpen,
		ReporterID:  e.ReporterID,
		AssigneeID:  e.AssigneeID,
		Tags:        e.Tags,
		Component:   e.Component,
		Severity:    e.Severity,
		Context:     e.Context,
		Source:      e.Source,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.CreatedAt,
	}
}

// Comment is an ordered append-only subcollection entry on an issue.
type Comment struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Activity is an ordered append-only audit entry on an issue.
type Activity struct {
	ID        string         `json:"id"`
	IssueID   string         `json:"issue_id"`
	Type      ActivityType   `json:"type"`
	UserID    string         `json:"user_id"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
