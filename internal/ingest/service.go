// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package ingest is the reporting-side entry point. It fingerprints
// incoming reports, folds duplicates into the existing issue, and hands
// new reports to the publisher. A reporter is never blocked or failed
// by a missing downstream dependency.
package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/faultlinehq/faultline/internal/dedup"
	"github.com/faultlinehq/faultline/internal/fingerprint"
	"github.com/faultlinehq/faultline/internal/logging"
	"github.com/faultlinehq/faultline/internal/models"
	"github.com/faultlinehq/faultline/internal/publisher"
	"github.com/faultlinehq/faultline/internal/store"
)

// ReceiptStatus tells the reporter what happened to their report.
type ReceiptStatus string

// ReceiptStatus values.
const (
	// StatusAccepted means the report was published and will be
	// persisted asynchronously.
	StatusAccepted ReceiptStatus = "accepted"
	// StatusDegraded means the broker is unavailable and the report
	// was not published. The caller should resubmit later.
	StatusDegraded ReceiptStatus = "degraded"
	// StatusDuplicate means the report matched a recently seen
	// fingerprint and was recorded against the existing issue.
	StatusDuplicate ReceiptStatus = "duplicate"
)

// ReportRequest carries the fields of an issue report. The error
// fields feed the fingerprint; reports without them are never
// deduplicated.
type ReportRequest struct {
	Title       string
	Description string
	Kind        models.IssueKind
	Priority    models.IssuePriority
	ReporterID  string
	AssigneeID  string
	Tags        []string
	Component   string
	Severity    models.IssueSeverity
	Context     map[string]any
	Source      string

	ErrorType     string
	ErrorMessage  string
	StackLocation string
}

// Receipt acknowledges a report. TrackingID is the event ID, distinct
// from the final store-assigned issue ID; IssueID is set only on the
// duplicate path, where the issue is already known.
type Receipt struct {
	Status     ReceiptStatus `json:"status"`
	TrackingID string        `json:"tracking_id,omitempty"`
	IssueID    string        `json:"issue_id,omitempty"`
}

// Service routes reports between the duplicate path and the publish path.
type Service struct {
	publisher *publisher.Publisher
	dedup     dedup.Cache
	store     store.DocumentStore
	logger    zerolog.Logger
}

// NewService wires the reporting path.
func NewService(pub *publisher.Publisher, dedupCache dedup.Cache, docs store.DocumentStore) *Service {
	return &Service{
		publisher: pub,
		dedup:     dedupCache,
		store:     docs,
		logger:    logging.With().Str("component", "ingest").Logger(),
	}
}

// Report processes one issue report. It returns an error only for
// invalid input; every downstream failure is absorbed into the receipt
// status.
func (s *Service) Report(ctx context.Context, req ReportRequest) (*Receipt, error) {
	event := models.NewIssueEvent(req.Source)
	event.Title = req.Title
	event.Description = req.Description
	event.Kind = req.Kind
	event.Priority = req.Priority
	event.ReporterID = req.ReporterID
	event.AssigneeID = req.AssigneeID
	event.Tags = req.Tags
	event.Component = req.Component
	event.Severity = req.Severity
	event.Context = req.Context

	if req.ErrorType != "" || req.ErrorMessage != "" {
		event.Fingerprint = fingerprint.Generate(req.ErrorType, req.Component, req.ErrorMessage, req.StackLocation)
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	if event.Fingerprint != "" {
		if receipt := s.foldDuplicate(ctx, event); receipt != nil {
			return receipt, nil
		}
	}

	result := s.publisher.PublishEvent(ctx, event)
	if result == publisher.ResultDegraded {
		s.logger.Warn().
			Str("event_id", event.EventID).
			Msg("Report not published, broker degraded")
		return &Receipt{Status: StatusDegraded, TrackingID: event.EventID}, nil
	}

	// Remember only after a successful publish: a degraded report
	// produces no issue the fingerprint could point at.
	if event.Fingerprint != "" {
		issueID := models.DeriveIssueID(event.Fingerprint, event.CreatedAt, event.EventID)
		if err := s.dedup.Remember(ctx, event.ReporterID, event.Fingerprint, issueID); err != nil {
			s.logger.Warn().Err(err).
				Str("fingerprint", event.Fingerprint).
				Msg("Failed to remember fingerprint")
		}
	}

	return &Receipt{Status: StatusAccepted, TrackingID: event.EventID}, nil
}

// foldDuplicate checks the dedup cache and, on a hit, records the
// repeat report as an activity on the existing issue. It returns nil
// when the report should proceed to publish, including on any cache
// failure: a missed duplicate costs an extra issue, never a lost report.
func (s *Service) foldDuplicate(ctx context.Context, event *models.IssueEvent) *Receipt {
	issueID, ok, err := s.dedup.Lookup(ctx, event.ReporterID, event.Fingerprint)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("fingerprint", event.Fingerprint).
			Msg("Dedup lookup failed, treating as new issue")
		return nil
	}
	if !ok {
		return nil
	}

	activity := &models.Activity{
		ID:      event.EventID,
		IssueID: issueID,
		Type:    models.ActivityDuplicateReport,
		UserID:  event.ReporterID,
		Details: map[string]any{
			"source":  event.Source,
			"title":   event.Title,
			"context": event.Context,
		},
		CreatedAt: event.CreatedAt,
	}
	if err := s.store.AppendActivity(ctx, activity); err != nil {
		// The issue may not be persisted yet (consumer lag) or the
		// store may be down. The duplicate is still acknowledged.
		s.logger.Warn().Err(err).
			Str("issue_id", issueID).
			Msg("Failed to record duplicate report activity")
	}

	if err := s.dedup.Remember(ctx, event.ReporterID, event.Fingerprint, issueID); err != nil {
		s.logger.Warn().Err(err).
			Str("fingerprint", event.Fingerprint).
			Msg("Failed to refresh fingerprint entry")
	}

	s.logger.Info().
		Str("issue_id", issueID).
		Str("fingerprint", event.Fingerprint).
		Msg("Duplicate report folded into existing issue")
	return &Receipt{Status: StatusDuplicate, IssueID: issueID}
}
