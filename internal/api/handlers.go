// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/faultlinehq/faultline/internal/ingest"
	"github.com/faultlinehq/faultline/internal/logging"
	"github.com/faultlinehq/faultline/internal/models"
	"github.com/faultlinehq/faultline/internal/publisher"
	"github.com/faultlinehq/faultline/internal/readcache"
	"github.com/faultlinehq/faultline/internal/store"
)

// defaultSource is stamped on reports that do not name their origin.
const defaultSource = "api"

// Handler carries the dependencies of the HTTP endpoints.
type Handler struct {
	ingest   *ingest.Service
	store    store.DocumentStore
	cache    readcache.RecentCache
	pub      *publisher.Publisher
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewHandler wires the HTTP handlers.
func NewHandler(ing *ingest.Service, docs store.DocumentStore, cache readcache.RecentCache, pub *publisher.Publisher) *Handler {
	return &Handler{
		ingest:   ing,
		store:    docs,
		cache:    cache,
		pub:      pub,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logging.With().Str("component", "api").Logger(),
	}
}

// ReportIssue accepts a report and acknowledges it with 202 before the
// issue is persisted. The receipt's tracking ID is not the final issue
// ID; clients discover that through a later listing read.
func (h *Handler) ReportIssue(w http.ResponseWriter, r *http.Request) {
	var req ReportIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	source := req.Source
	if source == "" {
		source = defaultSource
	}

	receipt, err := h.ingest.Report(r.Context(), ingest.ReportRequest{
		Title:         req.Title,
		Description:   req.Description,
		Kind:          models.IssueKind(req.Kind),
		Priority:      models.IssuePriority(req.Priority),
		ReporterID:    req.ReporterID,
		AssigneeID:    req.AssigneeID,
		Tags:          req.Tags,
		Component:     req.Component,
		Severity:      models.IssueSeverity(req.Severity),
		Context:       req.Context,
		Source:        source,
		ErrorType:     req.ErrorType,
		ErrorMessage:  req.ErrorMessage,
		StackLocation: req.StackLocation,
	})
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Report failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL", "failed to process report")
		return
	}

	respondJSON(w, http.StatusAccepted, receipt)
}

// GetIssue serves a single issue, preferring the read cache and warming
// it on a store hit.
func (h *Handler) GetIssue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if issue, ok, err := h.cache.Get(r.Context(), id); err != nil {
		h.logger.Warn().Err(err).Str("issue_id", id).Msg("Cache read failed")
	} else if ok {
		respondJSON(w, http.StatusOK, issue)
		return
	}

	issue, err := h.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "issue not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("issue_id", id).Msg("Store read failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL", "failed to load issue")
		return
	}

	if err := h.cache.Put(r.Context(), issue); err != nil {
		h.logger.Warn().Err(err).Str("issue_id", id).Msg("Failed to warm cache")
	}
	respondJSON(w, http.StatusOK, issue)
}

// ListRecent serves the recent issues listing from the read cache,
// falling back to the store when the cache is cold or unavailable.
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	req := ListRecentRequest{Limit: getIntParam(r, "limit", 20)}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	issues, err := h.cache.ListRecent(r.Context(), req.Limit)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Cache listing failed, falling back to store")
	}
	if len(issues) == 0 {
		issues, err = h.store.ListRecent(r.Context(), req.Limit)
		if err != nil {
			h.logger.Error().Err(err).Msg("Store listing failed")
			respondError(w, http.StatusInternalServerError, "INTERNAL", "failed to list issues")
			return
		}
	}
	if issues == nil {
		issues = []*models.Issue{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"issues": issues,
		"count":  len(issues),
	})
}

// UpdateIssue applies a partial update. The changed fields are recorded
// in the issue's activity log, attributed to the X-Actor-ID header.
func (h *Handler) UpdateIssue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var changes map[string]any
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}

	actorID := r.Header.Get("X-Actor-ID")
	if actorID == "" {
		actorID = "system"
	}

	issue, err := h.store.Update(r.Context(), id, actorID, changes)
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.Is(err, store.ErrNotFound):
			respondError(w, http.StatusNotFound, "NOT_FOUND", "issue not found")
		case errors.As(err, &verr):
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
		default:
			h.logger.Error().Err(err).Str("issue_id", id).Msg("Update failed")
			respondError(w, http.StatusInternalServerError, "INTERNAL", "failed to update issue")
		}
		return
	}

	// Drop the stale snapshot so readers see the update immediately.
	if err := h.cache.Invalidate(r.Context(), id); err != nil {
		h.logger.Warn().Err(err).Str("issue_id", id).Msg("Cache invalidation failed")
	}

	respondJSON(w, http.StatusOK, issue)
}

// CreateComment appends a comment to an issue.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		IssueID:   id,
		AuthorID:  req.AuthorID,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.AppendComment(r.Context(), comment); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "issue not found")
			return
		}
		h.logger.Error().Err(err).Str("issue_id", id).Msg("Comment write failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL", "failed to store comment")
		return
	}

	respondJSON(w, http.StatusCreated, comment)
}

// ListComments serves an issue's comments oldest first.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.store.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "issue not found")
			return
		}
		h.logger.Error().Err(err).Str("issue_id", id).Msg("Store read failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL", "failed to load issue")
		return
	}

	comments, err := h.store.Comments(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("issue_id", id).Msg("Comment listing failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL", "failed to list comments")
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"comments": comments,
		"count":    len(comments),
	})
}

// ListActivities serves an issue's activity log oldest first.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.store.Get(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "issue not found")
			return
		}
		h.logger.Error().Err(err).Str("issue_id", id).Msg("Store read failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL", "failed to load issue")
		return
	}

	activities, err := h.store.Activities(r.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("issue_id", id).Msg("Activity listing failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL", "failed to list activities")
		return
	}
	if activities == nil {
		activities = []*models.Activity{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"activities": activities,
		"count":      len(activities),
	})
}

// HealthLive reports process liveness.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady reports readiness. A degraded publisher still answers 200
// for reads but marks the body so operators can see the ingestion path
// is down.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	state := h.pub.State()
	status := "ok"
	if state == publisher.StateDegraded {
		status = "degraded"
	}

	storeStatus := "ok"
	if _, err := h.store.ListRecent(r.Context(), 1); err != nil {
		storeStatus = "unavailable"
		status = "degraded"
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":    status,
		"publisher": string(state),
		"store":     storeStatus,
	})
}
