// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP surface around a Handler.
func NewRouter(h *Handler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1/issues", func(r chi.Router) {
		r.Post("/", h.ReportIssue)
		r.Get("/recent", h.ListRecent)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetIssue)
			r.Patch("/", h.UpdateIssue)
			r.Post("/comments", h.CreateComment)
			r.Get("/comments", h.ListComments)
			r.Get("/activities", h.ListActivities)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
