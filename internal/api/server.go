// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/faultlinehq/faultline/internal/config"
	"github.com/faultlinehq/faultline/internal/logging"
)

// Server runs the HTTP listener as a supervised service.
type Server struct {
	srv  *http.Server
	addr string
}

// NewServer builds the HTTP server around the assembled router.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Timeout,
			WriteTimeout:      cfg.Timeout,
			IdleTimeout:       2 * cfg.Timeout,
		},
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *Server) String() string {
	return "http-server"
}

// Serve implements suture.Service. It blocks until the listener fails
// or the context is canceled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	logger := logging.With().Str("component", "http").Logger()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.addr).Msg("HTTP server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown failed")
			return err
		}
		logger.Info().Msg("HTTP server stopped")
		return ctx.Err()
	}
}
