// Package http exposes the service's operational endpoints and the small
// alert API consumed by UI clients.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hazard-alert-service/internal/domain"
	"github.com/couchcryptid/hazard-alert-service/internal/notify"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// AlertService is the runner surface the API needs: current alerts, badge,
// on-demand checks, and clearing.
type AlertService interface {
	ReadinessChecker
	Alerts() []domain.Alert
	LastRun() (time.Time, int)
	Check(ctx context.Context) bool
	ClearAlerts(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and alert API endpoints.
type Server struct {
	httpServer *http.Server
	service    AlertService
	badge      *notify.BadgeKeeper
	logger     *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, service AlertService, badge *notify.BadgeKeeper, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		badge:   badge,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/alerts", s.handleGetAlerts)
	mux.HandleFunc("DELETE /v1/alerts", s.handleClearAlerts)
	mux.HandleFunc("POST /v1/check", s.handleCheck)
	mux.HandleFunc("GET /v1/badge", s.handleBadge)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleGetAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts := s.service.Alerts()
	lastRun, _ := s.service.LastRun()
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts":  alerts,
		"count":   len(alerts),
		"lastRun": lastRun,
	})
}

func (s *Server) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearAlerts(r.Context()); err != nil {
		s.logger.Error("clear alerts failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "clear failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleCheck triggers an immediate aggregation run. A run already in
// flight responds 409 rather than queueing.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !s.service.Check(r.Context()) {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "run already in flight"})
		return
	}
	alerts := s.service.Alerts()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "completed",
		"count":  len(alerts),
	})
}

func (s *Server) handleBadge(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.badge.Current())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
