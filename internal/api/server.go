// Package api serves the local HTTP API of the POS core.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/ledger"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/notify"
	"github.com/roach88/offpos/internal/report"
)

// DefaultRequestTimeout bounds every request, including remote syncs.
const DefaultRequestTimeout = 30 * time.Second

// Server is the local HTTP API server.
type Server struct {
	notify  *notify.Engine
	ledger  *ledger.Ledger
	reports *report.Generator
	logger  *zap.Logger

	requestTimeout time.Duration
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(n *notify.Engine, l *ledger.Ledger, g *report.Generator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		notify:         n,
		ledger:         l,
		reports:        g,
		logger:         logger.Named("api"),
		requestTimeout: DefaultRequestTimeout,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1/restaurants/{restaurantID}", func(r chi.Router) {
		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/sync", s.handleSync)
		r.Post("/notifications/read-all", s.handleMarkAllRead)
		r.Post("/notifications/{id}/read", s.handleMarkRead)

		r.Get("/customers/{id}/transactions", s.handleHistory)
		r.Post("/customers/{id}/credit", s.handleAddCredit)
		r.Post("/customers/{id}/payments", s.handleRecordPayment)
		r.Delete("/customers/{id}", s.handleDeleteCustomer)

		r.Get("/reports/{kind}", s.handleReport)

		r.Post("/logout", s.handleLogout)
	})

	return r
}

// writeJSON writes a JSON response. The status line is already sent when
// encoding fails, so the error is only logged.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch model.CodeOf(err) {
	case model.CodeNotFound:
		return http.StatusNotFound
	case model.CodeInvalidAmount, model.CodeInvalidRecord:
		return http.StatusBadRequest
	case model.CodeExceedsBalance, model.CodeOutstandingBalance, model.CodeSessionEnded:
		return http.StatusConflict
	case model.CodeNotAuthenticated:
		return http.StatusUnauthorized
	case model.CodeRemoteUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError writes a JSON error response derived from err.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := model.CodeOf(err)
	if code == "" {
		code = model.CodeIOFailure
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.writeJSON(w, r, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": err.Error(),
		},
	})
}
