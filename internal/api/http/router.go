package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"meeting-gate/internal/config"
	"meeting-gate/internal/logger"
	"meeting-gate/internal/security"
	"meeting-gate/internal/service"
)

// HealthCheck reports whether the membership store is reachable.
type HealthCheck func(ctx context.Context) error

// NewRouter registers the membership API.
func NewRouter(svc service.MembershipService, tm security.TokenManager, health HealthCheck) *mux.Router {
	auth := NewAuthMiddleware(tm)
	handler := NewMembershipHandler(svc)

	router := mux.NewRouter()
	router.Use(logRequests)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet).Name(config.RouteHealth)

	api := router.PathPrefix("/api/v1/meetings/{meetingID}").Subrouter()
	api.Use(auth.Handler)
	api.HandleFunc("/participants/{participantID}/ownership", handler.CheckOwnership).
		Methods(http.MethodGet).Name(config.RouteCheckOwnership)
	api.HandleFunc("/participants/{participantID}", handler.RegisterPending).
		Methods(http.MethodPut).Name(config.RouteRegisterPending)
	api.HandleFunc("/participants/{participantID}/status", handler.ApprovalStatus).
		Methods(http.MethodGet).Name(config.RouteApprovalStatus)
	api.HandleFunc("/participants/{participantID}/deny", handler.Deny).
		Methods(http.MethodPost).Name(config.RouteDenyParticipant)
	api.HandleFunc("/participants/{participantID}/promote", handler.Promote).
		Methods(http.MethodPost).Name(config.RoutePromote)
	api.HandleFunc("/pending", handler.ListPending).
		Methods(http.MethodGet).Name(config.RouteListPending)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
