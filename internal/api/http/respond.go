package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
	"meeting-gate/internal/security"
	"meeting-gate/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrIDEmpty),
		errors.Is(err, domain.ErrIDTooLong),
		errors.Is(err, domain.ErrIDInvalidChar):
		return http.StatusBadRequest
	case errors.Is(err, errMissingToken),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, security.ErrWrongMeeting),
		errors.Is(err, security.ErrNotOwnerToken),
		errors.Is(err, security.ErrWrongParticipant):
		return http.StatusForbidden
	case errors.Is(err, service.ErrMeetingNotFound),
		errors.Is(err, service.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyDecided),
		errors.Is(err, service.ErrMeetingOwner):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
