package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/service"
)

// statusResponse is the body of the approval status endpoint.
type statusResponse struct {
	Status     domain.RequestStatus `json:"status"`
	Credential *domain.Credential   `json:"credential,omitempty"`
}

type MembershipHandler struct {
	svc service.MembershipService
}

func NewMembershipHandler(svc service.MembershipService) *MembershipHandler {
	return &MembershipHandler{svc: svc}
}

func ids(r *http.Request) (domain.ParticipantID, domain.MeetingID) {
	vars := mux.Vars(r)
	return domain.ParticipantID(vars["participantID"]), domain.MeetingID(vars["meetingID"])
}

// CheckOwnership returns the owner credential, or 404 for anyone else.
func (h *MembershipHandler) CheckOwnership(w http.ResponseWriter, r *http.Request) {
	participantID, meetingID := ids(r)
	cred, err := h.svc.CheckOwnership(r.Context(), participantID, meetingID)
	if err != nil {
		writeError(w, err)
		return
	}
	if cred == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not the meeting owner"})
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

func (h *MembershipHandler) RegisterPending(w http.ResponseWriter, r *http.Request) {
	participantID, meetingID := ids(r)
	if err := h.svc.RegisterPendingParticipant(r.Context(), participantID, meetingID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *MembershipHandler) ApprovalStatus(w http.ResponseWriter, r *http.Request) {
	participantID, meetingID := ids(r)
	report, err := h.svc.QueryApprovalStatus(r.Context(), participantID, meetingID)
	if err != nil {
		writeError(w, err)
		return
	}
	if report == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no request for participant"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: report.Status, Credential: report.Credential})
}

// Deny with an owner credential is the owner's decision. With the
// participant's own identity token it withdraws the pending request.
func (h *MembershipHandler) Deny(w http.ResponseWriter, r *http.Request) {
	participantID, meetingID := ids(r)
	if err := h.svc.DenyParticipant(r.Context(), participantID, meetingID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MembershipHandler) Promote(w http.ResponseWriter, r *http.Request) {
	participantID, meetingID := ids(r)
	if err := h.svc.PromoteParticipant(r.Context(), participantID, meetingID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MembershipHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	meetingID := domain.MeetingID(mux.Vars(r)["meetingID"])
	pending, err := h.svc.ListPendingParticipants(r.Context(), meetingID)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := domain.EncodeRoster(pending)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
