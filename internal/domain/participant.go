package domain

import "time"

type RequestStatus string

const (
	RequestStatusUnknown  RequestStatus = "unknown"
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusDenied   RequestStatus = "denied"
	RequestStatusExpired  RequestStatus = "expired"
)

// Terminal reports whether the request left the pending stage for good.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusDenied || s == RequestStatusExpired
}

// ParticipantRequest is a guest's join attempt as recorded by the membership store.
// Credential is set if and only if Status is approved.
type ParticipantRequest struct {
	MeetingID     MeetingID     `json:"meeting_id"`
	ParticipantID ParticipantID `json:"participant_id"`
	Status        RequestStatus `json:"status"`
	Credential    *Credential   `json:"credential,omitempty"`
	CreatedOn     time.Time     `json:"created_on"`
	UpdatedOn     time.Time     `json:"updated_on"`
}

// StatusReport is what a guest sees when it polls its request.
type StatusReport struct {
	Status     RequestStatus `json:"status"`
	Credential *Credential   `json:"credential,omitempty"`
}

// Approved reports whether the report carries a usable credential.
func (r *StatusReport) Approved() bool {
	return r != nil && r.Credential.Valid()
}
