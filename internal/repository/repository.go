package repository

import (
	"context"
	"errors"
	"time"

	"meeting-gate/internal/domain"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a status transition does not apply to the current state.
	ErrConflict = errors.New("status transition not allowed")
)

type MeetingRepository interface {
	Create(ctx context.Context, meeting *domain.Meeting) error
	GetByID(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error)
}

type ParticipantRepository interface {
	Get(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) (*domain.ParticipantRequest, error)
	// CreatePending inserts a pending request, or reopens a denied/expired one.
	// Pending and approved requests are left untouched. It reports whether a
	// request was created or reopened.
	CreatePending(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) (bool, error)
	// Approve moves a pending request to approved and stores its credential.
	Approve(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID, cred *domain.Credential) error
	// Deny moves a pending request to denied. Denying a denied request is a no-op.
	Deny(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) error
	ListPending(ctx context.Context, meetingID domain.MeetingID) ([]domain.ParticipantID, error)
	// ExpireOlderThan marks pending requests created before cutoff as expired.
	ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
