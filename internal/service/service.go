package service

import (
	"context"
	"errors"
	"time"

	"meeting-gate/internal/domain"
)

var (
	ErrMeetingNotFound     = errors.New("meeting not found")
	ErrParticipantNotFound = errors.New("participant request not found")
	// ErrAlreadyDecided is returned when a request left the pending stage in a
	// way the operation cannot override.
	ErrAlreadyDecided = errors.New("participant request already decided")
	ErrMeetingOwner   = errors.New("meeting exists with another owner")
)

// MembershipService is the authoritative membership store. Its method set
// matches the capabilities the admission engine consumes.
type MembershipService interface {
	EnsureMeeting(ctx context.Context, meetingID domain.MeetingID, ownerID domain.ParticipantID) (*domain.Meeting, error)
	CheckOwnership(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.Credential, error)
	RegisterPendingParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error
	QueryApprovalStatus(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.StatusReport, error)
	PromoteParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error
	DenyParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error
	ListPendingParticipants(ctx context.Context, meetingID domain.MeetingID) ([]domain.ParticipantID, error)
	ExpireStale(ctx context.Context, ceiling time.Duration) (int64, error)
}
