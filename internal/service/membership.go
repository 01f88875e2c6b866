package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
	"meeting-gate/internal/repository"
	"meeting-gate/internal/security"
)

type membershipService struct {
	meetingRepo     repository.MeetingRepository
	participantRepo repository.ParticipantRepository
	tokens          security.TokenManager
	now             func() time.Time
}

func NewMembershipService(
	meetingRepo repository.MeetingRepository,
	participantRepo repository.ParticipantRepository,
	tokens security.TokenManager,
) MembershipService {
	return &membershipService{
		meetingRepo:     meetingRepo,
		participantRepo: participantRepo,
		tokens:          tokens,
		now:             time.Now,
	}
}

func (s *membershipService) EnsureMeeting(ctx context.Context, meetingID domain.MeetingID, ownerID domain.ParticipantID) (*domain.Meeting, error) {
	if err := validate(ownerID, meetingID); err != nil {
		return nil, err
	}
	meeting, err := s.meetingRepo.GetByID(ctx, meetingID)
	if err == nil {
		if !meeting.IsOwner(ownerID) {
			return nil, fmt.Errorf("meeting %s: %w", meetingID, ErrMeetingOwner)
		}
		return meeting, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}

	meeting = &domain.Meeting{
		ID:          meetingID,
		OwnerID:     ownerID,
		ChannelName: fmt.Sprintf("%s-%s", meetingID, uuid.NewString()[:8]),
		CreatedOn:   s.now().UTC(),
	}
	if err := s.meetingRepo.Create(ctx, meeting); err != nil {
		return nil, fmt.Errorf("failed to create meeting: %w", err)
	}
	logger.Info("Meeting created", "meetingID", meetingID, "ownerID", ownerID, "channel", meeting.ChannelName)
	return meeting, nil
}

func (s *membershipService) CheckOwnership(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.Credential, error) {
	logger.EnterMethod("membershipService.CheckOwnership", "meetingID", meetingID, "participantID", participantID)

	meeting, err := s.meeting(ctx, participantID, meetingID)
	if err != nil {
		logger.ExitMethodWithError("membershipService.CheckOwnership", err, "meetingID", meetingID)
		return nil, err
	}
	if !meeting.IsOwner(participantID) {
		logger.ExitMethod("membershipService.CheckOwnership", "meetingID", meetingID, "owner", false)
		return nil, nil
	}

	cred, err := s.tokens.GenerateCredential(meeting, participantID, security.RoleOwner)
	if err != nil {
		logger.ExitMethodWithError("membershipService.CheckOwnership", err, "meetingID", meetingID)
		return nil, fmt.Errorf("failed to issue owner credential: %w", err)
	}
	logger.ExitMethod("membershipService.CheckOwnership", "meetingID", meetingID, "owner", true)
	return cred, nil
}

func (s *membershipService) RegisterPendingParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	logger.EnterMethod("membershipService.RegisterPendingParticipant", "meetingID", meetingID, "participantID", participantID)

	meeting, err := s.meeting(ctx, participantID, meetingID)
	if err != nil {
		logger.ExitMethodWithError("membershipService.RegisterPendingParticipant", err, "meetingID", meetingID)
		return err
	}
	// The owner never waits in the roster.
	if meeting.IsOwner(participantID) {
		logger.ExitMethod("membershipService.RegisterPendingParticipant", "meetingID", meetingID, "owner", true)
		return nil
	}

	created, err := s.participantRepo.CreatePending(ctx, meetingID, participantID)
	if err != nil {
		logger.ExitMethodWithError("membershipService.RegisterPendingParticipant", err, "meetingID", meetingID)
		return fmt.Errorf("failed to register participant: %w", err)
	}
	if created {
		logger.Info("Participant pending", "meetingID", meetingID, "participantID", participantID)
	}
	logger.ExitMethod("membershipService.RegisterPendingParticipant", "meetingID", meetingID, "created", created)
	return nil
}

func (s *membershipService) QueryApprovalStatus(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.StatusReport, error) {
	if err := validate(participantID, meetingID); err != nil {
		return nil, err
	}
	req, err := s.participantRepo.Get(ctx, meetingID, participantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant request: %w", err)
	}

	switch req.Status {
	case domain.RequestStatusApproved:
		return &domain.StatusReport{Status: domain.RequestStatusApproved, Credential: req.Credential}, nil
	case domain.RequestStatusPending:
		return &domain.StatusReport{Status: domain.RequestStatusPending}, nil
	case domain.RequestStatusDenied, domain.RequestStatusExpired:
		return &domain.StatusReport{Status: domain.RequestStatusDenied}, nil
	default:
		return &domain.StatusReport{Status: domain.RequestStatusUnknown}, nil
	}
}

func (s *membershipService) PromoteParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	logger.EnterMethod("membershipService.PromoteParticipant", "meetingID", meetingID, "participantID", participantID)

	meeting, err := s.meeting(ctx, participantID, meetingID)
	if err != nil {
		logger.ExitMethodWithError("membershipService.PromoteParticipant", err, "meetingID", meetingID)
		return err
	}
	req, err := s.request(ctx, participantID, meetingID)
	if err != nil {
		logger.ExitMethodWithError("membershipService.PromoteParticipant", err, "meetingID", meetingID)
		return err
	}
	switch req.Status {
	case domain.RequestStatusApproved:
		logger.ExitMethod("membershipService.PromoteParticipant", "meetingID", meetingID, "alreadyApproved", true)
		return nil
	case domain.RequestStatusPending:
	default:
		err := fmt.Errorf("promote %s (%s): %w", participantID, req.Status, ErrAlreadyDecided)
		logger.ExitMethodWithError("membershipService.PromoteParticipant", err, "meetingID", meetingID)
		return err
	}

	cred, err := s.tokens.GenerateCredential(meeting, participantID, security.RoleGuest)
	if err != nil {
		return fmt.Errorf("failed to issue credential: %w", err)
	}
	if err := s.participantRepo.Approve(ctx, meetingID, participantID, cred); err != nil {
		if !errors.Is(err, repository.ErrConflict) {
			logger.ExitMethodWithError("membershipService.PromoteParticipant", err, "meetingID", meetingID)
			return fmt.Errorf("failed to approve participant: %w", err)
		}
		// Lost a race: fine if the winner also approved.
		current, getErr := s.request(ctx, participantID, meetingID)
		if getErr != nil {
			return getErr
		}
		if current.Status != domain.RequestStatusApproved {
			return fmt.Errorf("promote %s (%s): %w", participantID, current.Status, ErrAlreadyDecided)
		}
	}

	logger.Info("Participant approved", "meetingID", meetingID, "participantID", participantID)
	logger.ExitMethod("membershipService.PromoteParticipant", "meetingID", meetingID)
	return nil
}

func (s *membershipService) DenyParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	logger.EnterMethod("membershipService.DenyParticipant", "meetingID", meetingID, "participantID", participantID)

	if _, err := s.meeting(ctx, participantID, meetingID); err != nil {
		logger.ExitMethodWithError("membershipService.DenyParticipant", err, "meetingID", meetingID)
		return err
	}
	err := s.participantRepo.Deny(ctx, meetingID, participantID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		err = fmt.Errorf("deny %s: %w", participantID, ErrParticipantNotFound)
	case errors.Is(err, repository.ErrConflict):
		err = fmt.Errorf("deny %s: %w", participantID, ErrAlreadyDecided)
	case err != nil:
		err = fmt.Errorf("failed to deny participant: %w", err)
	}
	if err != nil {
		logger.ExitMethodWithError("membershipService.DenyParticipant", err, "meetingID", meetingID)
		return err
	}

	logger.Info("Participant denied", "meetingID", meetingID, "participantID", participantID)
	logger.ExitMethod("membershipService.DenyParticipant", "meetingID", meetingID)
	return nil
}

func (s *membershipService) ListPendingParticipants(ctx context.Context, meetingID domain.MeetingID) ([]domain.ParticipantID, error) {
	if err := meetingID.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.meetingRepo.GetByID(ctx, meetingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	ids, err := s.participantRepo.ListPending(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending participants: %w", err)
	}
	return ids, nil
}

// ExpireStale marks requests still pending after ceiling as expired. It covers
// guests that went away without withdrawing.
func (s *membershipService) ExpireStale(ctx context.Context, ceiling time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-ceiling)
	n, err := s.participantRepo.ExpireOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending requests: %w", err)
	}
	return n, nil
}

func (s *membershipService) meeting(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.Meeting, error) {
	if err := validate(participantID, meetingID); err != nil {
		return nil, err
	}
	meeting, err := s.meetingRepo.GetByID(ctx, meetingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("meeting %s: %w", meetingID, ErrMeetingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return meeting, nil
}

func (s *membershipService) request(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.ParticipantRequest, error) {
	req, err := s.participantRepo.Get(ctx, meetingID, participantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("participant %s: %w", participantID, ErrParticipantNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant request: %w", err)
	}
	return req, nil
}

func validate(participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	if err := meetingID.Validate(); err != nil {
		return err
	}
	return participantID.Validate()
}
