package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"meeting-gate/internal/domain"
)

// MockMeetingRepo
type MockMeetingRepo struct {
	mock.Mock
}

func (m *MockMeetingRepo) Create(ctx context.Context, meeting *domain.Meeting) error {
	args := m.Called(ctx, meeting)
	return args.Error(0)
}
func (m *MockMeetingRepo) GetByID(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Meeting), args.Error(1)
}

// MockParticipantRepo
type MockParticipantRepo struct {
	mock.Mock
}

func (m *MockParticipantRepo) Get(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) (*domain.ParticipantRequest, error) {
	args := m.Called(ctx, meetingID, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParticipantRequest), args.Error(1)
}
func (m *MockParticipantRepo) CreatePending(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) (bool, error) {
	args := m.Called(ctx, meetingID, participantID)
	return args.Bool(0), args.Error(1)
}
func (m *MockParticipantRepo) Approve(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID, cred *domain.Credential) error {
	args := m.Called(ctx, meetingID, participantID, cred)
	return args.Error(0)
}
func (m *MockParticipantRepo) Deny(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) error {
	args := m.Called(ctx, meetingID, participantID)
	return args.Error(0)
}
func (m *MockParticipantRepo) ListPending(ctx context.Context, meetingID domain.MeetingID) ([]domain.ParticipantID, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ParticipantID), args.Error(1)
}
func (m *MockParticipantRepo) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
