package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"meeting-gate/internal/config"
	"meeting-gate/internal/domain"
	"meeting-gate/internal/repository/memory"
	"meeting-gate/internal/security"
	"meeting-gate/internal/service"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Admission.ExpiryCeiling = 300 * time.Second
	return cfg
}

func TestExpirePendingRequests(t *testing.T) {
	ctx := context.Background()
	registeredAt := time.Now().Add(-10 * time.Minute)
	clock := func() time.Time { return registeredAt }

	store := memory.NewStore(func() time.Time { return clock() })
	svc := service.NewMembershipService(store, store, security.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour))
	_, err := svc.EnsureMeeting(ctx, "m1", "owner")
	require.NoError(t, err)

	require.NoError(t, svc.RegisterPendingParticipant(ctx, "stale", "m1"))
	clock = time.Now
	require.NoError(t, svc.RegisterPendingParticipant(ctx, "fresh", "m1"))

	NewJobRunner(svc, testConfig()).ExpirePendingRequests()

	pending, err := svc.ListPendingParticipants(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []domain.ParticipantID{"fresh"}, pending)

	report, err := svc.QueryApprovalStatus(ctx, "stale", "m1")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, domain.RequestStatusDenied, report.Status)
}

type mockMembership struct {
	service.MembershipService
	mock.Mock
}

func (m *mockMembership) ExpireStale(ctx context.Context, ceiling time.Duration) (int64, error) {
	args := m.Called(ctx, ceiling)
	if fn, ok := args.Get(0).(func()); ok {
		fn()
	}
	return int64(args.Int(1)), args.Error(2)
}

func TestExpirePendingRequests_ErrorAndPanicAreContained(t *testing.T) {
	m := new(mockMembership)
	m.On("ExpireStale", mock.Anything, 300*time.Second).Return(nil, 0, errors.New("db down")).Once()
	m.On("ExpireStale", mock.Anything, 300*time.Second).Return(func() { panic("boom") }, 0, nil).Once()

	runner := NewJobRunner(m, testConfig())
	assert.NotPanics(t, runner.ExpirePendingRequests)
	assert.NotPanics(t, runner.RunAll)
	m.AssertExpectations(t)
}
