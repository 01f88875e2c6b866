package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/repository"
)

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time { return c.t }

func TestStore_Meetings(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	require.NoError(t, s.Create(ctx, &domain.Meeting{ID: "m1", OwnerID: "u1", ChannelName: "room-m1"}))
	assert.ErrorIs(t, s.Create(ctx, &domain.Meeting{ID: "m1"}), repository.ErrConflict)

	m, err := s.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, m.IsOwner("u1"))
	assert.False(t, m.CreatedOn.IsZero())

	_, err = s.GetByID(ctx, "m2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_RequestLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(clock.now)

	created, err := s.CreatePending(ctx, "m1", "u2")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreatePending(ctx, "m1", "u2")
	require.NoError(t, err)
	assert.False(t, created, "pending request is not recreated")

	cred := &domain.Credential{Token: "tok", ChannelName: "room-m1"}
	require.NoError(t, s.Approve(ctx, "m1", "u2", cred))
	assert.ErrorIs(t, s.Approve(ctx, "m1", "u2", cred), repository.ErrConflict)
	assert.ErrorIs(t, s.Deny(ctx, "m1", "u2"), repository.ErrConflict)

	req, err := s.Get(ctx, "m1", "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, req.Status)
	assert.Equal(t, cred, req.Credential)

	created, err = s.CreatePending(ctx, "m1", "u2")
	require.NoError(t, err)
	assert.False(t, created, "approved request keeps its credential")
}

func TestStore_DenyAndReopen(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	assert.ErrorIs(t, s.Deny(ctx, "m1", "u3"), repository.ErrNotFound)

	_, err := s.CreatePending(ctx, "m1", "u3")
	require.NoError(t, err)
	require.NoError(t, s.Deny(ctx, "m1", "u3"))
	require.NoError(t, s.Deny(ctx, "m1", "u3"))

	created, err := s.CreatePending(ctx, "m1", "u3")
	require.NoError(t, err)
	assert.True(t, created)

	req, err := s.Get(ctx, "m1", "u3")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, req.Status)
}

func TestStore_ListPendingOrder(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(clock.now)

	for _, id := range []domain.ParticipantID{"u3", "u2"} {
		_, err := s.CreatePending(ctx, "m1", id)
		require.NoError(t, err)
	}
	clock.t = clock.t.Add(time.Second)
	_, err := s.CreatePending(ctx, "m1", "u1")
	require.NoError(t, err)
	_, err = s.CreatePending(ctx, "m2", "u9")
	require.NoError(t, err)

	ids, err := s.ListPending(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, []domain.ParticipantID{"u3", "u2", "u1"}, ids)

	ids, err = s.ListPending(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestStore_ExpireOlderThan(t *testing.T) {
	ctx := context.Background()
	clock := &manualClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewStore(clock.now)

	_, _ = s.CreatePending(ctx, "m1", "old")
	clock.t = clock.t.Add(10 * time.Minute)
	_, _ = s.CreatePending(ctx, "m1", "new")

	n, err := s.ExpireOlderThan(ctx, clock.t.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	req, err := s.Get(ctx, "m1", "old")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusExpired, req.Status)

	ids, _ := s.ListPending(ctx, "m1")
	assert.Equal(t, []domain.ParticipantID{"new"}, ids)
}
