package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/repository"
	"meeting-gate/internal/repository/postgres"
)

func TestMeetingRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewMeetingRepository(db)
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("Create", func(t *testing.T) {
		m := &domain.Meeting{ID: "m1", OwnerID: "u1", ChannelName: "room-m1", CreatedOn: created}
		mock.ExpectExec("INSERT INTO meetings").
			WithArgs("m1", "u1", "room-m1", created).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Create(ctx, m))
	})

	t.Run("GetByID", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, owner_id, channel_name, created_on FROM meetings").
			WithArgs("m1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "channel_name", "created_on"}).
				AddRow("m1", "u1", "room-m1", created))

		m, err := repo.GetByID(ctx, "m1")
		require.NoError(t, err)
		assert.True(t, m.IsOwner("u1"))
		assert.Equal(t, "room-m1", m.ChannelName)
	})

	t.Run("GetByIDMissing", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, owner_id").
			WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "channel_name", "created_on"}))

		_, err := repo.GetByID(ctx, "nope")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS meetings").WillReturnResult(sqlmock.NewResult(0, 0))

	store := postgres.NewStore(db)
	assert.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	store := postgres.NewStore(db)
	assert.NoError(t, store.Ping(context.Background()))
	assert.Error(t, store.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
