package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
	"meeting-gate/internal/repository"
)

type meetingRepository struct {
	db *sql.DB
}

func NewMeetingRepository(db *sql.DB) repository.MeetingRepository {
	return &meetingRepository{db: db}
}

func (r *meetingRepository) Create(ctx context.Context, meeting *domain.Meeting) error {
	logger.EnterMethod("meetingRepository.Create", "meetingID", meeting.ID, "ownerID", meeting.OwnerID)

	if meeting.CreatedOn.IsZero() {
		meeting.CreatedOn = time.Now().UTC()
	}
	query := `INSERT INTO meetings (id, owner_id, channel_name, created_on) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, meeting.ID, meeting.OwnerID, meeting.ChannelName, meeting.CreatedOn)
	if err != nil {
		logger.ExitMethodWithError("meetingRepository.Create", err, "meetingID", meeting.ID)
		return err
	}

	logger.ExitMethod("meetingRepository.Create", "meetingID", meeting.ID)
	return nil
}

func (r *meetingRepository) GetByID(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	logger.EnterMethod("meetingRepository.GetByID", "meetingID", id)

	query := `SELECT id, owner_id, channel_name, created_on FROM meetings WHERE id = $1`
	m := &domain.Meeting{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.OwnerID, &m.ChannelName, &m.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExitMethod("meetingRepository.GetByID", "meetingID", id, "found", false)
		return nil, repository.ErrNotFound
	}
	if err != nil {
		logger.ExitMethodWithError("meetingRepository.GetByID", err, "meetingID", id)
		return nil, err
	}

	logger.ExitMethod("meetingRepository.GetByID", "meetingID", id)
	return m, nil
}
