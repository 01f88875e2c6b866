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

type participantRepository struct {
	db *sql.DB
}

func NewParticipantRepository(db *sql.DB) repository.ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Get(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) (*domain.ParticipantRequest, error) {
	logger.EnterMethod("participantRepository.Get", "meetingID", meetingID, "participantID", participantID)

	query := `
		SELECT meeting_id, participant_id, status, token, channel_name, created_on, updated_on
		FROM participants WHERE meeting_id = $1 AND participant_id = $2
	`
	req := &domain.ParticipantRequest{}
	var token, channel sql.NullString
	err := r.db.QueryRowContext(ctx, query, meetingID, participantID).Scan(
		&req.MeetingID, &req.ParticipantID, &req.Status, &token, &channel, &req.CreatedOn, &req.UpdatedOn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		logger.ExitMethod("participantRepository.Get", "meetingID", meetingID, "participantID", participantID, "found", false)
		return nil, repository.ErrNotFound
	}
	if err != nil {
		logger.ExitMethodWithError("participantRepository.Get", err, "meetingID", meetingID, "participantID", participantID)
		return nil, err
	}
	if token.Valid {
		req.Credential = &domain.Credential{Token: token.String, ChannelName: channel.String}
	}

	logger.ExitMethod("participantRepository.Get", "meetingID", meetingID, "participantID", participantID, "status", req.Status)
	return req, nil
}

func (r *participantRepository) CreatePending(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) (bool, error) {
	logger.EnterMethod("participantRepository.CreatePending", "meetingID", meetingID, "participantID", participantID)

	query := `
		INSERT INTO participants (meeting_id, participant_id, status, created_on, updated_on)
		VALUES ($1, $2, 'pending', $3, $3)
		ON CONFLICT (meeting_id, participant_id) DO UPDATE
		SET status = 'pending', token = NULL, channel_name = NULL,
		    created_on = EXCLUDED.created_on, updated_on = EXCLUDED.updated_on
		WHERE participants.status IN ('denied', 'expired')
	`
	logger.DatabaseCall("CreatePending", "INSERT participants ON CONFLICT", "meetingID", meetingID)
	res, err := r.db.ExecContext(ctx, query, meetingID, participantID, time.Now().UTC())
	if err != nil {
		logger.DatabaseResult("CreatePending", 0, err)
		logger.ExitMethodWithError("participantRepository.CreatePending", err, "meetingID", meetingID, "participantID", participantID)
		return false, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("CreatePending", n, err)
	if err != nil {
		return false, err
	}

	logger.ExitMethod("participantRepository.CreatePending", "meetingID", meetingID, "participantID", participantID, "created", n > 0)
	return n > 0, nil
}

func (r *participantRepository) Approve(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID, cred *domain.Credential) error {
	logger.EnterMethod("participantRepository.Approve", "meetingID", meetingID, "participantID", participantID)

	query := `
		UPDATE participants SET status = 'approved', token = $3, channel_name = $4, updated_on = $5
		WHERE meeting_id = $1 AND participant_id = $2 AND status = 'pending'
	`
	n, err := r.exec(ctx, "Approve", query, meetingID, participantID, cred.Token, cred.ChannelName, time.Now().UTC())
	if err != nil {
		logger.ExitMethodWithError("participantRepository.Approve", err, "meetingID", meetingID, "participantID", participantID)
		return err
	}
	if n == 0 {
		// Not pending: report why.
		if _, err := r.statusOf(ctx, meetingID, participantID); err != nil {
			return err
		}
		return repository.ErrConflict
	}

	logger.ExitMethod("participantRepository.Approve", "meetingID", meetingID, "participantID", participantID)
	return nil
}

func (r *participantRepository) Deny(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) error {
	logger.EnterMethod("participantRepository.Deny", "meetingID", meetingID, "participantID", participantID)

	query := `
		UPDATE participants SET status = 'denied', updated_on = $3
		WHERE meeting_id = $1 AND participant_id = $2 AND status = 'pending'
	`
	n, err := r.exec(ctx, "Deny", query, meetingID, participantID, time.Now().UTC())
	if err != nil {
		logger.ExitMethodWithError("participantRepository.Deny", err, "meetingID", meetingID, "participantID", participantID)
		return err
	}
	if n == 0 {
		status, err := r.statusOf(ctx, meetingID, participantID)
		if err != nil {
			return err
		}
		if status == domain.RequestStatusApproved {
			return repository.ErrConflict
		}
	}

	logger.ExitMethod("participantRepository.Deny", "meetingID", meetingID, "participantID", participantID, "changed", n > 0)
	return nil
}

func (r *participantRepository) ListPending(ctx context.Context, meetingID domain.MeetingID) ([]domain.ParticipantID, error) {
	logger.EnterMethod("participantRepository.ListPending", "meetingID", meetingID)

	query := `
		SELECT participant_id FROM participants
		WHERE meeting_id = $1 AND status = 'pending'
		ORDER BY created_on, participant_id
	`
	rows, err := r.db.QueryContext(ctx, query, meetingID)
	if err != nil {
		logger.ExitMethodWithError("participantRepository.ListPending", err, "meetingID", meetingID)
		return nil, err
	}
	defer rows.Close()

	ids := []domain.ParticipantID{}
	for rows.Next() {
		var id domain.ParticipantID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		logger.ExitMethodWithError("participantRepository.ListPending", err, "meetingID", meetingID)
		return nil, err
	}

	logger.ExitMethod("participantRepository.ListPending", "meetingID", meetingID, "count", len(ids))
	return ids, nil
}

func (r *participantRepository) ExpireOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	logger.EnterMethod("participantRepository.ExpireOlderThan", "cutoff", cutoff)

	query := `
		UPDATE participants SET status = 'expired', updated_on = $2
		WHERE status = 'pending' AND created_on < $1
	`
	n, err := r.exec(ctx, "ExpireOlderThan", query, cutoff, time.Now().UTC())
	if err != nil {
		logger.ExitMethodWithError("participantRepository.ExpireOlderThan", err)
		return 0, err
	}

	logger.ExitMethod("participantRepository.ExpireOlderThan", "expired", n)
	return n, nil
}

func (r *participantRepository) exec(ctx context.Context, operation, query string, args ...any) (int64, error) {
	logger.DatabaseCall(operation, query)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult(operation, 0, err)
		return 0, err
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult(operation, n, err)
	return n, err
}

func (r *participantRepository) statusOf(ctx context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) (domain.RequestStatus, error) {
	var status domain.RequestStatus
	query := `SELECT status FROM participants WHERE meeting_id = $1 AND participant_id = $2`
	err := r.db.QueryRowContext(ctx, query, meetingID, participantID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	return status, err
}
