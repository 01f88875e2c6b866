package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"meeting-gate/internal/logger"
	"meeting-gate/internal/repository"

	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
	repository.MeetingRepository
	repository.ParticipantRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		MeetingRepository:     NewMeetingRepository(db),
		ParticipantRepository: NewParticipantRepository(db),
	}
}

// Open connects to PostgreSQL and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the meetings and participants tables if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	logger.DatabaseCall("EnsureSchema", "schema.sql")
	_, err := s.db.ExecContext(ctx, schemaSQL)
	logger.DatabaseResult("EnsureSchema", 0, err)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database answers; the server health check uses it.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
