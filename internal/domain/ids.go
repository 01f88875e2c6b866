package domain

import (
	"errors"
	"fmt"
)

const MaxIDLen = 64

var (
	ErrIDEmpty       = errors.New("identifier is empty")
	ErrIDTooLong     = errors.New("identifier too long")
	ErrIDInvalidChar = errors.New("identifier contains invalid characters")
)

// ParticipantID names one user within a meeting's scope.
type ParticipantID string

// MeetingID names one real-time session.
type MeetingID string

func (id ParticipantID) Validate() error {
	if err := validateID(string(id)); err != nil {
		return fmt.Errorf("participant id: %w", err)
	}
	return nil
}

func (id MeetingID) Validate() error {
	if err := validateID(string(id)); err != nil {
		return fmt.Errorf("meeting id: %w", err)
	}
	return nil
}

func validateID(s string) error {
	if len(s) == 0 {
		return ErrIDEmpty
	}
	if len(s) > MaxIDLen {
		return ErrIDTooLong
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == '@', c == ':':
		default:
			return ErrIDInvalidChar
		}
	}
	return nil
}
