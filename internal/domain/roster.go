package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var ErrDuplicateParticipant = errors.New("duplicate participant in roster")

// Roster is the wire form of the pending participants of one meeting.
type Roster struct {
	Participants []ParticipantID `json:"participants"`
}

// Validate rejects rosters with invalid or repeated ids.
func (r Roster) Validate() error {
	seen := make(map[ParticipantID]struct{}, len(r.Participants))
	for i, id := range r.Participants {
		if err := id.Validate(); err != nil {
			return fmt.Errorf("roster entry %d: %w", i, err)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("roster entry %d (%s): %w", i, id, ErrDuplicateParticipant)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// DecodeRoster parses a roster strictly: unknown fields, trailing data,
// a missing participants list and invalid ids are all errors.
func DecodeRoster(r io.Reader) (Roster, error) {
	var raw struct {
		Participants *[]ParticipantID `json:"participants"`
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Roster{}, fmt.Errorf("decode roster: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Roster{}, errors.New("decode roster: trailing data")
	}
	if raw.Participants == nil {
		return Roster{}, errors.New("decode roster: participants is required")
	}
	roster := Roster{Participants: *raw.Participants}
	if err := roster.Validate(); err != nil {
		return Roster{}, err
	}
	return roster, nil
}

// EncodeRoster writes the roster, always as a list (never null).
func EncodeRoster(ids []ParticipantID) ([]byte, error) {
	if ids == nil {
		ids = []ParticipantID{}
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(Roster{Participants: ids}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
