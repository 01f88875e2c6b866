// Package memory keeps meetings and participant requests in process memory.
// It backs the dev profile and in-process tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/repository"
)

type participantKey struct {
	meeting     domain.MeetingID
	participant domain.ParticipantID
}

type Store struct {
	mu           sync.RWMutex
	now          func() time.Time
	meetings     map[domain.MeetingID]domain.Meeting
	participants map[participantKey]domain.ParticipantRequest
	// seq orders requests created in the same instant.
	seq   uint64
	order map[participantKey]uint64
}

var (
	_ repository.MeetingRepository     = (*Store)(nil)
	_ repository.ParticipantRepository = (*Store)(nil)
)

// NewStore returns an empty store. A nil now uses time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:          now,
		meetings:     make(map[domain.MeetingID]domain.Meeting),
		participants: make(map[participantKey]domain.ParticipantRequest),
		order:        make(map[participantKey]uint64),
	}
}

func (s *Store) Create(_ context.Context, meeting *domain.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[meeting.ID]; ok {
		return repository.ErrConflict
	}
	if meeting.CreatedOn.IsZero() {
		meeting.CreatedOn = s.now().UTC()
	}
	s.meetings[meeting.ID] = *meeting
	return nil
}

func (s *Store) GetByID(_ context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (s *Store) Get(_ context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) (*domain.ParticipantRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.participants[participantKey{meetingID, participantID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if req.Credential != nil {
		c := *req.Credential
		req.Credential = &c
	}
	return &req, nil
}

func (s *Store) CreatePending(_ context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{meetingID, participantID}
	if req, ok := s.participants[key]; ok {
		if req.Status == domain.RequestStatusPending || req.Status == domain.RequestStatusApproved {
			return false, nil
		}
	}
	now := s.now().UTC()
	s.participants[key] = domain.ParticipantRequest{
		MeetingID:     meetingID,
		ParticipantID: participantID,
		Status:        domain.RequestStatusPending,
		CreatedOn:     now,
		UpdatedOn:     now,
	}
	s.seq++
	s.order[key] = s.seq
	return true, nil
}

func (s *Store) Approve(_ context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{meetingID, participantID}
	req, ok := s.participants[key]
	if !ok {
		return repository.ErrNotFound
	}
	if req.Status != domain.RequestStatusPending {
		return repository.ErrConflict
	}
	c := *cred
	req.Status = domain.RequestStatusApproved
	req.Credential = &c
	req.UpdatedOn = s.now().UTC()
	s.participants[key] = req
	return nil
}

func (s *Store) Deny(_ context.Context, meetingID domain.MeetingID, participantID domain.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := participantKey{meetingID, participantID}
	req, ok := s.participants[key]
	if !ok {
		return repository.ErrNotFound
	}
	switch req.Status {
	case domain.RequestStatusDenied, domain.RequestStatusExpired:
		return nil
	case domain.RequestStatusApproved:
		return repository.ErrConflict
	}
	req.Status = domain.RequestStatusDenied
	req.UpdatedOn = s.now().UTC()
	s.participants[key] = req
	return nil
}

func (s *Store) ListPending(_ context.Context, meetingID domain.MeetingID) ([]domain.ParticipantID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []participantKey
	for key, req := range s.participants {
		if key.meeting == meetingID && req.Status == domain.RequestStatusPending {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.participants[keys[i]], s.participants[keys[j]]
		if !a.CreatedOn.Equal(b.CreatedOn) {
			return a.CreatedOn.Before(b.CreatedOn)
		}
		return s.order[keys[i]] < s.order[keys[j]]
	})
	ids := make([]domain.ParticipantID, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, key.participant)
	}
	return ids, nil
}

func (s *Store) ExpireOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := s.now().UTC()
	for key, req := range s.participants {
		if req.Status == domain.RequestStatusPending && req.CreatedOn.Before(cutoff) {
			req.Status = domain.RequestStatusExpired
			req.UpdatedOn = now
			s.participants[key] = req
			n++
		}
	}
	return n, nil
}
