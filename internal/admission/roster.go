package admission

import (
	"context"
	"log/slog"
	"sync"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
)

// RosterStore is what the owner's roster poller needs from the membership store.
type RosterStore interface {
	ListPendingParticipants(ctx context.Context, meetingID domain.MeetingID) ([]domain.ParticipantID, error)
	PromoteParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error
	DenyParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error
}

// RosterPoller keeps the owner's snapshot of pending participants fresh.
// The snapshot is replaced wholesale by every fetch and shrunk locally after
// an accept or deny succeeds remotely.
type RosterPoller struct {
	store     RosterStore
	meetingID domain.MeetingID
	opts      Options
	log       *slog.Logger
	onChange  func([]domain.ParticipantID)

	mu       sync.Mutex
	snapshot []domain.ParticipantID
	// seq counts local resolutions. resolved maps an id to the seq of its
	// resolution so fetches started earlier cannot bring it back.
	seq      uint64
	resolved map[domain.ParticipantID]uint64
}

func NewRosterPoller(store RosterStore, meetingID domain.MeetingID, opts Options) *RosterPoller {
	return &RosterPoller{
		store:     store,
		meetingID: meetingID,
		opts:      opts.withDefaults(),
		log:       logger.WithComponent("roster").With("meetingID", string(meetingID)),
		snapshot:  []domain.ParticipantID{},
		resolved:  make(map[domain.ParticipantID]uint64),
	}
}

// OnChange registers fn to receive every new snapshot. Call before Run.
func (p *RosterPoller) OnChange(fn func([]domain.ParticipantID)) {
	p.onChange = fn
}

// Run fetches immediately and then on every tick until ctx is done.
func (p *RosterPoller) Run(ctx context.Context) error {
	p.refresh(ctx)

	ticker := p.opts.Clock.NewTicker(p.opts.RosterInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			p.refresh(ctx)
		}
	}
}

// Snapshot returns a copy of the current pending roster.
func (p *RosterPoller) Snapshot() []domain.ParticipantID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return clone(p.snapshot)
}

func (p *RosterPoller) refresh(ctx context.Context) {
	p.mu.Lock()
	startSeq := p.seq
	p.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
	logger.ExternalServiceCall("membership", "list pending participants", "meetingID", p.meetingID)
	ids, err := p.store.ListPendingParticipants(callCtx, p.meetingID)
	logger.ExternalServiceResult("membership", "list pending participants", err, "meetingID", p.meetingID, "count", len(ids))
	cancel()
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	if err != nil {
		p.log.Warn("Failed to list pending participants", "error", err)
		p.snapshot = []domain.ParticipantID{}
	} else {
		next := make([]domain.ParticipantID, 0, len(ids))
		for _, id := range ids {
			if at, ok := p.resolved[id]; ok && at > startSeq {
				continue
			}
			next = append(next, id)
		}
		p.snapshot = next
		for id, at := range p.resolved {
			if at <= startSeq {
				delete(p.resolved, id)
			}
		}
	}
	out := clone(p.snapshot)
	p.mu.Unlock()

	p.notify(out)
}

// Accept promotes id and drops it from the snapshot.
func (p *RosterPoller) Accept(ctx context.Context, id domain.ParticipantID) error {
	return p.act(ctx, "promote participant", id, p.store.PromoteParticipant)
}

// Deny denies id and drops it from the snapshot.
func (p *RosterPoller) Deny(ctx context.Context, id domain.ParticipantID) error {
	return p.act(ctx, "deny participant", id, p.store.DenyParticipant)
}

func (p *RosterPoller) act(ctx context.Context, op string, id domain.ParticipantID,
	fn func(context.Context, domain.ParticipantID, domain.MeetingID) error) error {
	callCtx, cancel := context.WithTimeout(ctx, p.opts.CallTimeout)
	defer cancel()

	logger.ExternalServiceCall("membership", op, "meetingID", p.meetingID, "participantID", id)
	err := fn(callCtx, id, p.meetingID)
	logger.ExternalServiceResult("membership", op, err, "meetingID", p.meetingID, "participantID", id)
	if err != nil {
		p.log.Error("Roster action failed", "op", op, "participantID", string(id), "error", err)
		return &TransportError{Op: op, Err: err}
	}

	p.mu.Lock()
	p.seq++
	p.resolved[id] = p.seq
	next := make([]domain.ParticipantID, 0, len(p.snapshot))
	for _, cur := range p.snapshot {
		if cur != id {
			next = append(next, cur)
		}
	}
	changed := len(next) != len(p.snapshot)
	p.snapshot = next
	out := clone(next)
	p.mu.Unlock()

	if changed {
		p.notify(out)
	}
	return nil
}

func (p *RosterPoller) notify(ids []domain.ParticipantID) {
	if p.onChange != nil {
		p.onChange(ids)
	}
}

func clone(ids []domain.ParticipantID) []domain.ParticipantID {
	out := make([]domain.ParticipantID, len(ids))
	copy(out, ids)
	return out
}
