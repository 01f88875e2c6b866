package admission

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
)

// MembershipStore is what the approval engine needs from the membership store.
// A nil credential or report means "absent".
type MembershipStore interface {
	CheckOwnership(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.Credential, error)
	RegisterPendingParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error
	QueryApprovalStatus(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.StatusReport, error)
	DenyParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error
}

// Result is a successful resolution.
type Result struct {
	Credential *domain.Credential
	Owner      bool
}

// Engine drives one participant from unknown to admitted, denied or expired.
// Resolve may be called any number of times; the resolution runs once.
type Engine struct {
	store         MembershipStore
	participantID domain.ParticipantID
	meetingID     domain.MeetingID
	opts          Options
	log           *slog.Logger
	onPhase       func(Phase)

	group singleflight.Group

	mu     sync.Mutex
	phase  Phase
	done   bool
	result Result
	err    error
}

func NewEngine(store MembershipStore, participantID domain.ParticipantID, meetingID domain.MeetingID, opts Options) *Engine {
	return &Engine{
		store:         store,
		participantID: participantID,
		meetingID:     meetingID,
		opts:          opts.withDefaults(),
		log:           logger.WithMeeting("admission", string(meetingID), string(participantID)),
		phase:         PhaseChecking,
	}
}

// OnPhase registers fn to be called on every phase change. Call before Resolve.
func (e *Engine) OnPhase(fn func(Phase)) {
	e.onPhase = fn
}

func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Resolve determines access for the participant. It returns ErrDenied,
// ErrExpired or a *TransportError when access is not granted. A completed
// resolution is remembered; a cancelled one is not.
func (e *Engine) Resolve(ctx context.Context) (Result, error) {
	if res, err, ok := e.cached(); ok {
		return res, err
	}
	v, err, _ := e.group.Do("resolve", func() (interface{}, error) {
		if res, err, ok := e.cached(); ok {
			return res, err
		}
		res, err := e.resolve(ctx)
		if ctx.Err() == nil || err == nil {
			e.mu.Lock()
			e.done, e.result, e.err = true, res, err
			e.mu.Unlock()
		}
		return res, err
	})
	res, _ := v.(Result)
	return res, err
}

func (e *Engine) cached() (Result, error, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result, e.err, e.done
}

func (e *Engine) resolve(ctx context.Context) (Result, error) {
	e.setPhase(PhaseChecking)

	var cred *domain.Credential
	err := e.call(ctx, "check ownership", func(ctx context.Context) (err error) {
		cred, err = e.store.CheckOwnership(ctx, e.participantID, e.meetingID)
		return err
	})
	if err != nil {
		if ctx.Err() == nil {
			e.setPhase(PhaseCheckError)
		}
		return Result{}, err
	}
	if cred.Valid() {
		e.setPhase(PhaseOwner)
		return Result{Credential: cred, Owner: true}, nil
	}

	e.setPhase(PhaseNotOwner)
	err = e.call(ctx, "register pending participant", func(ctx context.Context) error {
		return e.store.RegisterPendingParticipant(ctx, e.participantID, e.meetingID)
	})
	if err != nil {
		if ctx.Err() == nil {
			e.setPhase(PhaseCheckError)
		}
		return Result{}, err
	}
	return e.poll(ctx)
}

// outcome is the classification of one status poll.
type outcome int

const (
	outcomeAdmitted outcome = iota
	outcomeExpired
	outcomeDenied
	outcomePending
	outcomeApprovedNoCredential
	outcomeWaiting
)

// classify applies the precedence: credential, ceiling, denial, pending, anything else.
func classify(report *domain.StatusReport, elapsed, ceiling time.Duration) outcome {
	switch {
	case report.Approved():
		return outcomeAdmitted
	case elapsed >= ceiling:
		return outcomeExpired
	case report == nil:
		return outcomeWaiting
	case report.Status == domain.RequestStatusDenied:
		return outcomeDenied
	case report.Status == domain.RequestStatusPending:
		return outcomePending
	case report.Status == domain.RequestStatusApproved:
		return outcomeApprovedNoCredential
	default:
		return outcomeWaiting
	}
}

func (e *Engine) poll(ctx context.Context) (Result, error) {
	e.setPhase(PhasePending)
	start := e.opts.Clock.Now()
	ticker := e.opts.Clock.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C():
		}

		var report *domain.StatusReport
		err := e.call(ctx, "query approval status", func(ctx context.Context) (err error) {
			report, err = e.store.QueryApprovalStatus(ctx, e.participantID, e.meetingID)
			return err
		})
		if errors.Is(err, ErrMalformedResponse) {
			e.log.Warn("Unrecognized approval status", "error", err)
			report, err = nil, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			e.setPhase(PhaseError)
			return Result{}, err
		}

		elapsed := e.opts.Clock.Now().Sub(start)
		switch classify(report, elapsed, e.opts.ExpiryCeiling) {
		case outcomeAdmitted:
			e.setPhase(PhaseApproved)
			return Result{Credential: report.Credential}, nil
		case outcomeExpired:
			e.expire(ctx, elapsed)
			return Result{}, ErrExpired
		case outcomeDenied:
			e.setPhase(PhaseDenied)
			return Result{}, ErrDenied
		case outcomePending:
			e.setPhase(PhasePending)
		case outcomeApprovedNoCredential:
			e.setPhase(PhaseApprovedAwaitingCredential)
		default:
			e.setPhase(PhaseWaiting)
		}
	}
}

// expire withdraws the request from the store. The expiry stands even if
// the withdrawal fails.
func (e *Engine) expire(ctx context.Context, elapsed time.Duration) {
	e.setPhase(PhaseExpired)
	err := e.call(ctx, "deny participant", func(ctx context.Context) error {
		return e.store.DenyParticipant(ctx, e.participantID, e.meetingID)
	})
	if err != nil {
		e.log.Warn("Failed to withdraw expired request", "error", err, "elapsed", elapsed)
		return
	}
	e.log.Info("Request expired", "elapsed", elapsed)
}

func (e *Engine) call(ctx context.Context, op string, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()

	logger.ExternalServiceCall("membership", op, "meetingID", e.meetingID, "participantID", e.participantID)
	err := fn(callCtx)
	logger.ExternalServiceResult("membership", op, err, "meetingID", e.meetingID, "participantID", e.participantID)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, ErrMalformedResponse) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

func (e *Engine) setPhase(p Phase) {
	e.mu.Lock()
	changed := e.phase != p
	e.phase = p
	e.mu.Unlock()
	if !changed {
		return
	}
	e.log.Debug("Phase changed", "phase", p.String())
	if e.onPhase != nil {
		e.onPhase(p)
	}
}
