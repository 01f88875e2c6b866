package admission

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
)

// View is what the presentation layer renders.
type View struct {
	Phase      Phase
	Message    string
	Credential *domain.Credential
	Roster     []domain.ParticipantID
	Owner      bool
	Joined     bool
}

type SessionConfig struct {
	ParticipantID domain.ParticipantID
	MeetingID     domain.MeetingID
	Store         MembershipStore
	// Roster builds the owner's roster store once the owner credential is known.
	Roster    func(cred domain.Credential) RosterStore
	Transport Transport
	Options   Options
	// OnChange is called after every view change. It must not block.
	OnChange func(View)
}

// Session owns every loop started for one participant. Close stops them all.
type Session struct {
	cfg          SessionConfig
	engine       *Engine
	materializer *Materializer

	mu     sync.Mutex
	roster *RosterPoller
	cred   *domain.Credential
	owner  bool
	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if err := cfg.MeetingID.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ParticipantID.Validate(); err != nil {
		return nil, err
	}
	if cfg.Store == nil || cfg.Transport == nil {
		return nil, errors.New("session needs a store and a transport")
	}
	s := &Session{
		cfg:          cfg,
		engine:       NewEngine(cfg.Store, cfg.ParticipantID, cfg.MeetingID, cfg.Options),
		materializer: NewMaterializer(cfg.Transport),
	}
	s.engine.OnPhase(func(Phase) { s.changed() })
	return s, nil
}

// Start resolves access in the background. It is a no-op after the first call.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.group != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)
	group := s.group
	group.Go(func() error { return s.run(ctx, group) })
}

func (s *Session) run(ctx context.Context, group *errgroup.Group) error {
	res, err := s.engine.Resolve(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cred = res.Credential
	s.owner = res.Owner
	if res.Owner && s.cfg.Roster != nil {
		s.roster = NewRosterPoller(s.cfg.Roster(*res.Credential), s.cfg.MeetingID, s.cfg.Options)
		s.roster.OnChange(func([]domain.ParticipantID) { s.changed() })
		roster := s.roster
		group.Go(func() error { return roster.Run(ctx) })
	}
	s.mu.Unlock()

	if _, err := s.materializer.Materialize(ctx, res.Credential); err != nil {
		if errors.Is(err, ErrClosed) || ctx.Err() != nil {
			return nil
		}
		logger.Error("Failed to join media channel", "meetingID", s.cfg.MeetingID, "participantID", s.cfg.ParticipantID, "error", err)
		return err
	}
	s.changed()
	return nil
}

// Wait blocks until resolution and every loop have finished. It returns the
// reason access was not granted, if any.
func (s *Session) Wait() error {
	s.mu.Lock()
	group := s.group
	s.mu.Unlock()
	if group == nil {
		return nil
	}
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) View() View {
	s.mu.Lock()
	v := View{
		Phase:      s.engine.Phase(),
		Credential: s.cred,
		Owner:      s.owner,
		Roster:     []domain.ParticipantID{},
	}
	if s.roster != nil {
		v.Roster = s.roster.Snapshot()
	}
	s.mu.Unlock()
	v.Message = v.Phase.Message()
	v.Joined = s.materializer.Connection() != nil
	return v
}

// Connection returns the media connection once joined.
func (s *Session) Connection() Connection {
	return s.materializer.Connection()
}

// Accept admits a pending participant. Only the owner may call it.
func (s *Session) Accept(ctx context.Context, id domain.ParticipantID) error {
	roster, err := s.ownerRoster()
	if err != nil {
		return err
	}
	return roster.Accept(ctx, id)
}

// Deny rejects a pending participant. Only the owner may call it.
func (s *Session) Deny(ctx context.Context, id domain.ParticipantID) error {
	roster, err := s.ownerRoster()
	if err != nil {
		return err
	}
	return roster.Deny(ctx, id)
}

func (s *Session) ownerRoster() (*RosterPoller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roster == nil {
		return nil, ErrNotOwner
	}
	return s.roster, nil
}

// Close cancels every loop, waits for them and leaves the media channel.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	cancel, group := s.cancel, s.group
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		_ = group.Wait()
	}
	return s.materializer.Leave(ctx)
}

func (s *Session) changed() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(s.View())
	}
}
