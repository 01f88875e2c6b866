package admission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"meeting-gate/internal/domain"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock hands out tickers whose ticks are delivered by the test. A tick
// send returns only once the loop has taken it.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	created chan *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch, created: make(chan *fakeTicker, 8)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(at time.Time) {
	c.mu.Lock()
	c.now = at
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(time.Duration) Ticker {
	t := &fakeTicker{c: make(chan time.Time), stopped: make(chan struct{})}
	c.created <- t
	return t
}

func (c *fakeClock) nextTicker(t *testing.T) *fakeTicker {
	t.Helper()
	select {
	case tk := <-c.created:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("no ticker created")
		return nil
	}
}

// advance moves the clock to epoch+offset and delivers one tick.
func (c *fakeClock) advance(t *testing.T, tk *fakeTicker, offset time.Duration) {
	t.Helper()
	at := epoch.Add(offset)
	c.set(at)
	select {
	case tk.c <- at:
	case <-time.After(2 * time.Second):
		t.Fatalf("tick at %s not taken", offset)
	}
}

type fakeTicker struct {
	c       chan time.Time
	once    sync.Once
	stopped chan struct{}
}

func (t *fakeTicker) C() <-chan time.Time { return t.c }
func (t *fakeTicker) Stop()               { t.once.Do(func() { close(t.stopped) }) }

func (t *fakeTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

func waitStopped(t *testing.T, tk *fakeTicker) {
	t.Helper()
	select {
	case <-tk.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker not stopped")
	}
}

// MockMembershipStore
type MockMembershipStore struct {
	mock.Mock
}

func (m *MockMembershipStore) CheckOwnership(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.Credential, error) {
	args := m.Called(ctx, participantID, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Credential), args.Error(1)
}
func (m *MockMembershipStore) RegisterPendingParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	args := m.Called(ctx, participantID, meetingID)
	return args.Error(0)
}
func (m *MockMembershipStore) QueryApprovalStatus(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.StatusReport, error) {
	args := m.Called(ctx, participantID, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StatusReport), args.Error(1)
}
func (m *MockMembershipStore) DenyParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	args := m.Called(ctx, participantID, meetingID)
	return args.Error(0)
}

// MockRosterStore
type MockRosterStore struct {
	mock.Mock
}

func (m *MockRosterStore) ListPendingParticipants(ctx context.Context, meetingID domain.MeetingID) ([]domain.ParticipantID, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ParticipantID), args.Error(1)
}
func (m *MockRosterStore) PromoteParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	args := m.Called(ctx, participantID, meetingID)
	return args.Error(0)
}
func (m *MockRosterStore) DenyParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	args := m.Called(ctx, participantID, meetingID)
	return args.Error(0)
}

// fakeTransport records joins.
type fakeTransport struct {
	mu    sync.Mutex
	joins []domain.Credential
	err   error
	conn  *fakeConnection
}

func (f *fakeTransport) Join(_ context.Context, cred domain.Credential) (Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, cred)
	if f.err != nil {
		return nil, f.err
	}
	f.conn = &fakeConnection{}
	return f.conn, nil
}

func (f *fakeTransport) joinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.joins)
}

type fakeConnection struct {
	mu    sync.Mutex
	left  int
	muted bool
}

func (c *fakeConnection) Leave(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left++
	return nil
}

func (c *fakeConnection) SetMuted(muted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
	return nil
}

func (c *fakeConnection) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

type resolution struct {
	res Result
	err error
}

func resolveAsync(ctx context.Context, e *Engine) <-chan resolution {
	out := make(chan resolution, 1)
	go func() {
		res, err := e.Resolve(ctx)
		out <- resolution{res, err}
	}()
	return out
}

func awaitResolution(t *testing.T, ch <-chan resolution) resolution {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("resolve did not finish")
		return resolution{}
	}
}
