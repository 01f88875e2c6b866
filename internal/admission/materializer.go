package admission

import (
	"context"
	"sync"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
)

// Transport is the real-time media collaborator.
type Transport interface {
	Join(ctx context.Context, cred domain.Credential) (Connection, error)
}

// Connection is a joined media session.
type Connection interface {
	Leave(ctx context.Context) error
	SetMuted(muted bool) error
	Muted() bool
}

// Materializer hands a credential to the transport exactly once.
type Materializer struct {
	transport Transport

	mu     sync.Mutex
	conn   Connection
	closed bool
}

func NewMaterializer(transport Transport) *Materializer {
	return &Materializer{transport: transport}
}

// Materialize joins the media channel named by cred. Later calls return the
// same connection without a new join. A failed join may be retried.
func (m *Materializer) Materialize(ctx context.Context, cred *domain.Credential) (Connection, error) {
	if !cred.Valid() {
		return nil, ErrNoCredential
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.conn != nil {
		return m.conn, nil
	}

	logger.ExternalServiceCall("transport", "join", "channel", cred.ChannelName)
	conn, err := m.transport.Join(ctx, *cred)
	logger.ExternalServiceResult("transport", "join", err, "channel", cred.ChannelName)
	if err != nil {
		return nil, &TransportError{Op: "join", Err: err}
	}
	m.conn = conn
	return conn, nil
}

// Connection returns the joined connection, or nil.
func (m *Materializer) Connection() Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// Leave disconnects and prevents any further join.
func (m *Materializer) Leave(ctx context.Context) error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.closed = true
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Leave(ctx); err != nil {
		return &TransportError{Op: "leave", Err: err}
	}
	return nil
}
