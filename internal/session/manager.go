package session

import (
	"errors"
	"sync"
)

// ErrManagerShutdown is returned by Manager.Session after Shutdown.
var ErrManagerShutdown = errors.New("session: manager shut down")

// Factory builds the session owned by a Manager.
type Factory func() (*Session, error)

// Manager owns the single Session of a process. The session is created on
// first use and lives until Shutdown.
type Manager struct {
	factory Factory

	mu       sync.Mutex
	session  *Session
	shutdown bool
}

// NewManager creates a Manager that builds its session with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory}
}

// Session returns the managed session, creating it on the first call.
// A failed creation is not cached, so a later call tries again.
func (m *Manager) Session() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shutdown {
		return nil, ErrManagerShutdown
	}
	if m.session != nil {
		return m.session, nil
	}
	s, err := m.factory()
	if err != nil {
		return nil, err
	}
	m.session = s
	return s, nil
}

// Shutdown closes the managed session, if one was created. Later calls to
// Session fail with ErrManagerShutdown. Shutdown is idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	s := m.session
	m.session = nil
	m.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}
