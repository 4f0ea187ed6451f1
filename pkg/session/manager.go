package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Manager owns every live session.
type Manager struct {
	cfg  Config
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(cfg Config, deps Deps) *Manager {
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session with a fresh id.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	return m.start(ctx, uuid.NewString())
}

// Resume returns the live session for id, or rebuilds it from storage when
// the process has restarted since the session was created.
func (m *Manager) Resume(ctx context.Context, id string) (*Session, error) {
	if s, ok := m.Get(id); ok {
		return s, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", id, err)
	}
	return m.start(ctx, id)
}

func (m *Manager) start(ctx context.Context, id string) (*Session, error) {
	s := newSession(id, m.cfg, m.deps)
	if err := s.open(ctx); err != nil {
		s.Close()
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.Close()
		return existing, nil
	}
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.deps.Logger.WithFields(logrus.Fields{
		"session_id": id,
		"sessions":   count,
	}).Info("Session started")
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove closes and forgets the session. Its persisted wallet stays.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	m.deps.Logger.WithField("sessions", len(sessions)).Info("All sessions closed")
}
