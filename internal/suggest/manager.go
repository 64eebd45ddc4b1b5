package suggest

import (
	"sync"
)

// Manager tracks the field sessions of one form. Ending the form closes
// every field still mounted.
type Manager struct {
	engine   *Engine
	sessions map[string]*FieldSession
	mu       sync.RWMutex
	closed   bool
}

// Open mounts a field and registers it with the manager.
func (m *Manager) Open(fieldID, initial string, handler EventHandler) (*FieldSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrFormClosed
	}

	s := m.engine.Open(fieldID, initial, handler)
	m.sessions[s.ID()] = s
	return s, nil
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*FieldSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close unmounts the session with id.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	return s.Close()
}

// Len returns the number of mounted sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll unmounts every session and rejects further Opens.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*FieldSession)
	m.closed = true
	m.mu.Unlock()

	for _, s := range sessions {
		_ = s.Close()
	}
}
