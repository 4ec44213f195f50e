package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one authenticated client. The TTL slides: any validated
// request pushes ExpiresAt forward.
type Session struct {
	ID        string    `json:"session_id"`
	ClientIP  string    `json:"client_ip"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrMaxUsers is returned when the concurrent session cap is hit.
var ErrMaxUsers = errors.New("maximum concurrent users reached")

// Manager holds the in-memory session table.
type Manager struct {
	sessions map[string]*Session
	ttl      time.Duration
	maxUsers int
	mu       sync.Mutex
	now      func() time.Time
}

func NewManager(ttl time.Duration, maxUsers int) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		maxUsers: maxUsers,
		now:      time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Create opens a new session for a client.
func (m *Manager) Create(clientIP string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxUsers > 0 && len(m.sessions) >= m.maxUsers {
		return nil, ErrMaxUsers
	}
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		ClientIP:  clientIP,
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[s.ID] = s
	return s, nil
}

// Touch validates a session and renews its TTL. Expired sessions are
// evicted on the spot.
func (m *Manager) Touch(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	now := m.now()
	if now.After(s.ExpiresAt) {
		delete(m.sessions, sessionID)
		return nil, false
	}
	s.LastSeen = now
	s.ExpiresAt = now.Add(m.ttl)
	return s, true
}

// Delete removes a session. Reports whether it existed.
func (m *Manager) Delete(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok
}

// Sweep evicts every expired session and returns how many went.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	evicted := 0
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// All returns a snapshot of the live sessions.
func (m *Manager) All() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		copied := *s
		out = append(out, &copied)
	}
	return out
}

// Count reports the live session count.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
