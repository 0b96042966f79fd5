package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/laddergame/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidGameID        = errors.New("invalid game ID")
	ErrInvalidSession       = errors.New("invalid session")
	ErrStaleUpdate          = errors.New("stale session update")
)

// Manager keeps one session record per game. Records are replaced, never
// mutated in place, so readers can hold a record without locking.
type Manager struct {
	sessions map[int64]*service.Session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewManager creates a new session manager
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[int64]*service.Session),
		now:      time.Now,
	}
}

// Create stores a new session. It fails if the game id is already in use.
func (m *Manager) Create(sess *service.Session) error {
	if err := validate(sess); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sess.GameID]; exists {
		return fmt.Errorf("%w: %d", ErrSessionAlreadyExists, sess.GameID)
	}
	m.sessions[sess.GameID] = sess
	return nil
}

// TryGet returns the session of a game if present
func (m *Manager) TryGet(gameID int64) (*service.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[gameID]
	return sess, ok
}

// Get retrieves a session by game id
func (m *Manager) Get(gameID int64) (*service.Session, error) {
	if gameID <= 0 {
		return nil, ErrInvalidGameID
	}
	sess, ok := m.TryGet(gameID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Update replaces the stored record of a game. A record carrying an older
// turn sequence than the stored one is rejected with ErrStaleUpdate.
func (m *Manager) Update(next *service.Session) error {
	if err := validate(next); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.sessions[next.GameID]
	if !exists {
		return ErrSessionNotFound
	}
	if next.TurnSeq < cur.TurnSeq {
		return fmt.Errorf("%w: seq %d behind %d", ErrStaleUpdate, next.TurnSeq, cur.TurnSeq)
	}
	m.sessions[next.GameID] = next
	return nil
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Delete removes a session
func (m *Manager) Delete(gameID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[gameID]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, gameID)
	return nil
}

// CleanupExpired removes finished sessions that haven't been accessed in the
// given duration. Running games are left to the service, which has to
// finalize them first.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0

	for id, sess := range m.sessions {
		if sess.Finished && sess.LastAccessedAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func validate(sess *service.Session) error {
	switch {
	case sess == nil:
		return fmt.Errorf("%w: nil session", ErrInvalidSession)
	case sess.GameID <= 0:
		return ErrInvalidGameID
	case sess.Game == nil || sess.Board == nil:
		return fmt.Errorf("%w: game %d has no engine or board", ErrInvalidSession, sess.GameID)
	case len(sess.Players) == 0:
		return fmt.Errorf("%w: game %d has no players", ErrInvalidSession, sess.GameID)
	}
	return nil
}
