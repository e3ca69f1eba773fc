package bot

import (
	"context"
	"sync"

	"github.com/desertthunder/tunebox/internal/models"
)

// SessionStore persists conversation sessions by user id.
type SessionStore interface {
	// Get returns the user's session, or a new idle session when none is stored.
	Get(ctx context.Context, user models.UserID) (*models.Session, error)
	// Save stores the session, replacing any previous one.
	Save(ctx context.Context, session *models.Session) error
}

// MemoryStore is an in-process [SessionStore]. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[models.UserID]*models.Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[models.UserID]*models.Session)}
}

func (m *MemoryStore) Get(ctx context.Context, user models.UserID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[user]; ok {
		return s.Clone(), nil
	}
	return models.NewSession(user), nil
}

func (m *MemoryStore) Save(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.UserID] = session.Clone()
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
