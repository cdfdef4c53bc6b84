package session

import (
	"context"
	"sync"
	"time"

	"github.com/terra-clan/studio-engine/internal/models"
)

// Store persists visitor sessions by token.
// Load returns nil, nil for an unknown token and may return expired sessions;
// the manager decides what expired means.
type Store interface {
	Save(ctx context.Context, s *models.Session) error
	Load(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
	// Expired lists tokens of sessions that expired before now
	Expired(ctx context.Context, now time.Time) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]models.Session),
	}
}

// Save stores a copy of s
func (m *MemoryStore) Save(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = *s
	return nil
}

// Load returns a copy of the stored session
func (m *MemoryStore) Load(ctx context.Context, token string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Delete removes a session. Unknown tokens are ignored.
func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// Expired lists tokens past their expiry
func (m *MemoryStore) Expired(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tokens []string
	for token, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

// Len returns the number of stored sessions
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// HealthCheck always succeeds
func (m *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}
