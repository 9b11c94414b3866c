package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore provides in-memory conversation storage, used in tests and
// single-process development setups.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
	appends  int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Turn)}
}

// Append adds a turn to a session.
func (m *MemoryStore) Append(_ context.Context, turn *Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	m.sessions[turn.SessionID] = append(m.sessions[turn.SessionID], *turn)
	m.appends++
	return nil
}

// ListTurns returns a session's turns ordered by insertion.
func (m *MemoryStore) ListTurns(_ context.Context, sessionID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := m.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// AppendCount reports how many turns have been written in total.
func (m *MemoryStore) AppendCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appends
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
