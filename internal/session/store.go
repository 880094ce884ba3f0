// Package session holds per-user conversational state. All read-modify-write
// operations are serialized per user id, so two near-simultaneous messages
// from the same user can never lose an update.
package session

import (
	"context"
	"sync"
	"time"

	"freres-bot/internal/models"
)

// Store is the session store contract. Update loads the session for a user
// (creating an idle one on first contact), runs fn on a private copy under a
// per-user lock, and persists the copy only if fn returns nil. Get returns a
// snapshot for read-only use.
type Store interface {
	Update(ctx context.Context, userID string, fn func(*models.Session) error) error
	Get(ctx context.Context, userID string) (*models.Session, error)
}

// MemoryStore is the in-process backend. Sessions are lost on restart, which
// is acceptable for single-instance deployments.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	locks    map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (m *MemoryStore) keyLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	return l
}

func (m *MemoryStore) load(userID string) *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return cloneSession(s)
	}
	return models.NewSession(userID)
}

func (m *MemoryStore) save(s *models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
}

// Update implements Store. The discarded copy on error keeps the stored
// session untouched when a handler fails mid-flight.
func (m *MemoryStore) Update(ctx context.Context, userID string, fn func(*models.Session) error) error {
	l := m.keyLock(userID)
	l.Lock()
	defer l.Unlock()

	s := m.load(userID)
	if err := fn(s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now()
	m.save(s)
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, userID string) (*models.Session, error) {
	return m.load(userID), nil
}

// cloneSession deep-copies a session so callers never alias stored slices.
func cloneSession(s *models.Session) *models.Session {
	out := *s
	out.PendingCategories = append([]string(nil), s.PendingCategories...)
	out.CategoryProducts = append([]models.Product(nil), s.CategoryProducts...)
	out.Cart = append([]models.CartItem(nil), s.Cart...)
	return &out
}
