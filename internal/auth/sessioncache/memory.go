package sessioncache

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "legitid/pkg/domain"
	"legitid/pkg/platform/sentinel"
)

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// InMemory is the default session registry for single-process deployments
// and tests. Expired entries are dropped lazily on read.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]memoryEntry
}

// NewInMemory constructs an empty in-memory session registry.
func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[id.SessionID]memoryEntry)}
}

func (m *InMemory) Put(_ context.Context, sessionID id.SessionID, session Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = memoryEntry{
		session:   session,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *InMemory) Get(_ context.Context, sessionID id.SessionID) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrNotFound)
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return nil, fmt.Errorf("session %s expired: %w", sessionID, sentinel.ErrNotFound)
	}

	session := entry.session
	return &session, nil
}

func (m *InMemory) IsActive(ctx context.Context, sessionID id.SessionID) (bool, error) {
	_, err := m.Get(ctx, sessionID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (m *InMemory) Remove(_ context.Context, sessionID id.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}
