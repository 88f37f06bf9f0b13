package store

import (
	"context"
	"sync"
	"time"

	"github.com/leojay-net/chatshop/internal/util"
	"github.com/leojay-net/chatshop/pkg/domain"
)

// MemoryStore keeps sessions in-process. Used for tests and dev mode.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[sessionID]domain.ChatSession
	order    []sessionID
}

type sessionID struct {
	email string
	key   string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[sessionID]domain.ChatSession),
	}
}

// GetOrCreate returns or creates the session for (email, sessionKey).
func (m *MemoryStore) GetOrCreate(_ context.Context, email, sessionKey string) (domain.ChatSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sessionKey != "" {
		if existing, ok := m.sessions[sessionID{email, sessionKey}]; ok {
			return copySession(existing), false, nil
		}
	} else {
		sessionKey = util.NewSessionKey()
	}
	now := time.Now().UTC()
	session := domain.ChatSession{
		Email:      email,
		SessionKey: sessionKey,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	id := sessionID{email, sessionKey}
	m.sessions[id] = session
	m.order = append(m.order, id)
	return copySession(session), true, nil
}

// AppendMessage appends to an existing session's history.
func (m *MemoryStore) AppendMessage(_ context.Context, email, sessionKey string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := sessionID{email, sessionKey}
	session, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.History = append(session.History, msg)
	session.UpdatedAt = time.Now().UTC()
	m.sessions[id] = session
	return nil
}

// List returns matching sessions in creation order.
func (m *MemoryStore) List(_ context.Context, filter Filter) ([]domain.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.ChatSession
	for _, id := range m.order {
		session, ok := m.sessions[id]
		if !ok || !matches(session, filter) {
			continue
		}
		result = append(result, copySession(session))
	}
	return result, nil
}

// Delete removes matching sessions and reports the count.
func (m *MemoryStore) Delete(_ context.Context, filter Filter) (int64, error) {
	if filter.Empty() {
		return 0, ErrFilterRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	kept := m.order[:0]
	for _, id := range m.order {
		session, ok := m.sessions[id]
		if ok && matches(session, filter) {
			delete(m.sessions, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return deleted, nil
}

func matches(session domain.ChatSession, filter Filter) bool {
	if filter.Email != "" && session.Email != filter.Email {
		return false
	}
	if filter.SessionKey != "" && session.SessionKey != filter.SessionKey {
		return false
	}
	return true
}

// copySession clones history so callers cannot mutate stored state.
func copySession(session domain.ChatSession) domain.ChatSession {
	if len(session.History) > 0 {
		history := make([]domain.Message, len(session.History))
		copy(history, session.History)
		session.History = history
	}
	return session
}
