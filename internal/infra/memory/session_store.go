package memory

import (
	"context"
	"fmt"
	"sync"

	"olympia-live-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore with
// revision-checked updates.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.LiveSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domain.LiveSession)}
}

func (s *SessionStore) Create(_ context.Context, session domain.LiveSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists: %w", session.ID, domain.ErrConflict)
	}
	session.Revision = 1
	s.sessions[session.ID] = session
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.LiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.LiveSession{}, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	return session, nil
}

func (s *SessionStore) ByAccessCode(_ context.Context, code string) (domain.LiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.AccessCode == code && session.Status != domain.SessionEnded {
			return session, nil
		}
	}
	return domain.LiveSession{}, fmt.Errorf("access code %s: %w", code, domain.ErrNotFound)
}

func (s *SessionStore) ActiveByMatch(_ context.Context, matchID string) (domain.LiveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.sessions {
		if session.MatchID == matchID && session.Status != domain.SessionEnded {
			return session, nil
		}
	}
	return domain.LiveSession{}, fmt.Errorf("live session for match %s: %w", matchID, domain.ErrNotFound)
}

// Update is the compare-and-swap write: it refuses to apply a mutation based
// on a stale read, so two racing hosts cannot both win.
func (s *SessionStore) Update(_ context.Context, sessionID string, expectedRevision int64, session domain.LiveSession) (domain.LiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[sessionID]
	if !ok {
		return domain.LiveSession{}, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	if current.Revision != expectedRevision {
		return domain.LiveSession{}, fmt.Errorf("session %s revision %d, expected %d: %w",
			sessionID, current.Revision, expectedRevision, domain.ErrConflict)
	}
	session.ID = sessionID
	session.Revision = expectedRevision + 1
	s.sessions[sessionID] = session
	return session, nil
}
