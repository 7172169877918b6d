package memory

import (
	"context"
	"sync"

	"safepass-compliance/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions never expire here; abandonment is handled by the Redis store's TTL.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.QuizInstance
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.QuizInstance),
	}
}

func (s *SessionStore) Get(_ context.Context, driverID string) (domain.QuizInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	instance, ok := s.sessions[driverID]
	if !ok {
		return domain.QuizInstance{}, domain.ErrSessionNotFound
	}
	return instance, nil
}

func (s *SessionStore) Save(_ context.Context, instance domain.QuizInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[instance.DriverID] = instance
	return nil
}

func (s *SessionStore) Delete(_ context.Context, driverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, driverID)
	return nil
}
