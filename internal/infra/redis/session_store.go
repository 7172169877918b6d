package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"safepass-compliance/internal/domain"
)

// SessionStore keeps each driver's quiz in progress as JSON under quiz:session:{driverID}.
// A positive ttl doubles as the abandonment policy: a quiz untouched for ttl disappears.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, driverID string) (domain.QuizInstance, error) {
	raw, err := s.client.Get(ctx, s.key(driverID)).Bytes()
	if isNil(err) {
		return domain.QuizInstance{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizInstance{}, fmt.Errorf("get session: %w", err)
	}
	var instance domain.QuizInstance
	if err := json.Unmarshal(raw, &instance); err != nil {
		return domain.QuizInstance{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return instance, nil
}

func (s *SessionStore) Save(ctx context.Context, instance domain.QuizInstance) error {
	raw, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, s.key(instance.DriverID), raw, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, driverID string) error {
	return s.client.Del(ctx, s.key(driverID)).Err()
}

func (s *SessionStore) key(driverID string) string {
	return "quiz:session:" + driverID
}
