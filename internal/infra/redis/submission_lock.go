package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SubmissionLock stores submission tokens with SET NX so every instance of the service agrees
// on which submit of a quiz wins. Tokens expire after ttl; ttl <= 0 keeps them forever.
type SubmissionLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSubmissionLock(client *redis.Client, ttl time.Duration) *SubmissionLock {
	return &SubmissionLock{client: client, ttl: ttl}
}

func (l *SubmissionLock) Acquire(ctx context.Context, token string) (bool, error) {
	return l.client.SetNX(ctx, l.key(token), "1", l.ttl).Result()
}

func (l *SubmissionLock) Release(ctx context.Context, token string) error {
	return l.client.Del(ctx, l.key(token)).Err()
}

func (l *SubmissionLock) key(token string) string {
	return "quiz:submission:" + token
}
