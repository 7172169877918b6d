package memory

import (
	"context"
	"sync"
	"time"
)

// SubmissionLock keeps submission tokens in process memory.
// A token stays taken for ttl after Acquire unless released; ttl <= 0 keeps it forever.
type SubmissionLock struct {
	ttl   time.Duration
	clock func() time.Time

	mu     sync.Mutex
	tokens map[string]time.Time
}

func NewSubmissionLock(ttl time.Duration) *SubmissionLock {
	return &SubmissionLock{
		ttl:    ttl,
		clock:  time.Now,
		tokens: make(map[string]time.Time),
	}
}

func (l *SubmissionLock) Acquire(_ context.Context, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expiresAt, ok := l.tokens[token]; ok && (expiresAt.IsZero() || expiresAt.After(now)) {
		return false, nil
	}
	var expiresAt time.Time
	if l.ttl > 0 {
		expiresAt = now.Add(l.ttl)
	}
	l.tokens[token] = expiresAt
	l.pruneLocked(now)
	return true, nil
}

func (l *SubmissionLock) Release(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.tokens, token)
	return nil
}

func (l *SubmissionLock) pruneLocked(now time.Time) {
	for token, expiresAt := range l.tokens {
		if !expiresAt.IsZero() && !expiresAt.After(now) {
			delete(l.tokens, token)
		}
	}
}
