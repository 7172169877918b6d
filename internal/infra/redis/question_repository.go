package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"safepass-compliance/internal/domain"
)

// QuestionLoader fetches a region's questions from the question bank.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, region domain.Region) ([]domain.Question, error)
}

// QuestionRepository caches region question banks in Redis and falls back to a loader on cache miss.
// Banks are stored as JSON: SET questions:{region} [...] EX ttl
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) QuestionsForRegion(ctx context.Context, region domain.Region) ([]domain.Question, error) {
	if qs, ok := r.fromCache(ctx, region); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(string(region), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := r.fromCache(ctx, region); ok {
			return qs, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, region)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return questions, nil
		}

		raw, err := json.Marshal(questions)
		if err != nil {
			return nil, fmt.Errorf("marshal questions: %w", err)
		}
		// A failed cache fill only costs a reload next time.
		_ = r.client.Set(ctx, r.key(region), raw, r.ttlWithJitter()).Err()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached bank of a region.
func (r *QuestionRepository) Invalidate(ctx context.Context, region domain.Region) error {
	return r.client.Del(ctx, r.key(region)).Err()
}

func (r *QuestionRepository) fromCache(ctx context.Context, region domain.Region) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, r.key(region)).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil || len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

func (r *QuestionRepository) key(region domain.Region) string {
	return "questions:" + string(region)
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
