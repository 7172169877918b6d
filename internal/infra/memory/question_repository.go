package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"safepass-compliance/internal/domain"
)

// QuestionLoader fetches a region's questions from the question bank.
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, region domain.Region) ([]domain.Question, error)
}

// QuestionRepository caches region question banks with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[domain.Region]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.Region]cachedQuestions),
	}
}

func (r *QuestionRepository) QuestionsForRegion(ctx context.Context, region domain.Region) ([]domain.Question, error) {
	if qs, ok := r.cached(region); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(string(region), func() (interface{}, error) {
		if qs, ok := r.cached(region); ok {
			return qs, nil
		}

		questions, err := r.loader.LoadQuestions(ctx, region)
		if err != nil {
			return nil, err
		}
		// An empty bank is not cached so newly published questions show up immediately.
		if len(questions) == 0 || r.ttl <= 0 {
			return questions, nil
		}

		r.mu.Lock()
		r.cache[region] = cachedQuestions{
			questions: questions,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached bank of a region.
func (r *QuestionRepository) Invalidate(region domain.Region) {
	r.mu.Lock()
	delete(r.cache, region)
	r.mu.Unlock()
}

func (r *QuestionRepository) cached(region domain.Region) ([]domain.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[region]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return entry.questions, true
}

func (r *QuestionRepository) ttlWithJitterLocked() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves a fixed question bank (useful for tests/demos).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, region domain.Region) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(l.questions))
	for _, q := range l.questions {
		if q.AppliesTo(region) {
			out = append(out, q)
		}
	}
	return out, nil
}
