package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"safepass-compliance/internal/domain"
	"safepass-compliance/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(sampleQuestions())}
	repo := NewQuestionRepository(client, loader, time.Minute)

	qs, err := repo.QuestionsForRegion(context.Background(), "MY")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 1 || qs[0].ID != "q1" {
		t.Fatalf("unexpected questions %+v", qs)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("questions:MY") {
		t.Fatalf("expected redis key to be set")
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.QuestionsForRegion(context.Background(), "MY")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached) != 1 || cached[0].CorrectOptionIndex != 1 || len(cached[0].Options) != 2 {
		t.Fatalf("expected full question from cache, got %+v", cached)
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.QuestionsForRegion(context.Background(), "MY")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls=%d", loader.calls)
	}

	if err := repo.Invalidate(context.Background(), "MY"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("questions:MY") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestQuestionRepositorySkipsEmptyBank(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuestionRepository(newClient(mr), memory.NewStaticQuestionLoader(sampleQuestions()), time.Minute)
	qs, err := repo.QuestionsForRegion(context.Background(), "SG")
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	if len(qs) != 0 || mr.Exists("questions:SG") {
		t.Fatalf("expected empty bank to stay uncached")
	}
}

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, region domain.Region) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, region)
}

func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:                 "q1",
			Text:               "Minimum following distance in the wet?",
			Options:            []string{"2 seconds", "4 seconds"},
			CorrectOptionIndex: 1,
			Explanation:        "Double the dry-road gap.",
			Regions:            []domain.Region{"MY"},
			Category:           "distance",
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
