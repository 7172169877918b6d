package app_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"safepass-compliance/internal/app"
	"safepass-compliance/internal/domain"
)

func TestBuildQuizSamplesDistinctQuestions(t *testing.T) {
	engine := app.NewQuizEngine(30)
	bank := makeQuestions("MY", 50)

	instance, err := engine.BuildQuiz("d1", "MY", bank)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(instance.Questions) != 30 {
		t.Fatalf("expected 30 questions, got %d", len(instance.Questions))
	}
	inBank := make(map[string]bool, len(bank))
	for _, q := range bank {
		inBank[q.ID] = true
	}
	seen := make(map[string]bool)
	for _, q := range instance.Questions {
		if !inBank[q.ID] {
			t.Fatalf("question %s not from bank", q.ID)
		}
		if seen[q.ID] {
			t.Fatalf("question %s drawn twice", q.ID)
		}
		seen[q.ID] = true
	}
	if instance.Position != 0 || len(instance.Answers) != 0 || instance.ID == "" {
		t.Fatalf("expected fresh instance, got position=%d answers=%d id=%q", instance.Position, len(instance.Answers), instance.ID)
	}
	if bank[0].ID != "MY-00" {
		t.Fatalf("expected input bank untouched, got first %s", bank[0].ID)
	}
}

func TestBuildQuizDefaultsSampleSize(t *testing.T) {
	engine := app.NewQuizEngine(0)
	if engine.SampleSize() != domain.DefaultSampleSize {
		t.Fatalf("expected default sample size, got %d", engine.SampleSize())
	}
}

func TestBuildQuizWithoutQuestions(t *testing.T) {
	engine := app.NewQuizEngine(30)
	if _, err := engine.BuildQuiz("d1", "MY", nil); !errors.Is(err, domain.ErrNoQuestionsAvailable) {
		t.Fatalf("expected no questions error, got %v", err)
	}
}

func TestBuildQuizRejectsInvalidQuestion(t *testing.T) {
	engine := app.NewQuizEngine(30)
	bank := makeQuestions("MY", 3)
	bank[1].CorrectOptionIndex = 9
	if _, err := engine.BuildQuiz("d1", "MY", bank); !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected invalid question error, got %v", err)
	}
}

func TestBuildQuizOrderIsUniform(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	engine := app.NewQuizEngineWithSource(4, rng.IntN, time.Now)
	bank := makeQuestions("MY", 4)

	const trials = 20000
	counts := make(map[string][4]int)
	for i := 0; i < trials; i++ {
		instance, err := engine.BuildQuiz("d1", "MY", bank)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		for pos, q := range instance.Questions {
			c := counts[q.ID]
			c[pos]++
			counts[q.ID] = c
		}
	}

	expected := trials / 4
	for id, c := range counts {
		for pos, n := range c {
			if n < expected*9/10 || n > expected*11/10 {
				t.Fatalf("question %s at position %d seen %d times, expected about %d", id, pos, n, expected)
			}
		}
	}
}

func TestBuildQuizSampleIsUniform(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	engine := app.NewQuizEngineWithSource(2, rng.IntN, time.Now)
	bank := makeQuestions("PT", 5)

	const trials = 20000
	first := make(map[string]int)
	for i := 0; i < trials; i++ {
		instance, _ := engine.BuildQuiz("d1", "PT", bank)
		if len(instance.Questions) != 2 {
			t.Fatalf("expected 2 questions, got %d", len(instance.Questions))
		}
		first[instance.Questions[0].ID]++
	}
	expected := trials / 5
	for id, n := range first {
		if n < expected*9/10 || n > expected*11/10 {
			t.Fatalf("question %s led %d times, expected about %d", id, n, expected)
		}
	}
}

func TestRecordAnswer(t *testing.T) {
	engine := app.NewQuizEngineWithSource(2, func(int) int { return 0 }, time.Now)
	instance, err := engine.BuildQuiz("d1", "MY", makeQuestions("MY", 2))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := engine.RecordAnswer(instance, 4); !errors.Is(err, domain.ErrInvalidAnswerIndex) {
		t.Fatalf("expected invalid index, got %v", err)
	}
	if _, err := engine.RecordAnswer(instance, -1); !errors.Is(err, domain.ErrInvalidAnswerIndex) {
		t.Fatalf("expected invalid index for negative, got %v", err)
	}

	correct := instance.Questions[0].CorrectOptionIndex
	next, err := engine.RecordAnswer(instance, correct)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if instance.Position != 0 || len(instance.Answers) != 0 {
		t.Fatalf("expected original instance unchanged")
	}
	if next.Position != 1 || !next.Answers[0].IsCorrect || next.Answers[0].QuestionID != instance.Questions[0].ID {
		t.Fatalf("unexpected first answer %+v", next.Answers)
	}

	wrong := (instance.Questions[1].CorrectOptionIndex + 1) % len(instance.Questions[1].Options)
	done, err := engine.RecordAnswer(next, wrong)
	if err != nil {
		t.Fatalf("record 2: %v", err)
	}
	if !app.IsComplete(done) || done.Answers[1].IsCorrect {
		t.Fatalf("expected complete instance with a wrong second answer, got %+v", done)
	}
	if app.InstanceScore(done) != 50 {
		t.Fatalf("expected score 50, got %d", app.InstanceScore(done))
	}

	if _, err := engine.RecordAnswer(done, 0); !errors.Is(err, domain.ErrQuizAlreadyComplete) {
		t.Fatalf("expected already complete, got %v", err)
	}
}

func TestRegionWithFewerQuestionsThanSample(t *testing.T) {
	engine := app.NewQuizEngine(30)
	instance, err := engine.BuildQuiz("d1", "MY", makeQuestions("MY", 5))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(instance.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(instance.Questions))
	}
	for i := 0; i < 5; i++ {
		if app.IsComplete(instance) {
			t.Fatalf("complete after only %d answers", i)
		}
		instance, err = engine.RecordAnswer(instance, 0)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
	if !app.IsComplete(instance) {
		t.Fatalf("expected complete after 5 answers")
	}
}

func TestInstanceScoreWithoutAnswers(t *testing.T) {
	if got := app.InstanceScore(domain.QuizInstance{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func makeQuestions(region domain.Region, n int) []domain.Question {
	out := make([]domain.Question, n)
	for i := range out {
		out[i] = domain.Question{
			ID:                 fmt.Sprintf("%s-%02d", region, i),
			Text:               fmt.Sprintf("Question %d", i),
			Options:            []string{"a", "b", "c"},
			CorrectOptionIndex: i % 3,
			Explanation:        "because",
			Regions:            []domain.Region{region},
			Category:           "general",
		}
	}
	return out
}
