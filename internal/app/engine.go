package app

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"safepass-compliance/internal/domain"
)

// QuizEngine builds quiz instances and records answers. It holds no session state.
type QuizEngine struct {
	sampleSize int
	intn       func(n int) int
	now        func() time.Time
	newID      func() string
}

// NewQuizEngine returns an engine drawing sampleSize questions per quiz; values <= 0 use the default.
func NewQuizEngine(sampleSize int) *QuizEngine {
	return NewQuizEngineWithSource(sampleSize, rand.IntN, time.Now)
}

// NewQuizEngineWithSource is used by tests for deterministic shuffles and timestamps.
// intn must return a uniform value in [0, n).
func NewQuizEngineWithSource(sampleSize int, intn func(n int) int, now func() time.Time) *QuizEngine {
	if sampleSize <= 0 {
		sampleSize = domain.DefaultSampleSize
	}
	return &QuizEngine{
		sampleSize: sampleSize,
		intn:       intn,
		now:        now,
		newID:      uuid.NewString,
	}
}

// SampleSize returns the configured quiz length cap.
func (e *QuizEngine) SampleSize() int {
	return e.sampleSize
}

// BuildQuiz draws min(sampleSize, len(questions)) distinct questions in uniformly random order.
func (e *QuizEngine) BuildQuiz(driverID string, region domain.Region, questions []domain.Question) (domain.QuizInstance, error) {
	if len(questions) == 0 {
		return domain.QuizInstance{}, fmt.Errorf("%w: %s", domain.ErrNoQuestionsAvailable, region)
	}
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return domain.QuizInstance{}, err
		}
	}

	pool := make([]domain.Question, len(questions))
	copy(pool, questions)

	k := min(e.sampleSize, len(pool))
	// Partial Fisher-Yates: position i is filled uniformly from the not yet drawn tail.
	for i := 0; i < k; i++ {
		j := i + e.intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return domain.QuizInstance{
		ID:        e.newID(),
		DriverID:  driverID,
		Region:    region,
		Questions: pool[:k:k],
		Position:  0,
		Answers:   []domain.Answer{},
		StartedAt: e.now().UTC(),
	}, nil
}

// RecordAnswer returns a copy of the instance with the current question answered and position advanced.
func (e *QuizEngine) RecordAnswer(instance domain.QuizInstance, selectedOptionIndex int) (domain.QuizInstance, error) {
	question, ok := instance.CurrentQuestion()
	if !ok {
		return instance, domain.ErrQuizAlreadyComplete
	}
	if selectedOptionIndex < 0 || selectedOptionIndex >= len(question.Options) {
		return instance, fmt.Errorf("%w: %d not in [0,%d)", domain.ErrInvalidAnswerIndex, selectedOptionIndex, len(question.Options))
	}

	answers := make([]domain.Answer, len(instance.Answers), len(instance.Answers)+1)
	copy(answers, instance.Answers)
	answers = append(answers, domain.Answer{
		QuestionID:          question.ID,
		SelectedOptionIndex: selectedOptionIndex,
		IsCorrect:           selectedOptionIndex == question.CorrectOptionIndex,
	})

	next := instance
	next.Answers = answers
	next.Position = instance.Position + 1
	return next, nil
}

// IsComplete reports whether every question has been answered.
func IsComplete(instance domain.QuizInstance) bool {
	return instance.Position == len(instance.Questions)
}

// InstanceScore scores the answers recorded so far.
func InstanceScore(instance domain.QuizInstance) int {
	return Score(instance.Answers)
}
