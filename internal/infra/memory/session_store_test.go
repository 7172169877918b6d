package memory

import (
	"context"
	"errors"
	"testing"

	"safepass-compliance/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	if _, err := store.Get(ctx, "d1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}

	instance := domain.QuizInstance{ID: "quiz-1", DriverID: "d1", Questions: sampleQuestions()[:1]}
	if err := store.Save(ctx, instance); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, "d1")
	if err != nil || got.ID != "quiz-1" {
		t.Fatalf("expected stored session, got %+v err=%v", got, err)
	}

	if err := store.Delete(ctx, "d1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "d1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
}
