package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"safepass-compliance/internal/app"
	"safepass-compliance/internal/domain"
	"safepass-compliance/internal/infra/memory"
)

type serviceFixture struct {
	svc      *app.QuizService
	store    *memory.LedgerStore
	sessions *memory.SessionStore
	clock    *testClock
}

func newServiceFixture(t *testing.T, bank []domain.Question) serviceFixture {
	t.Helper()
	store := memory.NewLedgerStore()
	signer, err := app.NewSigner("test-signing-key")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	clock := &testClock{now: testNow}
	ledger := app.NewComplianceLedger(store, signer, memory.NewSubmissionLock(time.Hour), nil, app.WithClock(clock.Now))
	engine := app.NewQuizEngineWithSource(30, func(int) int { return 0 }, clock.Now)
	questions := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(bank), time.Minute)
	sessions := memory.NewSessionStore()

	svc := app.NewQuizService(engine, ledger, questions, sessions, store, domain.NewRegionSet("MY", "PT", "SG"), nil)
	return serviceFixture{svc: svc, store: store, sessions: sessions, clock: clock}
}

func TestQuizServiceFullFlow(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, makeQuestions("MY", 5))

	if _, err := f.svc.RegisterProfile(ctx, domain.DriverProfile{ID: "d1", Name: " Aisyah ", EmployeeID: "E-1", Region: "my"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	instance, resumed, err := f.svc.Start(ctx, "d1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if resumed || len(instance.Questions) != 5 || instance.Region != "MY" {
		t.Fatalf("unexpected instance resumed=%v questions=%d region=%s", resumed, len(instance.Questions), instance.Region)
	}

	if _, err := f.svc.Submit(ctx, "d1"); !errors.Is(err, domain.ErrQuizIncomplete) {
		t.Fatalf("expected early submit to be rejected, got %v", err)
	}

	// 4 of 5 correct.
	for i, q := range instance.Questions {
		selected := q.CorrectOptionIndex
		if i == 2 {
			selected = (selected + 1) % len(q.Options)
		}
		outcome, err := f.svc.Answer(ctx, "d1", selected)
		if err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if outcome.Answer.IsCorrect != (i != 2) || outcome.CorrectOptionIndex != q.CorrectOptionIndex {
			t.Fatalf("unexpected outcome %d: %+v", i, outcome)
		}
		if outcome.Position != i+1 || outcome.Complete != (i == 4) {
			t.Fatalf("unexpected progress at %d: %+v", i, outcome)
		}
	}
	if _, err := f.svc.Answer(ctx, "d1", 0); !errors.Is(err, domain.ErrQuizAlreadyComplete) {
		t.Fatalf("expected complete quiz to reject answers, got %v", err)
	}

	result, err := f.svc.Submit(ctx, "d1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 80 || result.SafetyIndex != 80 {
		t.Fatalf("expected 80/80, got %+v", result)
	}
	if _, err := f.sessions.Get(ctx, "d1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session cleared, got %v", err)
	}

	status, err := f.svc.Status(ctx, "d1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.CompletedThisWeek || status.Profile.SafetyIndex != 80 || status.Week.Week != 43 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Profile.Name != "Aisyah" || status.Profile.LastQuizAt == nil {
		t.Fatalf("unexpected profile %+v", status.Profile)
	}

	history, _ := f.svc.History(ctx, "d1")
	if len(history) != 1 || len(history[0].Answers) != 5 {
		t.Fatalf("unexpected history %+v", history)
	}
	records, report, err := f.svc.Compliance(ctx, "d1")
	if err != nil || len(records) != 1 || report.Tampered {
		t.Fatalf("unexpected compliance %d %+v err=%v", len(records), report, err)
	}
}

func TestQuizServiceStartResumesSession(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, makeQuestions("MY", 3))
	registerDriver(t, f.store, "d1", "Aisyah", "MY")

	first, _, err := f.svc.Start(ctx, "d1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.svc.Answer(ctx, "d1", 0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	again, resumed, err := f.svc.Start(ctx, "d1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !resumed || again.ID != first.ID || again.Position != 1 {
		t.Fatalf("expected resumed instance at position 1, got resumed=%v id=%s position=%d", resumed, again.ID, again.Position)
	}

	if err := f.svc.Abandon(ctx, "d1"); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	fresh, resumed, err := f.svc.Start(ctx, "d1")
	if err != nil {
		t.Fatalf("start after abandon: %v", err)
	}
	if resumed || fresh.ID == first.ID || fresh.Position != 0 {
		t.Fatalf("expected a new instance after abandon")
	}
}

func TestQuizServiceStartErrors(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, makeQuestions("MY", 3))

	if _, _, err := f.svc.Start(ctx, "ghost"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected missing profile, got %v", err)
	}

	// SG is configured but the bank has nothing for it.
	registerDriver(t, f.store, "d2", "Wei", "SG")
	if _, _, err := f.svc.Start(ctx, "d2"); !errors.Is(err, domain.ErrNoQuestionsAvailable) {
		t.Fatalf("expected no questions, got %v", err)
	}

	// Profiles written around the service can carry a region that is not served.
	registerDriver(t, f.store, "d3", "Jan", "NL")
	if _, _, err := f.svc.Start(ctx, "d3"); !errors.Is(err, domain.ErrUnknownRegion) {
		t.Fatalf("expected unknown region, got %v", err)
	}
}

func TestRegisterProfileValidation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, nil)

	if _, err := f.svc.RegisterProfile(ctx, domain.DriverProfile{Name: "x", Region: "MY"}); !errors.Is(err, domain.ErrInvalidDriver) {
		t.Fatalf("expected invalid driver, got %v", err)
	}
	if _, err := f.svc.RegisterProfile(ctx, domain.DriverProfile{ID: "d1", Region: "XX"}); !errors.Is(err, domain.ErrUnknownRegion) {
		t.Fatalf("expected unknown region, got %v", err)
	}

	if err := f.store.UpdateSafetyIndex(ctx, "d1", 50); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected no profile yet, got %v", err)
	}
	registerDriver(t, f.store, "d1", "Aisyah", "MY")
	if err := f.store.UpdateSafetyIndex(ctx, "d1", 50); err != nil {
		t.Fatalf("set index: %v", err)
	}
	updated, err := f.svc.RegisterProfile(ctx, domain.DriverProfile{ID: "d1", Name: "Aisyah R", Region: "PT", SafetyIndex: 99})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Region != "PT" || updated.SafetyIndex != 50 {
		t.Fatalf("expected region change with index kept, got %+v", updated)
	}
}

func TestLeaderboardRanksAndStreams(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, makeQuestions("MY", 2))
	registerDriver(t, f.store, "a", "Amir", "MY")
	registerDriver(t, f.store, "b", "Badrul", "MY")
	registerDriver(t, f.store, "c", "Chong", "MY")
	registerDriver(t, f.store, "p", "Paulo", "PT")
	for id, index := range map[string]int{"a": 70, "b": 90, "c": 70, "p": 100} {
		if err := f.store.UpdateSafetyIndex(ctx, id, index); err != nil {
			t.Fatalf("set index %s: %v", id, err)
		}
	}

	lb, err := f.svc.Leaderboard(ctx, "MY", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	got := make([]string, 0, len(lb.Entries))
	for _, e := range lb.Entries {
		got = append(got, e.DriverID)
	}
	if len(got) != 3 || got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Fatalf("unexpected order %v", got)
	}
	if top, _ := f.svc.Leaderboard(ctx, "MY", 1); len(top.Entries) != 1 {
		t.Fatalf("expected limit to apply, got %d entries", len(top.Entries))
	}
	if _, err := f.svc.Leaderboard(ctx, "XX", 0); !errors.Is(err, domain.ErrUnknownRegion) {
		t.Fatalf("expected unknown region, got %v", err)
	}

	updates, cancel, err := f.svc.Subscribe(ctx, "MY")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	if initial := <-updates; len(initial.Entries) != 3 {
		t.Fatalf("expected initial snapshot, got %+v", initial)
	}

	if _, _, err := f.svc.Start(ctx, "c"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 2; i++ {
		current, _ := f.sessions.Get(ctx, "c")
		q, _ := current.CurrentQuestion()
		if _, err := f.svc.Answer(ctx, "c", q.CorrectOptionIndex); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}
	if _, err := f.svc.Submit(ctx, "c"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case next := <-updates:
		if next.Entries[0].DriverID != "c" || next.Entries[0].SafetyIndex != 100 || !next.Entries[0].Compliant {
			t.Fatalf("expected c on top after a perfect quiz, got %+v", next.Entries[0])
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for leaderboard update")
	}
}
