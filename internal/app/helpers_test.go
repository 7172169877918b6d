package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"safepass-compliance/internal/app"
	"safepass-compliance/internal/domain"
	"safepass-compliance/internal/infra/memory"
)

// monday 2026-10-19 is the first day of ISO week 43.
var testNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type ledgerFixture struct {
	store  *memory.LedgerStore
	ledger *app.ComplianceLedger
	signer *app.Signer
	clock  *testClock
}

func newLedgerFixture(t *testing.T, store app.LedgerStore) ledgerFixture {
	t.Helper()
	mem := memory.NewLedgerStore()
	if store == nil {
		store = mem
	} else if fs, ok := store.(*failingStore); ok {
		mem = fs.LedgerStore
	}
	signer, err := app.NewSigner("test-signing-key")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	clock := &testClock{now: testNow}
	ledger := app.NewComplianceLedger(store, signer, memory.NewSubmissionLock(0), nil, app.WithClock(clock.Now))
	return ledgerFixture{store: mem, ledger: ledger, signer: signer, clock: clock}
}

func registerDriver(t *testing.T, store app.ProfileStore, id, name string, region domain.Region) {
	t.Helper()
	if _, err := store.UpsertProfile(context.Background(), domain.DriverProfile{ID: id, Name: name, Region: region}); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
}

func answersWith(correct, total int) []domain.Answer {
	out := make([]domain.Answer, total)
	for i := range out {
		out[i] = domain.Answer{QuestionID: "q", SelectedOptionIndex: 0, IsCorrect: i < correct}
	}
	return out
}

// failingStore wraps the memory store and fails chosen steps while failing is set.
type failingStore struct {
	*memory.LedgerStore
	mu        sync.Mutex
	failing   bool
	upsertErr error
	fetchErr  error
}

func newFailingStore() *failingStore {
	return &failingStore{LedgerStore: memory.NewLedgerStore()}
}

func (s *failingStore) setFailing(v bool) {
	s.mu.Lock()
	s.failing = v
	s.mu.Unlock()
}

func (s *failingStore) isFailing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failing
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.LedgerTx) error) error {
	return s.LedgerStore.WithinTx(ctx, func(ctx context.Context, tx app.LedgerTx) error {
		if s.isFailing() && s.upsertErr != nil {
			tx = failingTx{LedgerTx: tx, err: s.upsertErr}
		}
		return fn(ctx, tx)
	})
}

func (s *failingStore) FetchComplianceRecord(ctx context.Context, key domain.RecordKey) (domain.ComplianceRecord, error) {
	if s.isFailing() && s.fetchErr != nil {
		return domain.ComplianceRecord{}, s.fetchErr
	}
	return s.LedgerStore.FetchComplianceRecord(ctx, key)
}

type failingTx struct {
	app.LedgerTx
	err error
}

func (t failingTx) UpsertComplianceRecord(context.Context, domain.ComplianceRecord) error {
	return t.err
}

var errStoreDown = errors.New("store unavailable")
