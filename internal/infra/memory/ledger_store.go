package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"safepass-compliance/internal/app"
	"safepass-compliance/internal/domain"
)

// LedgerStore is an in-memory implementation of app.LedgerStore.
// WithinTx works on a copy of the state that replaces the live state only when fn succeeds.
type LedgerStore struct {
	mu    sync.RWMutex
	state ledgerState
}

type ledgerState struct {
	attempts []domain.QuizAttempt
	records  map[domain.RecordKey]domain.ComplianceRecord
	profiles map[string]domain.DriverProfile
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{state: ledgerState{
		records:  make(map[domain.RecordKey]domain.ComplianceRecord),
		profiles: make(map[string]domain.DriverProfile),
	}}
}

func (s ledgerState) clone() ledgerState {
	out := ledgerState{
		attempts: make([]domain.QuizAttempt, len(s.attempts)),
		records:  make(map[domain.RecordKey]domain.ComplianceRecord, len(s.records)),
		profiles: make(map[string]domain.DriverProfile, len(s.profiles)),
	}
	copy(out.attempts, s.attempts)
	for k, v := range s.records {
		out.records[k] = v
	}
	for k, v := range s.profiles {
		out.profiles[k] = v
	}
	return out
}

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &ledgerTx{state: s.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *LedgerStore) FetchAttemptScoresSince(_ context.Context, driverID string, cutoff time.Time) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.scoresSince(driverID, cutoff), nil
}

func (s *LedgerStore) UpdateSafetyIndex(_ context.Context, driverID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.updateSafetyIndex(driverID, index)
}

func (s *LedgerStore) FetchComplianceRecord(_ context.Context, key domain.RecordKey) (domain.ComplianceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.state.records[key]
	if !ok {
		return domain.ComplianceRecord{}, domain.ErrRecordNotFound
	}
	return record, nil
}

func (s *LedgerStore) ListComplianceRecords(_ context.Context, driverID string) ([]domain.ComplianceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ComplianceRecord, 0)
	for key, record := range s.state.records {
		if key.DriverID == driverID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].WeekNumber > out[j].WeekNumber
	})
	return out, nil
}

func (s *LedgerStore) ListComplianceForWeek(_ context.Context, week domain.ISOWeek) ([]domain.ComplianceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ComplianceRecord, 0)
	for key, record := range s.state.records {
		if key.Week == week {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out, nil
}

func (s *LedgerStore) ListAttempts(_ context.Context, driverID string) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizAttempt, 0)
	for _, a := range s.state.attempts {
		if a.DriverID == driverID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

func (s *LedgerStore) GetProfile(_ context.Context, driverID string) (domain.DriverProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.state.profiles[driverID]
	if !ok {
		return domain.DriverProfile{}, domain.ErrProfileNotFound
	}
	return s.state.withLastQuiz(profile), nil
}

func (s *LedgerStore) UpsertProfile(_ context.Context, profile domain.DriverProfile) (domain.DriverProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.state.profiles[profile.ID]; ok {
		profile.SafetyIndex = existing.SafetyIndex
	} else {
		profile.SafetyIndex = 0
	}
	profile.LastQuizAt = nil
	s.state.profiles[profile.ID] = profile
	return s.state.withLastQuiz(profile), nil
}

func (s *LedgerStore) ListProfiles(_ context.Context, region domain.Region) ([]domain.DriverProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DriverProfile, 0, len(s.state.profiles))
	for _, p := range s.state.profiles {
		if region == "" || p.Region == region {
			out = append(out, s.state.withLastQuiz(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// AttemptCount returns how many attempts are stored, for tests and diagnostics.
func (s *LedgerStore) AttemptCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.attempts)
}

// PutComplianceRecord overwrites a stored record as-is, signature included.
// It exists so tests can simulate tampering with the backing store.
func (s *LedgerStore) PutComplianceRecord(record domain.ComplianceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.records[record.Key()] = record
}

func (s ledgerState) scoresSince(driverID string, cutoff time.Time) []int {
	scores := make([]int, 0)
	for _, a := range s.attempts {
		if a.DriverID == driverID && !a.CompletedAt.Before(cutoff) {
			scores = append(scores, a.Score)
		}
	}
	return scores
}

func (s ledgerState) updateSafetyIndex(driverID string, index int) error {
	profile, ok := s.profiles[driverID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	profile.SafetyIndex = index
	s.profiles[driverID] = profile
	return nil
}

func (s ledgerState) withLastQuiz(p domain.DriverProfile) domain.DriverProfile {
	var last *time.Time
	for i := range s.attempts {
		a := s.attempts[i]
		if a.DriverID == p.ID && (last == nil || a.CompletedAt.After(*last)) {
			at := a.CompletedAt
			last = &at
		}
	}
	p.LastQuizAt = last
	return p
}

type ledgerTx struct {
	state ledgerState
}

func (t *ledgerTx) InsertQuizAttempt(_ context.Context, attempt domain.QuizAttempt) (domain.QuizAttempt, error) {
	attempt.ID = uuid.NewString()
	answers := make([]domain.Answer, len(attempt.Answers))
	copy(answers, attempt.Answers)
	attempt.Answers = answers
	t.state.attempts = append(t.state.attempts, attempt)
	return attempt, nil
}

func (t *ledgerTx) UpsertComplianceRecord(_ context.Context, record domain.ComplianceRecord) error {
	t.state.records[record.Key()] = record
	return nil
}

func (t *ledgerTx) InsertComplianceRecordIfAbsent(_ context.Context, record domain.ComplianceRecord) (bool, error) {
	if _, ok := t.state.records[record.Key()]; ok {
		return false, nil
	}
	t.state.records[record.Key()] = record
	return true, nil
}

func (t *ledgerTx) FetchAttemptScoresSince(_ context.Context, driverID string, cutoff time.Time) ([]int, error) {
	return t.state.scoresSince(driverID, cutoff), nil
}

func (t *ledgerTx) UpdateSafetyIndex(_ context.Context, driverID string, index int) error {
	return t.state.updateSafetyIndex(driverID, index)
}
