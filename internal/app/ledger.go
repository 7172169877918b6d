package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"safepass-compliance/internal/domain"
)

// DefaultSafetyWindow is the trailing window the safety index averages over.
const DefaultSafetyWindow = 90 * 24 * time.Hour

// SubmitResult is what a successful submission hands back to the caller.
type SubmitResult struct {
	Score       int                     `json:"score"`
	Attempt     domain.QuizAttempt      `json:"attempt"`
	Record      domain.ComplianceRecord `json:"record"`
	SafetyIndex int                     `json:"safetyIndex"`
}

// IntegrityReport is the outcome of verifying a set of compliance records.
type IntegrityReport struct {
	Checked   int               `json:"checked"`
	Tampered  bool              `json:"tampered"`
	Offending *domain.RecordKey `json:"-"`
}

// Err returns ErrIntegrityViolation naming the first bad record, or nil.
func (r IntegrityReport) Err() error {
	if !r.Tampered {
		return nil
	}
	if r.Offending == nil {
		return domain.ErrIntegrityViolation
	}
	return fmt.Errorf("%w: driver %s week %s", domain.ErrIntegrityViolation, r.Offending.DriverID, r.Offending.Week)
}

// LedgerOption customizes a ComplianceLedger.
type LedgerOption func(*ComplianceLedger)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *ComplianceLedger) { l.now = now }
}

// WithSafetyWindow overrides the 90 day safety index window.
func WithSafetyWindow(window time.Duration) LedgerOption {
	return func(l *ComplianceLedger) {
		if window > 0 {
			l.window = window
		}
	}
}

// ComplianceLedger turns finished quizzes into attempts and signed weekly compliance records.
type ComplianceLedger struct {
	store  LedgerStore
	signer *Signer
	locks  SubmissionLock
	logger *zap.Logger
	window time.Duration
	now    func() time.Time
}

func NewComplianceLedger(store LedgerStore, signer *Signer, locks SubmissionLock, logger *zap.Logger, opts ...LedgerOption) *ComplianceLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &ComplianceLedger{
		store:  store,
		signer: signer,
		locks:  locks,
		logger: logger,
		window: DefaultSafetyWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CurrentWeek returns the ISO week submissions made now are filed under.
func (l *ComplianceLedger) CurrentWeek() domain.ISOWeek {
	return domain.WeekOf(l.now())
}

// Submit records a finished quiz. The attempt insert, compliance upsert and safety index
// update happen in one transaction; any failure is returned wrapped in ErrSubmissionFailed.
func (l *ComplianceLedger) Submit(ctx context.Context, driverID string, answers []domain.Answer) (SubmitResult, error) {
	if driverID == "" {
		return SubmitResult{}, domain.ErrInvalidDriver
	}

	score := Score(answers)
	now := l.now().UTC().Truncate(time.Second)
	week := domain.WeekOf(now)

	stored := make([]domain.Answer, len(answers))
	copy(stored, answers)

	var result SubmitResult
	err := l.store.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		attempt, err := tx.InsertQuizAttempt(ctx, domain.QuizAttempt{
			DriverID:    driverID,
			CompletedAt: now,
			Score:       score,
			Answers:     stored,
			WeekNumber:  week.Week,
			Year:        week.Year,
		})
		if err != nil {
			return fmt.Errorf("insert quiz attempt: %w", err)
		}

		record := domain.ComplianceRecord{
			DriverID:    driverID,
			WeekNumber:  week.Week,
			Year:        week.Year,
			Status:      domain.StatusCompliant,
			CompletedAt: &now,
			Score:       &score,
		}
		if record.Signature, err = l.signer.Sign(record); err != nil {
			return err
		}
		if err := tx.UpsertComplianceRecord(ctx, record); err != nil {
			return fmt.Errorf("upsert compliance record: %w", err)
		}

		index, _, err := recomputeSafetyIndex(ctx, tx, driverID, now, l.window)
		if err != nil {
			return fmt.Errorf("recompute safety index: %w", err)
		}

		result = SubmitResult{Score: score, Attempt: attempt, Record: record, SafetyIndex: index}
		return nil
	})
	if err != nil {
		l.logger.Error("quiz submission failed",
			zap.String("driver_id", driverID),
			zap.Stringer("week", week),
			zap.Error(err),
		)
		return SubmitResult{}, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}

	l.logger.Info("quiz submitted",
		zap.String("driver_id", driverID),
		zap.String("attempt_id", result.Attempt.ID),
		zap.Stringer("week", week),
		zap.Int("score", score),
		zap.Int("safety_index", result.SafetyIndex),
	)
	return result, nil
}

// SubmitQuiz submits a complete instance at most once. The instance id is the submission
// token: a concurrent or repeated call gets ErrDuplicateSubmission, a failed one frees it for retry.
func (l *ComplianceLedger) SubmitQuiz(ctx context.Context, instance domain.QuizInstance) (SubmitResult, error) {
	if !IsComplete(instance) {
		return SubmitResult{}, fmt.Errorf("%w: %d of %d answered", domain.ErrQuizIncomplete, instance.Position, len(instance.Questions))
	}

	acquired, err := l.locks.Acquire(ctx, instance.ID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("acquire submission token: %w", err)
	}
	if !acquired {
		return SubmitResult{}, domain.ErrDuplicateSubmission
	}

	result, err := l.Submit(ctx, instance.DriverID, instance.Answers)
	if err != nil {
		if rerr := l.locks.Release(context.WithoutCancel(ctx), instance.ID); rerr != nil {
			l.logger.Warn("release submission token", zap.String("quiz_id", instance.ID), zap.Error(rerr))
		}
		return SubmitResult{}, err
	}
	return result, nil
}

// RecomputeSafetyIndex averages the driver's scores in the trailing window and stores the result.
// With no attempts in the window the stored index is left alone and returned with updated=false.
func (l *ComplianceLedger) RecomputeSafetyIndex(ctx context.Context, driverID string) (int, bool, error) {
	index, updated, err := recomputeSafetyIndex(ctx, l.store, driverID, l.now().UTC(), l.window)
	if err != nil {
		return 0, false, err
	}
	if updated {
		return index, true, nil
	}

	profile, err := l.store.GetProfile(ctx, driverID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return profile.SafetyIndex, false, nil
}

func recomputeSafetyIndex(ctx context.Context, store SafetyIndexStore, driverID string, now time.Time, window time.Duration) (int, bool, error) {
	scores, err := store.FetchAttemptScoresSince(ctx, driverID, now.Add(-window))
	if err != nil {
		return 0, false, err
	}
	if len(scores) == 0 {
		return 0, false, nil
	}
	index := roundedMean(scores)
	if err := store.UpdateSafetyIndex(ctx, driverID, index); err != nil {
		return 0, false, err
	}
	return index, true, nil
}

// VerifyIntegrity checks every signature and stops at the first mismatch.
func (l *ComplianceLedger) VerifyIntegrity(records []domain.ComplianceRecord) IntegrityReport {
	report := IntegrityReport{}
	for _, record := range records {
		report.Checked++
		if !l.signer.Verify(record) {
			key := record.Key()
			report.Tampered = true
			report.Offending = &key
			l.logger.Warn("compliance record signature mismatch",
				zap.String("driver_id", record.DriverID),
				zap.Stringer("week", key.Week),
			)
			return report
		}
	}
	return report
}

// VerifyDriver loads a driver's compliance records and verifies them.
func (l *ComplianceLedger) VerifyDriver(ctx context.Context, driverID string) ([]domain.ComplianceRecord, IntegrityReport, error) {
	records, err := l.store.ListComplianceRecords(ctx, driverID)
	if err != nil {
		return nil, IntegrityReport{}, err
	}
	return records, l.VerifyIntegrity(records), nil
}

// HasCompletedCurrentWeek reports whether the driver has a COMPLIANT record for this ISO week.
func (l *ComplianceLedger) HasCompletedCurrentWeek(ctx context.Context, driverID string) (bool, error) {
	record, err := l.store.FetchComplianceRecord(ctx, domain.RecordKey{DriverID: driverID, Week: l.CurrentWeek()})
	if errors.Is(err, domain.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.Status == domain.StatusCompliant, nil
}

// MarkOverdue files a signed OVERDUE record for every driver without a record for week.
// Existing records, compliant or not, are never replaced. It returns how many were written.
func (l *ComplianceLedger) MarkOverdue(ctx context.Context, week domain.ISOWeek) (int, error) {
	if !week.Valid() {
		return 0, fmt.Errorf("invalid iso week %s", week)
	}
	profiles, err := l.store.ListProfiles(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}

	written := 0
	err = l.store.WithinTx(ctx, func(ctx context.Context, tx LedgerTx) error {
		for _, p := range profiles {
			record := domain.ComplianceRecord{
				DriverID:   p.ID,
				WeekNumber: week.Week,
				Year:       week.Year,
				Status:     domain.StatusOverdue,
			}
			sig, err := l.signer.Sign(record)
			if err != nil {
				return err
			}
			record.Signature = sig
			inserted, err := tx.InsertComplianceRecordIfAbsent(ctx, record)
			if err != nil {
				return fmt.Errorf("insert overdue record for %s: %w", p.ID, err)
			}
			if inserted {
				written++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.logger.Info("overdue sweep finished", zap.Stringer("week", week), zap.Int("marked", written))
	return written, nil
}

// Attempts returns the driver's quiz history, newest first.
func (l *ComplianceLedger) Attempts(ctx context.Context, driverID string) ([]domain.QuizAttempt, error) {
	return l.store.ListAttempts(ctx, driverID)
}

// SafetyIndex returns the stored index, 0 for a driver without a profile.
func (l *ComplianceLedger) SafetyIndex(ctx context.Context, driverID string) (int, error) {
	profile, err := l.store.GetProfile(ctx, driverID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return profile.SafetyIndex, nil
}
