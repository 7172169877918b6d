package app

import (
	"context"
	"time"

	"safepass-compliance/internal/domain"
)

// QuestionRepository returns the question bank of a region (from cache/backing store).
type QuestionRepository interface {
	QuestionsForRegion(ctx context.Context, region domain.Region) ([]domain.Question, error)
}

// SessionRepository abstracts where in-progress quiz instances live (in-memory, Redis, etc).
// There is at most one instance per driver.
type SessionRepository interface {
	Get(ctx context.Context, driverID string) (domain.QuizInstance, error)
	Save(ctx context.Context, instance domain.QuizInstance) error
	Delete(ctx context.Context, driverID string) error
}

// SubmissionLock hands out single-use tokens so a quiz instance is submitted at most once.
// Acquire returns false when the token is held or was already consumed by a successful submit.
type SubmissionLock interface {
	Acquire(ctx context.Context, token string) (bool, error)
	Release(ctx context.Context, token string) error
}

// SafetyIndexStore is the part of the persistence service the safety index recompute needs.
type SafetyIndexStore interface {
	FetchAttemptScoresSince(ctx context.Context, driverID string, cutoff time.Time) ([]int, error)
	UpdateSafetyIndex(ctx context.Context, driverID string, index int) error
}

// LedgerTx is the write side of a submission, scoped to one transaction.
type LedgerTx interface {
	SafetyIndexStore
	// InsertQuizAttempt stores a new attempt and returns it with its id assigned.
	InsertQuizAttempt(ctx context.Context, attempt domain.QuizAttempt) (domain.QuizAttempt, error)
	// UpsertComplianceRecord replaces any record with the same (driver, week, year) key.
	UpsertComplianceRecord(ctx context.Context, record domain.ComplianceRecord) error
	// InsertComplianceRecordIfAbsent never overwrites; it reports whether a row was written.
	InsertComplianceRecordIfAbsent(ctx context.Context, record domain.ComplianceRecord) (bool, error)
}

// ProfileStore reads and writes driver profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, driverID string) (domain.DriverProfile, error)
	// UpsertProfile writes identity fields and keeps the stored safety index.
	UpsertProfile(ctx context.Context, profile domain.DriverProfile) (domain.DriverProfile, error)
	// ListProfiles returns profiles of a region, or of every region when region is empty.
	ListProfiles(ctx context.Context, region domain.Region) ([]domain.DriverProfile, error)
}

// LedgerStore is the persistence collaborator of the compliance ledger.
type LedgerStore interface {
	SafetyIndexStore
	ProfileStore
	// WithinTx runs fn in a transaction; any error from fn rolls every write back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
	// FetchComplianceRecord returns domain.ErrRecordNotFound when no record exists for key.
	FetchComplianceRecord(ctx context.Context, key domain.RecordKey) (domain.ComplianceRecord, error)
	ListComplianceRecords(ctx context.Context, driverID string) ([]domain.ComplianceRecord, error)
	ListComplianceForWeek(ctx context.Context, week domain.ISOWeek) ([]domain.ComplianceRecord, error)
	// ListAttempts returns a driver's attempts, newest first.
	ListAttempts(ctx context.Context, driverID string) ([]domain.QuizAttempt, error)
}
