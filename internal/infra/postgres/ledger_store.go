package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"safepass-compliance/internal/app"
	"safepass-compliance/internal/domain"
)

// DBTX is satisfied by both the pool and a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// LedgerStore persists attempts, compliance records and profiles in Postgres.
type LedgerStore struct {
	pool *pgxpool.Pool
}

func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.LedgerTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &ledgerTx{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *LedgerStore) FetchAttemptScoresSince(ctx context.Context, driverID string, cutoff time.Time) ([]int, error) {
	return fetchAttemptScoresSince(ctx, s.pool, driverID, cutoff)
}

func (s *LedgerStore) UpdateSafetyIndex(ctx context.Context, driverID string, index int) error {
	return updateSafetyIndex(ctx, s.pool, driverID, index)
}

func (s *LedgerStore) FetchComplianceRecord(ctx context.Context, key domain.RecordKey) (domain.ComplianceRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, week_number, year, status, completed_at, score, signature
		FROM compliance_logs
		WHERE user_id = $1 AND week_number = $2 AND year = $3`,
		key.DriverID, key.Week.Week, key.Week.Year)
	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ComplianceRecord{}, domain.ErrRecordNotFound
	}
	if err != nil {
		return domain.ComplianceRecord{}, fmt.Errorf("fetch compliance record: %w", err)
	}
	return record, nil
}

func (s *LedgerStore) ListComplianceRecords(ctx context.Context, driverID string) ([]domain.ComplianceRecord, error) {
	return s.queryRecords(ctx, `
		SELECT user_id, week_number, year, status, completed_at, score, signature
		FROM compliance_logs
		WHERE user_id = $1
		ORDER BY year DESC, week_number DESC`, driverID)
}

func (s *LedgerStore) ListComplianceForWeek(ctx context.Context, week domain.ISOWeek) ([]domain.ComplianceRecord, error) {
	return s.queryRecords(ctx, `
		SELECT user_id, week_number, year, status, completed_at, score, signature
		FROM compliance_logs
		WHERE week_number = $1 AND year = $2
		ORDER BY user_id`, week.Week, week.Year)
}

func (s *LedgerStore) queryRecords(ctx context.Context, sql string, args ...interface{}) ([]domain.ComplianceRecord, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list compliance records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ComplianceRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan compliance record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *LedgerStore) ListAttempts(ctx context.Context, driverID string) ([]domain.QuizAttempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, user_id, completed_at, score, answers, week_number, year
		FROM quiz_attempts
		WHERE user_id = $1
		ORDER BY completed_at DESC`, driverID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]domain.QuizAttempt, 0)
	for rows.Next() {
		var (
			a   domain.QuizAttempt
			raw []byte
		)
		if err := rows.Scan(&a.ID, &a.DriverID, &a.CompletedAt, &a.Score, &raw, &a.WeekNumber, &a.Year); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(raw, &a.Answers); err != nil {
			return nil, fmt.Errorf("unmarshal answers: %w", err)
		}
		a.CompletedAt = a.CompletedAt.UTC()
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

const profileColumns = `
	p.id, p.name, p.employee_id, p.region, p.safety_index,
	(SELECT max(a.completed_at) FROM quiz_attempts a WHERE a.user_id = p.id)`

func (s *LedgerStore) GetProfile(ctx context.Context, driverID string) (domain.DriverProfile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles p WHERE p.id = $1`, driverID)
	profile, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DriverProfile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.DriverProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (s *LedgerStore) UpsertProfile(ctx context.Context, profile domain.DriverProfile) (domain.DriverProfile, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, name, employee_id, region)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			employee_id = EXCLUDED.employee_id,
			region = EXCLUDED.region`,
		profile.ID, profile.Name, profile.EmployeeID, string(profile.Region))
	if err != nil {
		return domain.DriverProfile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return s.GetProfile(ctx, profile.ID)
}

func (s *LedgerStore) ListProfiles(ctx context.Context, region domain.Region) ([]domain.DriverProfile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM profiles p
		WHERE $1 = '' OR p.region = $1
		ORDER BY p.id`, string(region))
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]domain.DriverProfile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

type ledgerTx struct {
	db DBTX
}

func (t *ledgerTx) InsertQuizAttempt(ctx context.Context, attempt domain.QuizAttempt) (domain.QuizAttempt, error) {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("marshal answers: %w", err)
	}
	err = t.db.QueryRow(ctx, `
		INSERT INTO quiz_attempts (user_id, completed_at, score, answers, week_number, year)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, completed_at`,
		attempt.DriverID, attempt.CompletedAt, attempt.Score, answers, attempt.WeekNumber, attempt.Year,
	).Scan(&attempt.ID, &attempt.CompletedAt)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	attempt.CompletedAt = attempt.CompletedAt.UTC()
	return attempt, nil
}

func (t *ledgerTx) UpsertComplianceRecord(ctx context.Context, record domain.ComplianceRecord) error {
	_, err := t.db.Exec(ctx, `
		INSERT INTO compliance_logs (user_id, week_number, year, status, completed_at, score, signature)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, week_number, year) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			score = EXCLUDED.score,
			signature = EXCLUDED.signature`,
		record.DriverID, record.WeekNumber, record.Year, string(record.Status), record.CompletedAt, record.Score, record.Signature)
	return err
}

func (t *ledgerTx) InsertComplianceRecordIfAbsent(ctx context.Context, record domain.ComplianceRecord) (bool, error) {
	tag, err := t.db.Exec(ctx, `
		INSERT INTO compliance_logs (user_id, week_number, year, status, completed_at, score, signature)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, week_number, year) DO NOTHING`,
		record.DriverID, record.WeekNumber, record.Year, string(record.Status), record.CompletedAt, record.Score, record.Signature)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *ledgerTx) FetchAttemptScoresSince(ctx context.Context, driverID string, cutoff time.Time) ([]int, error) {
	return fetchAttemptScoresSince(ctx, t.db, driverID, cutoff)
}

func (t *ledgerTx) UpdateSafetyIndex(ctx context.Context, driverID string, index int) error {
	return updateSafetyIndex(ctx, t.db, driverID, index)
}

func fetchAttemptScoresSince(ctx context.Context, db DBTX, driverID string, cutoff time.Time) ([]int, error) {
	rows, err := db.Query(ctx, `
		SELECT score FROM quiz_attempts
		WHERE user_id = $1 AND completed_at >= $2`, driverID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("fetch attempt scores: %w", err)
	}
	defer rows.Close()

	scores := make([]int, 0)
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

func updateSafetyIndex(ctx context.Context, db DBTX, driverID string, index int) error {
	tag, err := db.Exec(ctx, `UPDATE profiles SET safety_index = $2 WHERE id = $1`, driverID, index)
	if err != nil {
		return fmt.Errorf("update safety index: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (domain.ComplianceRecord, error) {
	var (
		r           domain.ComplianceRecord
		status      string
		completedAt *time.Time
		score       *int
	)
	if err := row.Scan(&r.DriverID, &r.WeekNumber, &r.Year, &status, &completedAt, &score, &r.Signature); err != nil {
		return domain.ComplianceRecord{}, err
	}
	r.Status = domain.ComplianceStatus(status)
	if completedAt != nil {
		at := completedAt.UTC()
		r.CompletedAt = &at
	}
	r.Score = score
	return r, nil
}

func scanProfile(row pgx.Row) (domain.DriverProfile, error) {
	var (
		p          domain.DriverProfile
		region     string
		lastQuizAt *time.Time
	)
	if err := row.Scan(&p.ID, &p.Name, &p.EmployeeID, &region, &p.SafetyIndex, &lastQuizAt); err != nil {
		return domain.DriverProfile{}, err
	}
	p.Region = domain.Region(region)
	if lastQuizAt != nil {
		at := lastQuizAt.UTC()
		p.LastQuizAt = &at
	}
	return p, nil
}
