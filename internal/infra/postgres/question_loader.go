package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"safepass-compliance/internal/domain"
)

// QuestionLoader loads the regional question bank from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, region domain.Region) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, text, options, correct_option_index, explanation, regions, category
		FROM questions
		WHERE $1 = ANY(regions)
		ORDER BY id`, string(region))
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q       domain.Question
			regions []string
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectOptionIndex, &q.Explanation, &regions, &q.Category); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Regions = toRegions(regions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

// UpsertQuestions writes questions keyed by id in one transaction.
func (l *QuestionLoader) UpsertQuestions(ctx context.Context, questions []domain.Question) (int, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return 0, err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO questions (id, text, options, correct_option_index, explanation, regions, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				text = EXCLUDED.text,
				options = EXCLUDED.options,
				correct_option_index = EXCLUDED.correct_option_index,
				explanation = EXCLUDED.explanation,
				regions = EXCLUDED.regions,
				category = EXCLUDED.category`,
			q.ID, q.Text, q.Options, q.CorrectOptionIndex, q.Explanation, fromRegions(q.Regions), q.Category)
		if err != nil {
			return 0, fmt.Errorf("upsert question %s: %w", q.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(questions), nil
}

func toRegions(codes []string) []domain.Region {
	out := make([]domain.Region, len(codes))
	for i, c := range codes {
		out[i] = domain.Region(c)
	}
	return out
}

func fromRegions(regions []domain.Region) []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = string(domain.ParseRegion(string(r)))
	}
	return out
}
