package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"safepass-compliance/internal/app"
	"safepass-compliance/internal/config"
	"safepass-compliance/internal/domain"
	"safepass-compliance/internal/infra/memory"
	"safepass-compliance/internal/infra/postgres"
	redisinfra "safepass-compliance/internal/infra/redis"
	"safepass-compliance/internal/logger"
	"safepass-compliance/internal/questionbank"
)

// components is everything a command may need, built from one config.
type components struct {
	cfg       config.Config
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redis.Client
	store     app.LedgerStore
	questions app.QuestionRepository
	ledger    *app.ComplianceLedger
	service   *app.QuizService
}

func (c *components) Close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.pool != nil {
		c.pool.Close()
	}
	_ = c.logger.Sync()
}

func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// buildComponents wires Postgres and Redis when configured and falls back to memory otherwise.
func buildComponents(ctx context.Context, cfg config.Config, log *zap.Logger) (*components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &components{cfg: cfg, logger: log}

	if cfg.Redis.Addr != "" {
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := c.redis.Ping(ctx).Err(); err != nil {
			c.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	var loader memory.QuestionLoader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.pool = pool
		c.store = postgres.NewLedgerStore(pool)
		loader = postgres.NewQuestionLoader(pool)
	} else {
		log.Warn("postgres not configured, ledger is kept in memory")
		bank, err := questionbank.Load(cfg.Quiz.BankPath)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("load question bank: %w", err)
		}
		c.store = memory.NewLedgerStore()
		loader = memory.NewStaticQuestionLoader(bank)
	}

	questionTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	sessionTTL := config.TTLDuration(cfg.Quiz.SessionTTL, 24*time.Hour)
	submissionTTL := config.TTLDuration(cfg.Ledger.SubmissionTTL, 7*24*time.Hour)

	var sessions app.SessionRepository
	var locks app.SubmissionLock
	if c.redis != nil {
		c.questions = redisinfra.NewQuestionRepository(c.redis, loader, questionTTL)
		sessions = redisinfra.NewSessionStore(c.redis, sessionTTL)
		locks = redisinfra.NewSubmissionLock(c.redis, submissionTTL)
	} else {
		c.questions = memory.NewQuestionRepository(loader, questionTTL)
		sessions = memory.NewSessionStore()
		locks = memory.NewSubmissionLock(submissionTTL)
	}

	signer, err := app.NewSigner(cfg.Ledger.SigningSecret)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.ledger = app.NewComplianceLedger(c.store, signer, locks, log, app.WithSafetyWindow(cfg.SafetyWindow()))
	c.service = app.NewQuizService(
		app.NewQuizEngine(cfg.Quiz.SampleSize),
		c.ledger,
		c.questions,
		sessions,
		c.store,
		domain.NewRegionSet(cfg.Quiz.Regions...),
		log,
	)
	return c, nil
}
