package cli

import (
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safepass-compliance/internal/domain"
	"safepass-compliance/internal/infra/postgres"
	redisinfra "safepass-compliance/internal/infra/redis"
	"safepass-compliance/internal/questionbank"
)

// NewSeedCmd loads a YAML question bank into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert a YAML question bank into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if file == "" {
				file = cfg.Quiz.BankPath
			}

			questions, err := questionbank.Load(file)
			if err != nil {
				return fmt.Errorf("load %s: %w", file, err)
			}

			pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			n, err := postgres.NewQuestionLoader(pool).UpsertQuestions(ctx, questions)
			if err != nil {
				return err
			}
			log.Info("question bank seeded", zap.String("file", file), zap.Int("questions", n))

			// Drop cached banks so running servers pick the new questions up.
			if cfg.Redis.Addr != "" {
				client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
				defer client.Close()
				cache := redisinfra.NewQuestionRepository(client, nil, 0)
				for _, region := range regionsOf(questions) {
					if err := cache.Invalidate(ctx, region); err != nil {
						log.Warn("invalidate cached bank", zap.String("region", string(region)), zap.Error(err))
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "question bank YAML (defaults to quiz.bank_path)")
	return cmd
}

func regionsOf(questions []domain.Question) []domain.Region {
	seen := make(map[domain.Region]bool)
	var out []domain.Region
	for _, q := range questions {
		for _, r := range q.Regions {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	return out
}
