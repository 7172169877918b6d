package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultOverdueSchedule runs the sweep five minutes into every ISO week (UTC).
const DefaultOverdueSchedule = "5 0 * * MON"

// OverdueSweeper closes out the previous ISO week on a cron schedule.
type OverdueSweeper struct {
	ledger   *ComplianceLedger
	schedule string
	logger   *zap.Logger
}

func NewOverdueSweeper(ledger *ComplianceLedger, schedule string, logger *zap.Logger) *OverdueSweeper {
	if schedule == "" {
		schedule = DefaultOverdueSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueSweeper{ledger: ledger, schedule: schedule, logger: logger}
}

// SweepPrevious marks every driver without a record for last week as OVERDUE.
func (s *OverdueSweeper) SweepPrevious(ctx context.Context) (int, error) {
	return s.ledger.MarkOverdue(ctx, s.ledger.CurrentWeek().Previous())
}

// Run schedules the sweep and blocks until ctx is done.
func (s *OverdueSweeper) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(s.schedule, func() {
		s.logger.Info("cron triggered: overdue sweep")
		if _, err := s.SweepPrevious(ctx); err != nil {
			s.logger.Error("overdue sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule overdue sweep %q: %w", s.schedule, err)
	}

	c.Start()
	s.logger.Info("overdue sweeper started", zap.String("schedule", s.schedule))

	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("overdue sweeper stopped")
	return nil
}
