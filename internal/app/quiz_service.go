package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"safepass-compliance/internal/domain"
)

// AnswerOutcome is the feedback for one recorded answer.
type AnswerOutcome struct {
	Answer             domain.Answer `json:"answer"`
	CorrectOptionIndex int           `json:"correctOptionIndex"`
	Explanation        string        `json:"explanation"`
	Position           int           `json:"position"`
	Total              int           `json:"total"`
	Complete           bool          `json:"complete"`
}

// DriverStatus summarizes a driver's standing for the home screen.
type DriverStatus struct {
	Profile           domain.DriverProfile `json:"profile"`
	Week              domain.ISOWeek       `json:"week"`
	CompletedThisWeek bool                 `json:"completedThisWeek"`
}

// QuizService contains the driver-facing quiz use cases.
type QuizService struct {
	engine    *QuizEngine
	ledger    *ComplianceLedger
	questions QuestionRepository
	sessions  SessionRepository
	store     LedgerStore
	regions   domain.RegionSet
	hub       *leaderboardHub
	logger    *zap.Logger
	now       func() time.Time
}

func NewQuizService(
	engine *QuizEngine,
	ledger *ComplianceLedger,
	questions QuestionRepository,
	sessions SessionRepository,
	store LedgerStore,
	regions domain.RegionSet,
	logger *zap.Logger,
) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizService{
		engine:    engine,
		ledger:    ledger,
		questions: questions,
		sessions:  sessions,
		store:     store,
		regions:   regions,
		hub:       newLeaderboardHub(),
		logger:    logger,
		now:       time.Now,
	}
}

// Regions returns the configured region set.
func (s *QuizService) Regions() domain.RegionSet {
	return s.regions
}

// Start builds the weekly quiz for the driver's region, or resumes the one in progress.
// The boolean is true when an existing session was returned.
func (s *QuizService) Start(ctx context.Context, driverID string) (domain.QuizInstance, bool, error) {
	if driverID == "" {
		return domain.QuizInstance{}, false, domain.ErrInvalidDriver
	}

	existing, err := s.sessions.Get(ctx, driverID)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return domain.QuizInstance{}, false, err
	}

	profile, err := s.store.GetProfile(ctx, driverID)
	if err != nil {
		return domain.QuizInstance{}, false, err
	}
	if err := s.regions.Check(profile.Region); err != nil {
		return domain.QuizInstance{}, false, err
	}

	questions, err := s.questions.QuestionsForRegion(ctx, profile.Region)
	if err != nil {
		return domain.QuizInstance{}, false, fmt.Errorf("load questions: %w", err)
	}

	instance, err := s.engine.BuildQuiz(driverID, profile.Region, questions)
	if err != nil {
		return domain.QuizInstance{}, false, err
	}
	if err := s.sessions.Save(ctx, instance); err != nil {
		return domain.QuizInstance{}, false, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("quiz started",
		zap.String("driver_id", driverID),
		zap.String("quiz_id", instance.ID),
		zap.String("region", string(profile.Region)),
		zap.Int("questions", len(instance.Questions)),
	)
	return instance, false, nil
}

// Current returns the driver's quiz in progress.
func (s *QuizService) Current(ctx context.Context, driverID string) (domain.QuizInstance, error) {
	return s.sessions.Get(ctx, driverID)
}

// Answer records the selected option for the current question.
func (s *QuizService) Answer(ctx context.Context, driverID string, selectedOptionIndex int) (AnswerOutcome, error) {
	instance, err := s.sessions.Get(ctx, driverID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	question, _ := instance.CurrentQuestion()

	next, err := s.engine.RecordAnswer(instance, selectedOptionIndex)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if err := s.sessions.Save(ctx, next); err != nil {
		return AnswerOutcome{}, fmt.Errorf("save session: %w", err)
	}

	return AnswerOutcome{
		Answer:             next.Answers[len(next.Answers)-1],
		CorrectOptionIndex: question.CorrectOptionIndex,
		Explanation:        question.Explanation,
		Position:           next.Position,
		Total:              len(next.Questions),
		Complete:           IsComplete(next),
	}, nil
}

// Abandon drops the driver's quiz in progress.
func (s *QuizService) Abandon(ctx context.Context, driverID string) error {
	return s.sessions.Delete(ctx, driverID)
}

// Submit files the completed quiz with the ledger and clears the session.
func (s *QuizService) Submit(ctx context.Context, driverID string) (SubmitResult, error) {
	instance, err := s.sessions.Get(ctx, driverID)
	if err != nil {
		return SubmitResult{}, err
	}

	result, err := s.ledger.SubmitQuiz(ctx, instance)
	if err != nil {
		return SubmitResult{}, err
	}

	// The submission token already rejects replays, so a stale session is harmless.
	if err := s.sessions.Delete(ctx, driverID); err != nil {
		s.logger.Warn("delete submitted session", zap.String("driver_id", driverID), zap.Error(err))
	}
	s.publish(ctx, instance.Region)
	return result, nil
}

// Status returns the driver's profile and whether this week's quiz is done.
func (s *QuizService) Status(ctx context.Context, driverID string) (DriverStatus, error) {
	profile, err := s.store.GetProfile(ctx, driverID)
	if err != nil {
		return DriverStatus{}, err
	}
	completed, err := s.ledger.HasCompletedCurrentWeek(ctx, driverID)
	if err != nil {
		return DriverStatus{}, err
	}
	return DriverStatus{
		Profile:           profile,
		Week:              s.ledger.CurrentWeek(),
		CompletedThisWeek: completed,
	}, nil
}

// RegisterProfile creates or updates the driver's identity fields.
func (s *QuizService) RegisterProfile(ctx context.Context, profile domain.DriverProfile) (domain.DriverProfile, error) {
	if profile.ID == "" {
		return domain.DriverProfile{}, domain.ErrInvalidDriver
	}
	profile.Name = strings.TrimSpace(profile.Name)
	profile.EmployeeID = strings.TrimSpace(profile.EmployeeID)
	profile.Region = domain.ParseRegion(string(profile.Region))
	if err := s.regions.Check(profile.Region); err != nil {
		return domain.DriverProfile{}, err
	}
	stored, err := s.store.UpsertProfile(ctx, profile)
	if err != nil {
		return domain.DriverProfile{}, err
	}
	s.publish(ctx, stored.Region)
	return stored, nil
}

// History returns the driver's attempts, newest first.
func (s *QuizService) History(ctx context.Context, driverID string) ([]domain.QuizAttempt, error) {
	return s.ledger.Attempts(ctx, driverID)
}

// Compliance returns the driver's compliance records with their integrity verdict.
func (s *QuizService) Compliance(ctx context.Context, driverID string) ([]domain.ComplianceRecord, IntegrityReport, error) {
	return s.ledger.VerifyDriver(ctx, driverID)
}

// Leaderboard ranks a region's drivers by safety index. limit <= 0 returns everyone.
func (s *QuizService) Leaderboard(ctx context.Context, region domain.Region, limit int) (domain.Leaderboard, error) {
	if err := s.regions.Check(region); err != nil {
		return domain.Leaderboard{}, err
	}
	profiles, err := s.store.ListProfiles(ctx, region)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	week := s.ledger.CurrentWeek()
	records, err := s.store.ListComplianceForWeek(ctx, week)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	compliant := make(map[string]bool, len(records))
	for _, r := range records {
		if r.Status == domain.StatusCompliant {
			compliant[r.DriverID] = true
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(profiles))
	for _, p := range profiles {
		entries = append(entries, domain.LeaderboardEntry{
			DriverID:    p.ID,
			Name:        p.Name,
			EmployeeID:  p.EmployeeID,
			SafetyIndex: p.SafetyIndex,
			Compliant:   compliant[p.ID],
		})
	}
	rankEntries(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return domain.Leaderboard{
		Region:    region,
		Week:      week,
		Entries:   entries,
		UpdatedAt: s.now().UTC(),
	}, nil
}

// Subscribe returns a channel of leaderboard snapshots for a region, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, region domain.Region) (<-chan domain.Leaderboard, func(), error) {
	lb, err := s.Leaderboard(ctx, region, 0)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.hub.subscribe(region, lb)
	return ch, cancel, nil
}

func (s *QuizService) publish(ctx context.Context, region domain.Region) {
	if !s.hub.hasSubscribers(region) {
		return
	}
	lb, err := s.Leaderboard(ctx, region, 0)
	if err != nil {
		s.logger.Warn("refresh leaderboard", zap.String("region", string(region)), zap.Error(err))
		return
	}
	s.hub.broadcast(lb)
}
