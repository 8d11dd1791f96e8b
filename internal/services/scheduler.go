package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budget/internal/log"
)

// RecurringRunner is implemented by RecurringProcessor.
type RecurringRunner interface {
	ProcessDueExpenses(ctx context.Context, now time.Time) (int, error)
}

// GoalRunner is implemented by GoalReviewer.
type GoalRunner interface {
	ReviewClosedPeriods(ctx context.Context, now time.Time) (int, error)
}

// SchedulerConfig holds configuration for the background scheduler
type SchedulerConfig struct {
	// RecurringInterval is how often templates are checked (default: 1h)
	RecurringInterval time.Duration

	// GoalReviewInterval is how often closed months are reviewed (default: 6h)
	GoalReviewInterval time.Duration

	// Now is the clock handed to the runners (default: time.Now)
	Now func() time.Time
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		RecurringInterval:  time.Hour,
		GoalReviewInterval: 6 * time.Hour,
		Now:                time.Now,
	}
}

// Scheduler runs recurring materialization and goal reviews on tickers.
type Scheduler struct {
	recurring RecurringRunner
	goals     GoalRunner
	config    SchedulerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a new scheduler. Either runner may be nil.
func NewScheduler(recurring RecurringRunner, goals GoalRunner, config SchedulerConfig) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.RecurringInterval <= 0 {
		config.RecurringInterval = defaults.RecurringInterval
	}
	if config.GoalReviewInterval <= 0 {
		config.GoalReviewInterval = defaults.GoalReviewInterval
	}
	if config.Now == nil {
		config.Now = defaults.Now
	}
	return &Scheduler{
		recurring: recurring,
		goals:     goals,
		config:    config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Scheduler started",
		log.FieldComponent, log.ComponentWorker,
		"recurring_interval", s.config.RecurringInterval,
		"goal_review_interval", s.config.GoalReviewInterval)

	return nil
}

// Stop gracefully stops the scheduler and waits for the current run.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Scheduler stopped gracefully", log.FieldComponent, log.ComponentWorker)
	case <-ctx.Done():
		slog.WarnContext(ctx, "Scheduler stop timed out", log.FieldComponent, log.ComponentWorker)
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run starts the scheduler and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	recurringTicker := time.NewTicker(s.config.RecurringInterval)
	defer recurringTicker.Stop()

	goalTicker := time.NewTicker(s.config.GoalReviewInterval)
	defer goalTicker.Stop()

	// Run immediately on startup
	s.runRecurring(ctx)
	s.runGoals(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-recurringTicker.C:
			s.runRecurring(ctx)
		case <-goalTicker.C:
			s.runGoals(ctx)
		}
	}
}

func (s *Scheduler) runRecurring(ctx context.Context) {
	if s.recurring == nil {
		return
	}
	if _, err := s.recurring.ProcessDueExpenses(ctx, s.config.Now()); err != nil {
		slog.ErrorContext(ctx, "Recurring processing failed",
			log.FieldComponent, log.ComponentRecurring,
			log.FieldError, err)
	}
}

func (s *Scheduler) runGoals(ctx context.Context) {
	if s.goals == nil {
		return
	}
	if _, err := s.goals.ReviewClosedPeriods(ctx, s.config.Now()); err != nil {
		slog.ErrorContext(ctx, "Goal review failed",
			log.FieldComponent, log.ComponentGoals,
			log.FieldError, err)
	}
}
