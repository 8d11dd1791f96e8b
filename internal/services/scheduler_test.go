package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunner struct {
	recurring atomic.Int32
	goals     atomic.Int32
	err       error
}

func (c *countingRunner) ProcessDueExpenses(ctx context.Context, now time.Time) (int, error) {
	c.recurring.Add(1)
	return 0, c.err
}

func (c *countingRunner) ReviewClosedPeriods(ctx context.Context, now time.Time) (int, error) {
	c.goals.Add(1)
	return 0, c.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDefaultSchedulerConfig(t *testing.T) {
	config := DefaultSchedulerConfig()

	if config.RecurringInterval != time.Hour {
		t.Errorf("expected RecurringInterval 1h, got %v", config.RecurringInterval)
	}
	if config.GoalReviewInterval != 6*time.Hour {
		t.Errorf("expected GoalReviewInterval 6h, got %v", config.GoalReviewInterval)
	}
	if config.Now == nil {
		t.Error("expected a default clock")
	}
}

func TestNewScheduler_FillsZeroValues(t *testing.T) {
	s := NewScheduler(nil, nil, SchedulerConfig{})

	if s.config.RecurringInterval != time.Hour {
		t.Errorf("expected default RecurringInterval, got %v", s.config.RecurringInterval)
	}
	if s.config.Now == nil {
		t.Error("expected default clock")
	}
	if s.IsRunning() {
		t.Error("scheduler should not be running initially")
	}
}

func TestScheduler_RunsOnStartAndOnTick(t *testing.T) {
	runner := &countingRunner{}
	s := NewScheduler(runner, runner, SchedulerConfig{
		RecurringInterval:  10 * time.Millisecond,
		GoalReviewInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.IsRunning() {
		t.Error("scheduler should be running")
	}

	waitFor(t, func() bool { return runner.recurring.Load() >= 3 })
	if got := runner.goals.Load(); got != 1 {
		t.Errorf("expected one goal review at startup, got %d", got)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler should be stopped")
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	s := NewScheduler(nil, nil, SchedulerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer s.Stop(context.Background())

	if err := s.Start(ctx); err == nil {
		t.Error("expected error when starting already running scheduler")
	}
}

func TestScheduler_StopNotRunning(t *testing.T) {
	s := NewScheduler(nil, nil, SchedulerConfig{})

	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("stop on idle scheduler should not fail: %v", err)
	}
}

func TestScheduler_RunnerErrorsDoNotStopLoop(t *testing.T) {
	runner := &countingRunner{err: errors.New("boom")}
	s := NewScheduler(runner, nil, SchedulerConfig{RecurringInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	waitFor(t, func() bool { return runner.recurring.Load() >= 2 })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
