// Package services holds the application operations: accounts, the expense
// ledger, recurring materialization and the savings-goal review.
package services

import (
	"fmt"
	"sync"

	"budget/internal/core"
)

// DuenessChecker decides whether a recurring template should produce an
// expense on today, given the day it last did and its start date. A zero
// lastExecution means it never ran.
type DuenessChecker interface {
	IsDue(lastExecution, today, startDate core.Date) bool
}

// DailyChecker is due once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastExecution, today, _ core.Date) bool {
	return lastExecution.IsZero() || today.After(lastExecution.Time)
}

// WeeklyChecker is due when at least 7 days passed since the last run.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastExecution, today, _ core.Date) bool {
	return lastExecution.IsZero() || today.DaysSince(lastExecution) >= 7
}

// MonthlyChecker is due once per month, on or after the start date's day.
// Start days past the end of a short month fall on its last day.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastExecution, today, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Period() == today.Period() {
		return false
	}
	return today.Day() >= clampDay(today.Year(), today.Month(), startDate.Day())
}

// YearlyChecker is due once per year, on or after the start date's month
// and day.
type YearlyChecker struct{}

func (YearlyChecker) IsDue(lastExecution, today, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == today.Year() {
		return false
	}
	switch {
	case today.Month() < startDate.Month():
		return false
	case today.Month() > startDate.Month():
		return true
	default:
		return today.Day() >= clampDay(today.Year(), today.Month(), startDate.Day())
	}
}

func clampDay(year, month, day int) int {
	last := core.NewDate(year, month+1, 0).Day()
	if day > last {
		return last
	}
	return day
}

var (
	duenessMu         sync.RWMutex
	duenessStrategies = map[core.Frequency]DuenessChecker{
		core.Daily:   DailyChecker{},
		core.Weekly:  WeeklyChecker{},
		core.Monthly: MonthlyChecker{},
		core.Yearly:  YearlyChecker{},
	}
)

// GetDuenessChecker returns the checker registered for frequency.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	duenessMu.RLock()
	defer duenessMu.RUnlock()
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrInvalidFrequency, frequency)
	}
	return checker, nil
}

// RegisterDuenessChecker installs or replaces the checker for frequency.
func RegisterDuenessChecker(frequency core.Frequency, checker DuenessChecker) {
	duenessMu.Lock()
	defer duenessMu.Unlock()
	duenessStrategies[frequency] = checker
}
