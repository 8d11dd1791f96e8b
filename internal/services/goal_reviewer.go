package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/achievements"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
	"budget/internal/streak"
)

// GoalReviewer checks closed months against each profile's savings goal and
// grants GOAL_ACHIEVER when spending stayed under it.
type GoalReviewer struct {
	storage *storage.SQLiteRepository
	loc     *time.Location
}

func NewGoalReviewer(storage *storage.SQLiteRepository, loc *time.Location) *GoalReviewer {
	if loc == nil {
		loc = time.UTC
	}
	return &GoalReviewer{storage: storage, loc: loc}
}

// ClosedPeriod returns the first and last day of the month before today's.
func ClosedPeriod(today core.Date) (first, last core.Date) {
	current := today.FirstOfMonth()
	return core.Date{Time: current.AddDate(0, -1, 0)}, current.AddDays(-1)
}

// ReviewClosedPeriods reviews the previous calendar month for every profile
// with a goal. Each (profile, month) is reviewed at most once; profiles of
// users who signed up during or after that month are skipped. Returns the
// number of reviews written.
func (g *GoalReviewer) ReviewClosedPeriods(ctx context.Context, now time.Time) (int, error) {
	profiles, err := g.storage.Queries().ListProfilesWithGoal(ctx)
	if err != nil {
		return 0, fmt.Errorf("list profiles with goal: %w", err)
	}

	first, last := ClosedPeriod(core.DateOf(now, g.loc))
	reviewed := 0
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return reviewed, err
		}
		written, granted, err := g.review(ctx, p, first, last, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to review savings goal",
				log.FieldComponent, log.ComponentGoals,
				log.FieldProfileID, p.ID,
				log.FieldPeriod, first.Period(),
				log.FieldError, err)
			continue
		}
		if !written {
			continue
		}
		reviewed++
		slog.InfoContext(ctx, "Savings goal reviewed",
			log.FieldComponent, log.ComponentGoals,
			log.FieldUserID, p.UserID,
			log.FieldPeriod, first.Period(),
			log.FieldAchievements, keyStrings(granted))
	}
	return reviewed, nil
}

func (g *GoalReviewer) review(ctx context.Context, p core.Profile, first, last core.Date, now time.Time) (bool, []achievements.Key, error) {
	var (
		written bool
		granted []achievements.Key
	)
	err := g.storage.InTx(ctx, func(q *storage.Queries) error {
		user, err := q.GetUser(ctx, p.UserID)
		if err != nil {
			return err
		}
		if !core.DateOf(user.CreatedAt, g.loc).Before(first.Time) {
			return nil
		}

		spent, err := q.SumExpenses(ctx, p.UserID, first, last)
		if err != nil {
			return err
		}
		met := spent.Cents < p.MonthlySavingsGoal.Cents
		written, err = q.InsertGoalReview(ctx, storage.GoalReview{
			ProfileID:  p.ID,
			Period:     first.Period(),
			Goal:       p.MonthlySavingsGoal,
			Spent:      spent,
			Met:        met,
			ReviewedAt: now.UTC(),
		})
		if err != nil || !written || !met {
			return err
		}

		current := streak.Current(p, core.DateOf(now, g.loc))
		granted, err = grantEarned(ctx, q, p, current, true, now)
		return err
	})
	return written, granted, err
}
