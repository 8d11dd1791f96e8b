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
)

// grantEarned evaluates the catalog against the profile's current activity
// and persists every newly satisfied badge. Only rows actually inserted are
// returned, so a racing evaluation that already granted a key does not
// report it twice.
func grantEarned(ctx context.Context, q *storage.Queries, p core.Profile, streakCount int, goalMet bool, at time.Time) ([]achievements.Key, error) {
	earned, err := q.EarnedKeys(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load earned achievements: %w", err)
	}
	total, err := q.CountLoggedExpenses(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	categories, err := q.CountLoggedCategories(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	candidates := achievements.Evaluate(earned, achievements.Context{
		TotalExpenses:      total,
		Streak:             streakCount,
		DistinctCategories: categories,
		GoalSet:            p.MonthlySavingsGoal.Cents > 0,
		GoalMet:            goalMet,
	})

	var granted []achievements.Key
	for _, key := range candidates {
		inserted, err := q.GrantAchievement(ctx, p.ID, key, at)
		if err != nil {
			return nil, fmt.Errorf("grant %s: %w", key, err)
		}
		if !inserted {
			continue
		}
		granted = append(granted, key)
		slog.DebugContext(ctx, "Achievement granted",
			log.FieldComponent, log.ComponentAchievements,
			log.FieldProfileID, p.ID,
			"key", key)
	}
	return granted, nil
}

func keyStrings(keys []achievements.Key) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
