package storage

import (
	"context"
	"fmt"
	"time"

	"budget/internal/core"
)

// GoalReview is the outcome of checking one closed month against the
// profile's savings goal.
type GoalReview struct {
	ProfileID  int64
	Period     string // YYYY-MM
	Goal       core.Money
	Spent      core.Money
	Met        bool
	ReviewedAt time.Time
}

const insertGoalReview = `-- name: InsertGoalReview :exec
INSERT OR IGNORE INTO goal_reviews (profile_id, period, goal_cents, spent_cents, met, reviewed_at)
VALUES (?, ?, ?, ?, ?, ?)`

// InsertGoalReview reports false when the period was already reviewed.
func (q *Queries) InsertGoalReview(ctx context.Context, r GoalReview) (bool, error) {
	met := 0
	if r.Met {
		met = 1
	}
	res, err := q.db.ExecContext(ctx, insertGoalReview,
		r.ProfileID, r.Period, r.Goal.Cents, r.Spent.Cents, met, formatTime(r.ReviewedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert goal review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

const getGoalReview = `-- name: GetGoalReview :one
SELECT profile_id, period, goal_cents, spent_cents, met, reviewed_at
FROM goal_reviews WHERE profile_id = ? AND period = ?`

func (q *Queries) GetGoalReview(ctx context.Context, profileID int64, period string) (GoalReview, error) {
	var (
		r           GoalReview
		goal, spent int64
		met         int
		reviewed    string
	)
	err := q.db.QueryRowContext(ctx, getGoalReview, profileID, period).Scan(
		&r.ProfileID, &r.Period, &goal, &spent, &met, &reviewed,
	)
	if err != nil {
		return GoalReview{}, fmt.Errorf("get goal review: %w", mapError(err))
	}
	r.Goal = core.Money{Cents: goal}
	r.Spent = core.Money{Cents: spent}
	r.Met = met == 1
	r.ReviewedAt = parseTime(reviewed)
	return r, nil
}
