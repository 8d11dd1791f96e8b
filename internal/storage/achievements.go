package storage

import (
	"context"
	"fmt"
	"time"

	"budget/internal/achievements"
)

const upsertAchievement = `-- name: UpsertAchievement :exec
INSERT INTO achievements (key, name, description, icon) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET name = excluded.name, description = excluded.description, icon = excluded.icon`

func (q *Queries) UpsertAchievement(ctx context.Context, d achievements.Definition) error {
	if _, err := q.db.ExecContext(ctx, upsertAchievement, string(d.Key), d.Name, d.Description, d.Icon); err != nil {
		return fmt.Errorf("upsert achievement %s: %w", d.Key, err)
	}
	return nil
}

const grantAchievement = `-- name: GrantAchievement :exec
INSERT OR IGNORE INTO profile_achievements (profile_id, achievement_key, earned_at) VALUES (?, ?, ?)`

// GrantAchievement records key as earned. It reports false when the profile
// already held the badge.
func (q *Queries) GrantAchievement(ctx context.Context, profileID int64, key achievements.Key, at time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, grantAchievement, profileID, string(key), formatTime(at))
	if err != nil {
		return false, fmt.Errorf("grant achievement %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// EarnedAchievement is a badge held by a profile.
type EarnedAchievement struct {
	Key      achievements.Key
	EarnedAt time.Time
}

const listEarnedAchievements = `-- name: ListEarnedAchievements :many
SELECT achievement_key, earned_at FROM profile_achievements
WHERE profile_id = ?
ORDER BY earned_at, achievement_key`

func (q *Queries) ListEarnedAchievements(ctx context.Context, profileID int64) ([]EarnedAchievement, error) {
	rows, err := q.db.QueryContext(ctx, listEarnedAchievements, profileID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var items []EarnedAchievement
	for rows.Next() {
		var key, at string
		if err := rows.Scan(&key, &at); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		k, err := achievements.ParseKey(key)
		if err != nil {
			return nil, err
		}
		items = append(items, EarnedAchievement{Key: k, EarnedAt: parseTime(at)})
	}
	return items, rows.Err()
}

// EarnedKeys returns the set of keys the profile holds.
func (q *Queries) EarnedKeys(ctx context.Context, profileID int64) (map[achievements.Key]bool, error) {
	items, err := q.ListEarnedAchievements(ctx, profileID)
	if err != nil {
		return nil, err
	}
	keys := make([]achievements.Key, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return achievements.EarnedSet(keys), nil
}
