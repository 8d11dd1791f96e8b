package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budget/internal/core"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, email, first_name, last_name, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	err := q.db.QueryRowContext(ctx, createUser,
		u.Username, u.Email, u.FirstName, u.LastName, formatTime(u.CreatedAt),
	).Scan(&u.ID)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", mapError(err))
	}
	return u, nil
}

const getUser = `-- name: GetUser :one
SELECT id, username, email, first_name, last_name, created_at
FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	var (
		u       core.User
		created string
	)
	err := q.db.QueryRowContext(ctx, getUser, id).Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &created,
	)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, mapError(err))
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

const createProfile = `-- name: CreateProfile :one
INSERT INTO profiles (user_id, preferred_currency, monthly_savings_goal_cents, phone_number, dob, university)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	err := q.db.QueryRowContext(ctx, createProfile,
		p.UserID, p.PreferredCurrency, p.MonthlySavingsGoal.Cents,
		p.PhoneNumber, nullDate(p.DOB), p.University,
	).Scan(&p.ID)
	if err != nil {
		return core.Profile{}, fmt.Errorf("insert profile: %w", mapError(err))
	}
	return p, nil
}

const profileColumns = `id, user_id, preferred_currency, monthly_savings_goal_cents, last_log_date,
       streak_count, last_password_change, phone_number, dob, university`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (core.Profile, error) {
	var (
		p                 core.Profile
		goal              int64
		lastLog, pwd, dob sql.NullString
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.PreferredCurrency, &goal, &lastLog,
		&p.StreakCount, &pwd, &p.PhoneNumber, &dob, &p.University); err != nil {
		return core.Profile{}, err
	}
	p.MonthlySavingsGoal = core.Money{Cents: goal}
	p.LastLogDate = dateFrom(lastLog)
	p.DOB = dateFrom(dob)
	if pwd.Valid {
		p.LastPasswordChange = parseTime(pwd.String)
	}
	return p, nil
}

const getProfileByUserID = `-- name: GetProfileByUserID :one
SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ?`

func (q *Queries) GetProfileByUserID(ctx context.Context, userID int64) (core.Profile, error) {
	p, err := scanProfile(q.db.QueryRowContext(ctx, getProfileByUserID, userID))
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile for user %d: %w", userID, mapError(err))
	}
	return p, nil
}

const updateProfile = `-- name: UpdateProfile :exec
UPDATE profiles
SET preferred_currency = ?, monthly_savings_goal_cents = ?, last_password_change = ?,
    phone_number = ?, dob = ?, university = ?
WHERE id = ?`

// UpdateProfile writes the user-editable fields. Streak fields are owned by
// UpdateStreak.
func (q *Queries) UpdateProfile(ctx context.Context, p core.Profile) error {
	res, err := q.db.ExecContext(ctx, updateProfile,
		p.PreferredCurrency, p.MonthlySavingsGoal.Cents, nullTime(p.LastPasswordChange),
		p.PhoneNumber, nullDate(p.DOB), p.University, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update profile %d: %w", p.ID, mapError(err))
	}
	return requireRow(res, "profile", p.ID)
}

const updateStreak = `-- name: UpdateStreak :exec
UPDATE profiles SET last_log_date = ?, streak_count = ? WHERE id = ?`

func (q *Queries) UpdateStreak(ctx context.Context, p core.Profile) error {
	res, err := q.db.ExecContext(ctx, updateStreak, nullDate(p.LastLogDate), p.StreakCount, p.ID)
	if err != nil {
		return fmt.Errorf("update streak for profile %d: %w", p.ID, err)
	}
	return requireRow(res, "profile", p.ID)
}

const listProfilesWithGoal = `-- name: ListProfilesWithGoal :many
SELECT ` + profileColumns + ` FROM profiles WHERE monthly_savings_goal_cents > 0 ORDER BY id`

func (q *Queries) ListProfilesWithGoal(ctx context.Context) ([]core.Profile, error) {
	rows, err := q.db.QueryContext(ctx, listProfilesWithGoal)
	if err != nil {
		return nil, fmt.Errorf("list profiles with goal: %w", err)
	}
	defer rows.Close()

	var items []core.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func requireRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", core.ErrNotFound, what, id)
	}
	return nil
}
