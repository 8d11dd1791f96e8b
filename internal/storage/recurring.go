package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budget/internal/core"
)

const createRecurring = `-- name: CreateRecurring :one
INSERT INTO recurring_expenses (user_id, category_id, amount_cents, description, frequency, start_date, end_date)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateRecurring(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error) {
	err := q.db.QueryRowContext(ctx, createRecurring,
		re.UserID, nullInt(re.CategoryID), re.Amount.Cents, re.Description,
		string(re.Frequency), re.StartDate.String(), nullDate(re.EndDate),
	).Scan(&re.ID)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("insert recurring expense: %w", mapError(err))
	}
	return re, nil
}

const recurringColumns = `r.id, r.user_id, r.category_id, COALESCE(c.name, ''), r.amount_cents, r.description,
       r.frequency, r.start_date, r.end_date, r.last_execution_date`

const recurringFrom = ` FROM recurring_expenses r LEFT JOIN categories c ON c.id = r.category_id`

func scanRecurring(row rowScanner) (core.RecurringExpense, error) {
	var (
		re            core.RecurringExpense
		categoryID    sql.NullInt64
		cents         int64
		freq, start   string
		end, lastExec sql.NullString
	)
	if err := row.Scan(&re.ID, &re.UserID, &categoryID, &re.CategoryName, &cents, &re.Description,
		&freq, &start, &end, &lastExec); err != nil {
		return core.RecurringExpense{}, err
	}
	sd, err := core.ParseDate(start)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("recurring expense %d: %w", re.ID, err)
	}
	re.CategoryID = categoryID.Int64
	re.Amount = core.Money{Cents: cents}
	re.Frequency = core.Frequency(freq)
	re.StartDate = sd
	re.EndDate = dateFrom(end)
	re.LastExecution = dateFrom(lastExec)
	return re, nil
}

func collectRecurring(rows *sql.Rows) ([]core.RecurringExpense, error) {
	defer rows.Close()
	var items []core.RecurringExpense
	for rows.Next() {
		re, err := scanRecurring(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		items = append(items, re)
	}
	return items, rows.Err()
}

const listRecurring = `-- name: ListRecurring :many
SELECT ` + recurringColumns + recurringFrom + ` WHERE r.user_id = ? ORDER BY r.start_date, r.id`

func (q *Queries) ListRecurring(ctx context.Context, userID int64) ([]core.RecurringExpense, error) {
	rows, err := q.db.QueryContext(ctx, listRecurring, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	return collectRecurring(rows)
}

const listActiveRecurring = `-- name: ListActiveRecurring :many
SELECT ` + recurringColumns + recurringFrom + `
WHERE r.start_date <= ? AND (r.end_date IS NULL OR r.end_date >= ?)
ORDER BY r.id`

// ListActiveRecurring returns every template whose date range covers day.
func (q *Queries) ListActiveRecurring(ctx context.Context, day core.Date) ([]core.RecurringExpense, error) {
	d := day.String()
	rows, err := q.db.QueryContext(ctx, listActiveRecurring, d, d)
	if err != nil {
		return nil, fmt.Errorf("list active recurring expenses: %w", err)
	}
	return collectRecurring(rows)
}

const deleteRecurring = `-- name: DeleteRecurring :exec
DELETE FROM recurring_expenses WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteRecurring(ctx context.Context, userID, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteRecurring, id, userID)
	if err != nil {
		return fmt.Errorf("delete recurring expense %d: %w", id, err)
	}
	return requireRow(res, "recurring expense", id)
}

const markRecurringExecuted = `-- name: MarkRecurringExecuted :exec
UPDATE recurring_expenses SET last_execution_date = ? WHERE id = ?`

func (q *Queries) MarkRecurringExecuted(ctx context.Context, id int64, day core.Date) error {
	res, err := q.db.ExecContext(ctx, markRecurringExecuted, day.String(), id)
	if err != nil {
		return fmt.Errorf("mark recurring expense %d executed: %w", id, err)
	}
	return requireRow(res, "recurring expense", id)
}
