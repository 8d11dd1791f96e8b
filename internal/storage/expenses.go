package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budget/internal/core"
)

const createExpense = `-- name: CreateExpense :one
INSERT INTO expenses (user_id, category_id, amount_cents, description, date, recurring_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	err := q.db.QueryRowContext(ctx, createExpense,
		e.UserID, nullInt(e.CategoryID), e.Amount.Cents, e.Description,
		e.Date.String(), nullInt(e.RecurringID), formatTime(e.CreatedAt),
	).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", mapError(err))
	}
	return e, nil
}

const expenseColumns = `e.id, e.user_id, e.category_id, COALESCE(c.name, ''), e.amount_cents,
       e.description, e.date, e.recurring_id, e.created_at`

const expenseFrom = ` FROM expenses e LEFT JOIN categories c ON c.id = e.category_id`

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                     core.Expense
		categoryID, recurring sql.NullInt64
		cents                 int64
		date, created         string
	)
	if err := row.Scan(&e.ID, &e.UserID, &categoryID, &e.CategoryName, &cents,
		&e.Description, &date, &recurring, &created); err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, err)
	}
	e.Date = d
	e.CategoryID = categoryID.Int64
	e.RecurringID = recurring.Int64
	e.Amount = core.Money{Cents: cents}
	e.CreatedAt = parseTime(created)
	return e, nil
}

const getExpense = `-- name: GetExpense :one
SELECT ` + expenseColumns + expenseFrom + ` WHERE e.id = ?`

func (q *Queries) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, mapError(err))
	}
	return e, nil
}

const listExpenses = `-- name: ListExpenses :many
SELECT ` + expenseColumns + expenseFrom + `
WHERE e.user_id = ?
  AND (? = '' OR e.date >= ?)
  AND (? = '' OR e.date <= ?)
ORDER BY e.date, e.id`

// ListExpenses returns the user's expenses between from and to inclusive,
// oldest first. A zero bound is open.
func (q *Queries) ListExpenses(ctx context.Context, userID int64, from, to core.Date) ([]core.Expense, error) {
	f, t := from.String(), to.String()
	rows, err := q.db.QueryContext(ctx, listExpenses, userID, f, f, t, t)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var items []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const countLoggedExpenses = `-- name: CountLoggedExpenses :one
SELECT COUNT(*) FROM expenses WHERE user_id = ? AND recurring_id IS NULL`

// CountLoggedExpenses counts the expenses the user entered, excluding
// entries materialized from recurring templates.
func (q *Queries) CountLoggedExpenses(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, countLoggedExpenses, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

const countLoggedCategories = `-- name: CountLoggedCategories :one
SELECT COUNT(DISTINCT category_id) FROM expenses
WHERE user_id = ? AND recurring_id IS NULL AND category_id IS NOT NULL`

func (q *Queries) CountLoggedCategories(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, countLoggedCategories, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories used: %w", err)
	}
	return n, nil
}

const sumExpenses = `-- name: SumExpenses :one
SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
WHERE user_id = ? AND date >= ? AND date <= ?`

func (q *Queries) SumExpenses(ctx context.Context, userID int64, from, to core.Date) (core.Money, error) {
	var cents int64
	if err := q.db.QueryRowContext(ctx, sumExpenses, userID, from.String(), to.String()).Scan(&cents); err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: cents}, nil
}
