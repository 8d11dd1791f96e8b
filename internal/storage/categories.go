package storage

import (
	"context"
	"database/sql"
	"fmt"

	"budget/internal/core"
)

func scanCategory(row rowScanner) (core.Category, error) {
	var (
		c      core.Category
		userID sql.NullInt64
	)
	if err := row.Scan(&c.ID, &userID, &c.Name); err != nil {
		return core.Category{}, err
	}
	c.UserID = userID.Int64
	return c, nil
}

const findCategoryByName = `-- name: FindCategoryByName :one
SELECT id, user_id, name FROM categories
WHERE name = ? AND (user_id = ? OR user_id IS NULL)
ORDER BY user_id IS NULL
LIMIT 1`

// FindCategoryByName prefers the user's own category over a global one with
// the same name.
func (q *Queries) FindCategoryByName(ctx context.Context, userID int64, name string) (core.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx, findCategoryByName, name, userID))
	if err != nil {
		return core.Category{}, fmt.Errorf("find category %q: %w", name, mapError(err))
	}
	return c, nil
}

const createCategory = `-- name: CreateCategory :one
INSERT INTO categories (user_id, name) VALUES (?, ?) RETURNING id`

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := q.db.QueryRowContext(ctx, createCategory, nullInt(c.UserID), c.Name).Scan(&c.ID); err != nil {
		return core.Category{}, fmt.Errorf("insert category %q: %w", c.Name, mapError(err))
	}
	return c, nil
}

const listCategories = `-- name: ListCategories :many
SELECT id, user_id, name FROM categories
WHERE user_id = ? OR user_id IS NULL
ORDER BY name, id`

func (q *Queries) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const deleteCategory = `-- name: DeleteCategory :exec
DELETE FROM categories WHERE id = ? AND user_id = ?`

// DeleteCategory removes one of the user's own categories. Expenses that
// referenced it keep existing with no category.
func (q *Queries) DeleteCategory(ctx context.Context, userID, id int64) error {
	res, err := q.db.ExecContext(ctx, deleteCategory, id, userID)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return requireRow(res, "category", id)
}
