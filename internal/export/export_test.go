package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Row{
		{Date: "2024-03-01", Category: "Food", Amount: "12.50", Currency: "USD", Description: "lunch, with team"},
		{Date: "2024-03-02", Category: core.Uncategorized, Amount: "3.00", Currency: "USD"},
	})
	require.NoError(t, err)

	want := "Date,Category,Amount,Currency,Description\n" +
		"2024-03-01,Food,12.50,USD,\"lunch, with team\"\n" +
		"2024-03-02,Uncategorized,3.00,USD,\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Date,Category,Amount,Currency,Description\n", buf.String())
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "expenses-2024-03-04.csv", Filename(core.NewDate(2024, 3, 4)))
}

func TestService(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	require.NoError(t, err)
	defer repo.Close()

	q := repo.Queries()
	u, err := q.CreateUser(ctx, core.User{Username: "alice", CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = q.CreateProfile(ctx, core.Profile{UserID: u.ID, PreferredCurrency: "EUR", University: core.DefaultUniversity})
	require.NoError(t, err)
	other, err := q.CreateUser(ctx, core.User{Username: "bob", CreatedAt: time.Now()})
	require.NoError(t, err)

	cat, err := q.CreateCategory(ctx, core.Category{UserID: u.ID, Name: "Books"})
	require.NoError(t, err)
	late, err := q.CreateExpense(ctx, core.Expense{UserID: u.ID, CategoryID: cat.ID, Amount: core.Money{Cents: 1999}, Date: core.NewDate(2024, 3, 5), Description: "novel", CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = q.CreateExpense(ctx, core.Expense{UserID: u.ID, Amount: core.Money{Cents: 250}, Date: core.NewDate(2024, 3, 1), CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = q.CreateExpense(ctx, core.Expense{UserID: other.ID, Amount: core.Money{Cents: 100}, Date: core.NewDate(2024, 3, 1), CreatedAt: time.Now()})
	require.NoError(t, err)

	svc := NewService(repo)
	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(ctx, u.ID, &buf))
	assert.Equal(t, "Date,Category,Amount,Currency,Description\n"+
		"2024-03-01,Uncategorized,2.50,EUR,\n"+
		"2024-03-05,Books,19.99,EUR,novel\n", buf.String())

	row, err := svc.RowForExpense(ctx, u.ID, late.ID)
	require.NoError(t, err)
	assert.Equal(t, Row{Date: "2024-03-05", Category: "Books", Amount: "19.99", Currency: "EUR", Description: "novel"}, row)

	_, err = svc.RowForExpense(ctx, other.ID, late.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
