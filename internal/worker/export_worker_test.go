package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/sheets/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	rows  map[int64]export.Row
	err   error
	calls int
}

func (f *fakeRows) RowForExpense(ctx context.Context, userID, expenseID int64) (export.Row, error) {
	f.calls++
	if f.err != nil {
		return export.Row{}, f.err
	}
	row, ok := f.rows[expenseID]
	if !ok {
		return export.Row{}, fmt.Errorf("%w: expense %d", core.ErrNotFound, expenseID)
	}
	return row, nil
}

func newRows() *fakeRows {
	return &fakeRows{rows: map[int64]export.Row{
		7: {Date: "2024-03-01", Category: "Food", Amount: "4.50", Currency: "USD", Description: "coffee"},
	}}
}

func TestHandleExpenseLogged_AppendsRow(t *testing.T) {
	store := memory.New()
	w := NewExportWorker(newRows(), store)

	err := w.HandleExpenseLogged(context.Background(), amqp.NewExpenseLoggedMessage(7, 1, nil))
	require.NoError(t, err)

	rows := store.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Food", rows[0].Category)
	assert.Equal(t, "4.50", rows[0].Amount)
}

func TestHandleExpenseLogged_RedeliveryIsSkipped(t *testing.T) {
	store := memory.New()
	source := newRows()
	w := NewExportWorker(source, store)
	msg := amqp.NewExpenseLoggedMessage(7, 1, []string{"FIRST_LOG"})

	require.NoError(t, w.HandleExpenseLogged(context.Background(), msg))
	require.NoError(t, w.HandleExpenseLogged(context.Background(), msg))

	assert.Len(t, store.Rows(), 1)
	assert.Equal(t, 1, source.calls)
}

func TestHandleExpenseLogged_MissingExpenseIsAcked(t *testing.T) {
	store := memory.New()
	w := NewExportWorker(newRows(), store)

	err := w.HandleExpenseLogged(context.Background(), amqp.NewExpenseLoggedMessage(99, 1, nil))
	assert.NoError(t, err)
	assert.Empty(t, store.Rows())
}

func TestHandleExpenseLogged_FailuresRequeue(t *testing.T) {
	store := memory.New()
	store.FailWith(errors.New("quota exceeded"))
	w := NewExportWorker(newRows(), store)
	msg := amqp.NewExpenseLoggedMessage(7, 1, nil)

	err := w.HandleExpenseLogged(context.Background(), msg)
	assert.Error(t, err)

	// a failed append is not remembered, so the retry goes through
	store.FailWith(nil)
	require.NoError(t, w.HandleExpenseLogged(context.Background(), msg))
	assert.Len(t, store.Rows(), 1)

	source := newRows()
	source.err = errors.New("database is locked")
	w = NewExportWorker(source, memory.New())
	assert.Error(t, w.HandleExpenseLogged(context.Background(), msg))
}
