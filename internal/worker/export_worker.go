// Package worker consumes ledger events and mirrors them to the export
// spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/log"
	"budget/internal/sheets"
)

// RowSource loads the export row of one expense. export.Service implements it.
type RowSource interface {
	RowForExpense(ctx context.Context, userID, expenseID int64) (export.Row, error)
}

// ExportWorker appends each logged expense to the export mirror.
type ExportWorker struct {
	rows   RowSource
	sheets sheets.RowAppender
	seen   *cache.LRUCache[string]
}

// NewExportWorker creates the worker. Message ids of appended rows are kept
// for a day so a redelivered message does not produce a second row.
func NewExportWorker(rows RowSource, appender sheets.RowAppender) *ExportWorker {
	return &ExportWorker{
		rows:   rows,
		sheets: appender,
		seen:   cache.NewLRUCache[string](10000, 24*time.Hour),
	}
}

// Seen exposes the dedup cache for periodic sweeping.
func (w *ExportWorker) Seen() cache.Cleaner {
	return w.seen
}

// HandleExpenseLogged is an amqp.Handler. Returning an error requeues the
// message; an expense that no longer exists is acknowledged and skipped.
func (w *ExportWorker) HandleExpenseLogged(ctx context.Context, msg *amqp.ExpenseLoggedMessage) error {
	slog.InfoContext(ctx, "Processing expense logged message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldMessageID, msg.MessageID,
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldUserID, msg.UserID)

	if msg.MessageID != "" {
		if ref, ok := w.seen.Get(msg.MessageID); ok {
			slog.InfoContext(ctx, "Skipping already mirrored expense",
				log.FieldComponent, log.ComponentWorker,
				log.FieldMessageID, msg.MessageID,
				log.FieldSheetsRef, ref)
			return nil
		}
	}

	row, err := w.rows.RowForExpense(ctx, msg.UserID, msg.ExpenseID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Expense no longer exists, skipping",
			log.FieldComponent, log.ComponentWorker,
			log.FieldExpenseID, msg.ExpenseID,
			log.FieldError, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load export row: %w", err)
	}

	ref, err := w.sheets.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}
	if msg.MessageID != "" {
		w.seen.Set(msg.MessageID, ref)
	}

	slog.InfoContext(ctx, "Mirrored expense to spreadsheet",
		log.FieldComponent, log.ComponentSheets,
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldSheetsRef, ref,
		log.FieldAchievements, msg.NewAchievements)
	return nil
}
