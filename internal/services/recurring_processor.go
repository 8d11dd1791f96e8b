package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
)

// RecurringProcessor materializes expenses from recurring templates.
// Materialized rows never touch the streak or badges.
type RecurringProcessor struct {
	storage *storage.SQLiteRepository
	reports ReportInvalidator
	loc     *time.Location
}

// NewRecurringProcessor creates a new recurring expense processor. reports
// may be nil when no in-process analytics cache exists.
func NewRecurringProcessor(storage *storage.SQLiteRepository, reports ReportInvalidator, loc *time.Location) *RecurringProcessor {
	if loc == nil {
		loc = time.UTC
	}
	return &RecurringProcessor{
		storage: storage,
		reports: reports,
		loc:     loc,
	}
}

// ProcessDueExpenses creates one expense per template that is active and due
// today, each in its own transaction, and returns how many were created.
func (p *RecurringProcessor) ProcessDueExpenses(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	today := core.DateOf(now, p.loc)
	templates, err := p.storage.Queries().ListActiveRecurring(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to get active recurring expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		log.FieldComponent, log.ComponentRecurring,
		"total_active", len(templates),
		"processing_date", today.String())

	processedCount := 0
	for _, re := range templates {
		if err := ctx.Err(); err != nil {
			return processedCount, err
		}

		checker, err := GetDuenessChecker(re.Frequency)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to check if expense is due",
				log.FieldComponent, log.ComponentRecurring,
				log.FieldRecurringID, re.ID,
				log.FieldError, err)
			continue
		}
		if !checker.IsDue(re.LastExecution, today, re.StartDate) {
			continue
		}

		if err := p.materialize(ctx, re, today, now); err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from recurring template",
				log.FieldComponent, log.ComponentRecurring,
				log.FieldRecurringID, re.ID,
				log.FieldUserID, re.UserID,
				log.FieldError, err)
			continue
		}
		if p.reports != nil {
			p.reports.Invalidate(re.UserID)
		}

		processedCount++
		slog.InfoContext(ctx, "Created expense from recurring template",
			log.FieldComponent, log.ComponentRecurring,
			log.FieldRecurringID, re.ID,
			log.FieldUserID, re.UserID,
			log.FieldAmountCents, re.Amount.Cents,
			"frequency", re.Frequency)
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		log.FieldComponent, log.ComponentRecurring,
		"processed", processedCount,
		"total_checked", len(templates))

	return processedCount, nil
}

func (p *RecurringProcessor) materialize(ctx context.Context, re core.RecurringExpense, today core.Date, now time.Time) error {
	return p.storage.InTx(ctx, func(q *storage.Queries) error {
		_, err := q.CreateExpense(ctx, core.Expense{
			UserID:      re.UserID,
			CategoryID:  re.CategoryID,
			Amount:      re.Amount,
			Date:        today,
			Description: re.Description,
			RecurringID: re.ID,
			CreatedAt:   now.UTC(),
		})
		if err != nil {
			return err
		}
		if err := q.MarkRecurringExecuted(ctx, re.ID, today); err != nil {
			return err
		}
		return q.DeleteAnalyticsCache(ctx, re.UserID)
	})
}
