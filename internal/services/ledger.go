package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budget/internal/achievements"
	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"
	"budget/internal/streak"
)

// EventPublisher announces logged expenses to other processes.
type EventPublisher interface {
	PublishExpenseLogged(ctx context.Context, msg *amqp.ExpenseLoggedMessage) error
}

// ReportInvalidator drops in-process analytics copies for a user.
type ReportInvalidator interface {
	Invalidate(userID int64)
}

// LedgerService records expenses and keeps the streak, badges and
// analytics cache consistent with them.
type LedgerService struct {
	repo      *storage.SQLiteRepository
	publisher EventPublisher
	reports   ReportInvalidator
	logger    *log.StructuredLogger
	now       func() time.Time
	loc       *time.Location
}

type LedgerOption func(*LedgerService)

// WithPublisher enables ExpenseLogged events.
func WithPublisher(p EventPublisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

// WithReports wires the in-process analytics cache.
func WithReports(r ReportInvalidator) LedgerOption {
	return func(s *LedgerService) { s.reports = r }
}

// WithClock sets the time source and the zone that defines calendar days.
func WithClock(now func() time.Time, loc *time.Location) LedgerOption {
	return func(s *LedgerService) {
		if now != nil {
			s.now = now
		}
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) LedgerOption {
	return func(s *LedgerService) { s.logger = log.NewStructuredLogger(l) }
}

func NewLedgerService(repo *storage.SQLiteRepository, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		repo:   repo,
		logger: log.NewStructuredLogger(log.Default()),
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewExpense is the raw input of a log action. Amount accepts dot or comma
// decimals; an empty Date means today; an empty Category means none.
type NewExpense struct {
	Amount      string
	Category    string
	Date        string
	Description string
}

type LogResult struct {
	Expense         core.Expense
	Streak          int
	Outcome         streak.Outcome
	NewAchievements []achievements.Key
}

func (s *LedgerService) today() core.Date {
	return core.DateOf(s.now(), s.loc)
}

func (s *LedgerService) parseExpense(userID int64, in NewExpense) (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	date := s.today()
	if strings.TrimSpace(in.Date) != "" {
		if date, err = core.ParseDate(in.Date); err != nil {
			return core.Expense{}, err
		}
	}
	e := core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Date:        date,
		Description: strings.TrimSpace(in.Description),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// resolveCategory returns the user's category (or a global one) with the
// given name, creating a user category when none exists. An empty name
// resolves to no category.
func resolveCategory(ctx context.Context, q *storage.Queries, userID int64, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, nil
	}
	c, err := q.FindCategoryByName(ctx, userID, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Category{}, err
	}
	c = core.Category{UserID: userID, Name: name}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return q.CreateCategory(ctx, c)
}

// LogExpense records an expense. The insert, the streak update, badge
// grants and analytics invalidation commit together or not at all.
func (s *LedgerService) LogExpense(ctx context.Context, userID int64, in NewExpense) (LogResult, error) {
	expense, err := s.parseExpense(userID, in)
	if err != nil {
		return LogResult{}, err
	}

	now := s.now()
	eventDay := core.DateOf(now, s.loc)
	var result LogResult

	err = s.repo.InTx(ctx, func(q *storage.Queries) error {
		profile, err := q.GetProfileByUserID(ctx, userID)
		if err != nil {
			return err
		}

		category, err := resolveCategory(ctx, q, userID, in.Category)
		if err != nil {
			return fmt.Errorf("resolve category: %w", err)
		}
		expense.CategoryID = category.ID
		expense.CategoryName = category.Name
		expense.CreatedAt = now.UTC()

		if expense, err = q.CreateExpense(ctx, expense); err != nil {
			return err
		}

		outcome := streak.Record(&profile, eventDay)
		if outcome.Changed() {
			if err := q.UpdateStreak(ctx, profile); err != nil {
				return err
			}
		}

		granted, err := grantEarned(ctx, q, profile, profile.StreakCount, false, now)
		if err != nil {
			return err
		}

		if err := q.DeleteAnalyticsCache(ctx, userID); err != nil {
			return err
		}

		result = LogResult{
			Expense:         expense,
			Streak:          profile.StreakCount,
			Outcome:         outcome,
			NewAchievements: granted,
		}
		return nil
	})
	if err != nil {
		return LogResult{}, fmt.Errorf("log expense: %w", err)
	}

	s.invalidate(userID)
	s.logger.LogExpenseLogged(ctx, userID, result.Expense.ID, result.Expense.Amount.Cents,
		result.Expense.DisplayCategory(), result.Expense.Date.String(),
		result.Streak, result.Outcome.String(), keyStrings(result.NewAchievements))
	s.publish(ctx, result)

	return result, nil
}

func (s *LedgerService) invalidate(userID int64) {
	if s.reports != nil {
		s.reports.Invalidate(userID)
	}
}

// publish is best effort: the expense is already committed and the mirror
// can be rebuilt from the export.
func (s *LedgerService) publish(ctx context.Context, r LogResult) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewExpenseLoggedMessage(r.Expense.ID, r.Expense.UserID, keyStrings(r.NewAchievements))
	if err := s.publisher.PublishExpenseLogged(ctx, msg); err != nil {
		s.logger.LogError(ctx, "Failed to publish expense logged event", err,
			log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithUser(r.Expense.UserID).WithExpense(r.Expense.ID, r.Expense.Amount.Cents, r.Expense.DisplayCategory(), r.Expense.Date.String()))
	}
}

// ListExpenses returns the user's expenses between from and to inclusive.
// A zero bound leaves that side open.
func (s *LedgerService) ListExpenses(ctx context.Context, userID int64, from, to core.Date) ([]core.Expense, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
		return nil, fmt.Errorf("%w: 'to' is before 'from'", core.ErrValidation)
	}
	return s.repo.Queries().ListExpenses(ctx, userID, from, to)
}

func (s *LedgerService) CreateCategory(ctx context.Context, userID int64, name string) (core.Category, error) {
	c := core.Category{UserID: userID, Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c, err := s.repo.Queries().CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	slog.InfoContext(ctx, "Category created",
		log.FieldComponent, log.ComponentLedger,
		log.FieldUserID, userID,
		log.FieldCategory, c.Name)
	return c, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	return s.repo.Queries().ListCategories(ctx, userID)
}

// DeleteCategory removes one of the user's own categories. Its expenses are
// kept and report as Uncategorized from then on, so cached reports go too.
func (s *LedgerService) DeleteCategory(ctx context.Context, userID, id int64) error {
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		if err := q.DeleteCategory(ctx, userID, id); err != nil {
			return err
		}
		return q.DeleteAnalyticsCache(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.invalidate(userID)
	slog.InfoContext(ctx, "Category deleted",
		log.FieldComponent, log.ComponentLedger,
		log.FieldUserID, userID,
		"category_id", id)
	return nil
}

// NewRecurring is the raw input of a recurring template.
type NewRecurring struct {
	Amount      string
	Category    string
	Description string
	Frequency   string
	StartDate   string
	EndDate     string
}

func (s *LedgerService) CreateRecurring(ctx context.Context, userID int64, in NewRecurring) (core.RecurringExpense, error) {
	cents, err := core.ParseDecimalToCents(in.Amount)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	freq, err := core.ParseFrequency(in.Frequency)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	re := core.RecurringExpense{
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Description: strings.TrimSpace(in.Description),
		Frequency:   freq,
		StartDate:   s.today(),
	}
	if strings.TrimSpace(in.StartDate) != "" {
		if re.StartDate, err = core.ParseDate(in.StartDate); err != nil {
			return core.RecurringExpense{}, err
		}
	}
	if strings.TrimSpace(in.EndDate) != "" {
		if re.EndDate, err = core.ParseDate(in.EndDate); err != nil {
			return core.RecurringExpense{}, err
		}
	}
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}

	err = s.repo.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return err
		}
		category, err := resolveCategory(ctx, q, userID, in.Category)
		if err != nil {
			return fmt.Errorf("resolve category: %w", err)
		}
		re.CategoryID = category.ID
		re.CategoryName = category.Name
		re, err = q.CreateRecurring(ctx, re)
		return err
	})
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("create recurring expense: %w", err)
	}

	slog.InfoContext(ctx, "Recurring expense created",
		log.FieldComponent, log.ComponentLedger,
		log.FieldUserID, userID,
		log.FieldRecurringID, re.ID,
		log.FieldAmountCents, re.Amount.Cents,
		"frequency", re.Frequency)
	return re, nil
}

func (s *LedgerService) ListRecurring(ctx context.Context, userID int64) ([]core.RecurringExpense, error) {
	return s.repo.Queries().ListRecurring(ctx, userID)
}

// DeleteRecurring removes a template. Expenses it already produced stay.
func (s *LedgerService) DeleteRecurring(ctx context.Context, userID, id int64) error {
	if err := s.repo.Queries().DeleteRecurring(ctx, userID, id); err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	slog.InfoContext(ctx, "Recurring expense deleted",
		log.FieldComponent, log.ComponentLedger,
		log.FieldUserID, userID,
		log.FieldRecurringID, id)
	return nil
}
