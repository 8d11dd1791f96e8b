// Package export renders a user's ledger as delimited text rows.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"budget/internal/core"
	"budget/internal/storage"
)

var Header = []string{"Date", "Category", "Amount", "Currency", "Description"}

// Row is one exported expense, already formatted.
type Row struct {
	Date        string
	Category    string
	Amount      string
	Currency    string
	Description string
}

func RowFor(e core.Expense, currency string) Row {
	return Row{
		Date:        e.Date.String(),
		Category:    e.DisplayCategory(),
		Amount:      e.Amount.String(),
		Currency:    currency,
		Description: e.Description,
	}
}

// Values returns the row in Header order.
func (r Row) Values() []string {
	return []string{r.Date, r.Category, r.Amount, r.Currency, r.Description}
}

// WriteCSV writes the header followed by rows.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Filename is the suggested download name for an export made on day.
func Filename(day core.Date) string {
	return "expenses-" + day.String() + ".csv"
}

type Service struct {
	repo *storage.SQLiteRepository
}

func NewService(repo *storage.SQLiteRepository) *Service {
	return &Service{repo: repo}
}

// Rows returns the user's expenses, oldest first, in the profile currency.
func (s *Service) Rows(ctx context.Context, userID int64) ([]Row, error) {
	q := s.repo.Queries()
	profile, err := q.GetProfileByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	expenses, err := q.ListExpenses(ctx, userID, core.Date{}, core.Date{})
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(expenses))
	for i, e := range expenses {
		rows[i] = RowFor(e, profile.PreferredCurrency)
	}
	return rows, nil
}

func (s *Service) WriteCSV(ctx context.Context, userID int64, w io.Writer) error {
	rows, err := s.Rows(ctx, userID)
	if err != nil {
		return fmt.Errorf("export expenses: %w", err)
	}
	return WriteCSV(w, rows)
}

// RowForExpense loads a single expense owned by userID.
func (s *Service) RowForExpense(ctx context.Context, userID, expenseID int64) (Row, error) {
	q := s.repo.Queries()
	e, err := q.GetExpense(ctx, expenseID)
	if err != nil {
		return Row{}, err
	}
	if e.UserID != userID {
		return Row{}, fmt.Errorf("%w: expense %d", core.ErrNotFound, expenseID)
	}
	profile, err := q.GetProfileByUserID(ctx, userID)
	if err != nil {
		return Row{}, err
	}
	return RowFor(e, profile.PreferredCurrency), nil
}
