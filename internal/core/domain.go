package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

const (
	DefaultCurrency   = "USD"
	DefaultUniversity = "No university added"
	Uncategorized     = "Uncategorized"
)

type (
	Frequency string

	// Date is a calendar day. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	User struct {
		ID        int64
		Username  string
		Email     string
		FirstName string
		LastName  string
		CreatedAt time.Time
	}

	Profile struct {
		ID                 int64
		UserID             int64
		PreferredCurrency  string
		MonthlySavingsGoal Money
		LastLogDate        Date // zero when the user never logged
		StreakCount        int
		LastPasswordChange time.Time
		PhoneNumber        string
		DOB                Date
		University         string
	}

	Category struct {
		ID     int64
		UserID int64 // 0 for global categories
		Name   string
	}

	Expense struct {
		ID           int64
		UserID       int64
		CategoryID   int64  // 0 when uncategorized
		CategoryName string // empty when uncategorized
		Amount       Money
		Date         Date
		Description  string
		RecurringID  int64 // set when materialized from a template
		CreatedAt    time.Time
	}

	RecurringExpense struct {
		ID            int64
		UserID        int64
		CategoryID    int64
		CategoryName  string
		Amount        Money
		Description   string
		Frequency     Frequency
		StartDate     Date
		EndDate       Date // zero means open ended
		LastExecution Date // zero when never materialized
	}
)

var (
	ErrInvalidDay         = fmt.Errorf("%w: invalid day", ErrValidation)
	ErrInvalidMonth       = fmt.Errorf("%w: invalid month", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyDescription   = fmt.Errorf("%w: empty description", ErrValidation)
	ErrEmptyCategory      = fmt.Errorf("%w: empty category name", ErrValidation)
	ErrEmptyUsername      = fmt.Errorf("%w: empty username", ErrValidation)
	ErrInvalidFrequency   = fmt.Errorf("%w: invalid frequency", ErrValidation)
	ErrInvalidCurrency    = fmt.Errorf("%w: invalid currency", ErrValidation)
	ErrNegativeGoal       = fmt.Errorf("%w: savings goal cannot be negative", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max 200 characters)", ErrValidation)
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q", ErrValidation, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrValidation)
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n calendar days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths moves by n months with time.AddDate normalization, so it is
// only exact from the first of a month.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

// DaysSince returns the number of whole calendar days from earlier to d.
func (d Date) DaysSince(earlier Date) int {
	return int(d.Time.Sub(earlier.Time).Round(time.Hour).Hours() / 24)
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// Period returns the YYYY-MM month key of d.
func (d Date) Period() string {
	return d.Format("2006-01")
}

func (f Frequency) Validate() error {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

// ParseFrequency accepts frequencies case-insensitively.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	if len(u.Username) > 150 {
		return fmt.Errorf("%w: username too long (max 150 characters)", ErrValidation)
	}
	return nil
}

func (p Profile) Validate() error {
	c := strings.TrimSpace(p.PreferredCurrency)
	if c == "" || len(c) > 10 {
		return ErrInvalidCurrency
	}
	if p.MonthlySavingsGoal.Cents < 0 {
		return ErrNegativeGoal
	}
	if len(p.PhoneNumber) > 20 {
		return fmt.Errorf("%w: phone number too long (max 20 characters)", ErrValidation)
	}
	if len(p.University) > 20 {
		return fmt.Errorf("%w: university too long (max 20 characters)", ErrValidation)
	}
	return nil
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyCategory
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: category name too long (max 100 characters)", ErrValidation)
	}
	return nil
}

// DisplayCategory returns the category name, or Uncategorized when the
// expense has none (never set, or the category was deleted).
func (e Expense) DisplayCategory() string {
	if strings.TrimSpace(e.CategoryName) == "" {
		return Uncategorized
	}
	return e.CategoryName
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (re RecurringExpense) Validate() error {
	if err := re.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	if !re.EndDate.IsZero() {
		if err := re.EndDate.Validate(); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		if re.EndDate.Before(re.StartDate.Time) {
			return fmt.Errorf("%w: end date must not be before start date", ErrValidation)
		}
	}

	if err := re.Frequency.Validate(); err != nil {
		return err
	}

	if len(strings.TrimSpace(re.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(re.Description) > 200 {
		return ErrDescriptionTooLong
	}

	return re.Amount.Validate()
}

// ActiveOn reports whether the template's [start, end] range covers day.
func (re RecurringExpense) ActiveOn(day Date) bool {
	if day.Before(re.StartDate.Time) {
		return false
	}
	return re.EndDate.IsZero() || !day.After(re.EndDate.Time)
}
