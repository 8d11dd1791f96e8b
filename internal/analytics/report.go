// Package analytics builds per-user spending reports and keeps them cached
// until the underlying expenses change or the cache entry ages out.
package analytics

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"budget/internal/core"
)

type ReportType string

const (
	Weekly  ReportType = "WEEKLY"
	Monthly ReportType = "MONTHLY"
	Yearly  ReportType = "YEARLY"
)

var ErrUnknownReportType = fmt.Errorf("%w: unknown report type", core.ErrValidation)

// ParseReportType accepts report types case-insensitively.
func ParseReportType(s string) (ReportType, error) {
	t := ReportType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case Weekly, Monthly, Yearly:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReportType, s)
	}
}

// Granularity is the width of one trend bucket.
type Granularity string

const (
	ByDay   Granularity = "day"
	ByMonth Granularity = "month"
)

// Window is the inclusive date range a report covers.
type Window struct {
	Start  core.Date
	End    core.Date
	Bucket Granularity
}

// WindowFor returns the reporting window of t that ends on today.
func WindowFor(t ReportType, today core.Date) Window {
	switch t {
	case Weekly:
		return Window{Start: today.AddDays(-6), End: today, Bucket: ByDay}
	case Yearly:
		return Window{Start: core.NewDate(today.Year(), 1, 1), End: today, Bucket: ByMonth}
	default:
		return Window{Start: today.FirstOfMonth(), End: today, Bucket: ByDay}
	}
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d core.Date) bool {
	return !d.Before(w.Start.Time) && !d.After(w.End.Time)
}

// Days is the number of calendar days covered.
func (w Window) Days() int {
	return w.End.DaysSince(w.Start) + 1
}

// Report is the cached payload. Amounts are decimal strings with two
// fractional digits.
type Report struct {
	Type         ReportType      `json:"type"`
	PeriodStart  string          `json:"period_start"`
	PeriodEnd    string          `json:"period_end"`
	Currency     string          `json:"currency"`
	Total        string          `json:"total"`
	DailyAverage string          `json:"daily_average"`
	ExpenseCount int             `json:"expense_count"`
	ByCategory   []CategoryTotal `json:"by_category"`
	Trend        []TrendPoint    `json:"trend"`
	Split        Split           `json:"split"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

type CategoryTotal struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Count    int    `json:"count"`
	Share    string `json:"share_percent"`
}

type TrendPoint struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// Split separates spending materialized from recurring templates from
// expenses logged by hand.
type Split struct {
	Recurring      string `json:"recurring"`
	RecurringCount int    `json:"recurring_count"`
	OneTime        string `json:"one_time"`
	OneTimeCount   int    `json:"one_time_count"`
}

func (r Report) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
