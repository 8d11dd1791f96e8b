package analytics

import (
	"errors"
	"testing"
	"time"

	"budget/internal/core"
)

func TestParseReportType(t *testing.T) {
	tests := []struct {
		in      string
		want    ReportType
		wantErr bool
	}{
		{"weekly", Weekly, false},
		{"Monthly", Monthly, false},
		{" YEARLY ", Yearly, false},
		{"daily", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseReportType(tt.in)
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("ParseReportType(%q) error = %v, want validation error", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseReportType(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestWindowFor(t *testing.T) {
	tests := []struct {
		name   string
		typ    ReportType
		today  core.Date
		start  string
		days   int
		bucket Granularity
	}{
		{"weekly", Weekly, core.NewDate(2024, 3, 5), "2024-02-28", 7, ByDay},
		{"monthly", Monthly, core.NewDate(2024, 3, 5), "2024-03-01", 5, ByDay},
		{"yearly leap", Yearly, core.NewDate(2024, 3, 5), "2024-01-01", 65, ByMonth},
		{"yearly common", Yearly, core.NewDate(2023, 3, 5), "2023-01-01", 64, ByMonth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WindowFor(tt.typ, tt.today)
			if w.Start.String() != tt.start {
				t.Errorf("start = %s, want %s", w.Start, tt.start)
			}
			if w.End != tt.today {
				t.Errorf("end = %s, want %s", w.End, tt.today)
			}
			if w.Days() != tt.days {
				t.Errorf("days = %d, want %d", w.Days(), tt.days)
			}
			if w.Bucket != tt.bucket {
				t.Errorf("bucket = %s, want %s", w.Bucket, tt.bucket)
			}
		})
	}
}

func expense(day int, cents int64, category string, recurring int64) core.Expense {
	return core.Expense{
		Date:         core.NewDate(2024, 3, day),
		Amount:       core.Money{Cents: cents},
		CategoryName: category,
		RecurringID:  recurring,
	}
}

func TestBuild(t *testing.T) {
	w := WindowFor(Monthly, core.NewDate(2024, 3, 4))
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	expenses := []core.Expense{
		expense(1, 1000, "Food", 0),
		expense(1, 90000, "Rent", 7),
		expense(3, 500, "Food", 0),
		expense(3, 1500, "", 0),
		{Date: core.NewDate(2024, 2, 28), Amount: core.Money{Cents: 99999}, CategoryName: "Food"},
	}

	r := Build(Monthly, w, "EUR", expenses, now)

	if r.Total != "930.00" {
		t.Errorf("Total = %s, want 930.00", r.Total)
	}
	if r.ExpenseCount != 4 {
		t.Errorf("ExpenseCount = %d, want 4", r.ExpenseCount)
	}
	if r.Currency != "EUR" || r.PeriodStart != "2024-03-01" || r.PeriodEnd != "2024-03-04" {
		t.Errorf("unexpected header %+v", r)
	}
	if r.DailyAverage != "232.50" {
		t.Errorf("DailyAverage = %s, want 232.50", r.DailyAverage)
	}

	wantCats := []CategoryTotal{
		{Category: "Rent", Amount: "900.00", Count: 1, Share: "96.8"},
		{Category: "Food", Amount: "15.00", Count: 2, Share: "1.6"},
		{Category: core.Uncategorized, Amount: "15.00", Count: 1, Share: "1.6"},
	}
	if len(r.ByCategory) != len(wantCats) {
		t.Fatalf("ByCategory = %+v", r.ByCategory)
	}
	for i, want := range wantCats {
		if r.ByCategory[i] != want {
			t.Errorf("ByCategory[%d] = %+v, want %+v", i, r.ByCategory[i], want)
		}
	}

	if len(r.Trend) != 4 {
		t.Fatalf("Trend has %d points, want 4", len(r.Trend))
	}
	if r.Trend[0].Amount != "910.00" || r.Trend[1].Amount != "0.00" || r.Trend[2].Amount != "20.00" {
		t.Errorf("Trend = %+v", r.Trend)
	}

	if r.Split.Recurring != "900.00" || r.Split.RecurringCount != 1 || r.Split.OneTime != "30.00" || r.Split.OneTimeCount != 3 {
		t.Errorf("Split = %+v", r.Split)
	}
}

func TestBuild_YearlyTrendByMonth(t *testing.T) {
	w := WindowFor(Yearly, core.NewDate(2024, 3, 4))
	r := Build(Yearly, w, "USD", []core.Expense{
		{Date: core.NewDate(2024, 1, 20), Amount: core.Money{Cents: 250}},
		{Date: core.NewDate(2024, 3, 2), Amount: core.Money{Cents: 100}},
	}, time.Now())

	want := []TrendPoint{{"2024-01", "2.50"}, {"2024-02", "0.00"}, {"2024-03", "1.00"}}
	if len(r.Trend) != len(want) {
		t.Fatalf("Trend = %+v", r.Trend)
	}
	for i := range want {
		if r.Trend[i] != want[i] {
			t.Errorf("Trend[%d] = %+v, want %+v", i, r.Trend[i], want[i])
		}
	}
}

func TestBuild_Empty(t *testing.T) {
	w := WindowFor(Weekly, core.NewDate(2024, 3, 4))
	r := Build(Weekly, w, "USD", nil, time.Now())
	if r.Total != "0.00" || r.ExpenseCount != 0 || len(r.ByCategory) != 0 || len(r.Trend) != 7 {
		t.Errorf("unexpected empty report %+v", r)
	}
}

func TestEncodeDecode(t *testing.T) {
	w := WindowFor(Weekly, core.NewDate(2024, 3, 4))
	r := Build(Weekly, w, "USD", []core.Expense{expense(2, 100, "Food", 0)}, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	data, err := r.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Total != r.Total || !got.GeneratedAt.Equal(r.GeneratedAt) || len(got.Trend) != len(r.Trend) {
		t.Errorf("Decode(Encode(r)) = %+v, want %+v", got, r)
	}
}
