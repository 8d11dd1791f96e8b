package analytics

import (
	"sort"
	"time"

	"budget/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Build aggregates expenses into a report for window w. Expenses outside the
// window are ignored.
func Build(t ReportType, w Window, currency string, expenses []core.Expense, now time.Time) Report {
	type catAgg struct {
		cents int64
		count int
	}

	var (
		total    int64
		count    int
		cats     = map[string]*catAgg{}
		buckets  = map[string]int64{}
		split    Split
		recCents int64
		oneCents int64
	)

	for _, e := range expenses {
		if !w.Contains(e.Date) {
			continue
		}
		total += e.Amount.Cents
		count++

		name := e.DisplayCategory()
		a, ok := cats[name]
		if !ok {
			a = &catAgg{}
			cats[name] = a
		}
		a.cents += e.Amount.Cents
		a.count++

		buckets[bucketLabel(w.Bucket, e.Date)] += e.Amount.Cents

		if e.RecurringID != 0 {
			recCents += e.Amount.Cents
			split.RecurringCount++
		} else {
			oneCents += e.Amount.Cents
			split.OneTimeCount++
		}
	}

	byCategory := make([]CategoryTotal, 0, len(cats))
	for name, a := range cats {
		byCategory = append(byCategory, CategoryTotal{
			Category: name,
			Amount:   core.Money{Cents: a.cents}.String(),
			Count:    a.count,
			Share:    share(a.cents, total),
		})
	}
	sort.Slice(byCategory, func(i, j int) bool {
		ci, cj := cats[byCategory[i].Category].cents, cats[byCategory[j].Category].cents
		if ci != cj {
			return ci > cj
		}
		return byCategory[i].Category < byCategory[j].Category
	})

	split.Recurring = core.Money{Cents: recCents}.String()
	split.OneTime = core.Money{Cents: oneCents}.String()

	totalMoney := core.Money{Cents: total}
	return Report{
		Type:         t,
		PeriodStart:  w.Start.String(),
		PeriodEnd:    w.End.String(),
		Currency:     currency,
		Total:        totalMoney.String(),
		DailyAverage: totalMoney.Decimal().DivRound(decimal.NewFromInt(int64(w.Days())), 2).StringFixed(2),
		ExpenseCount: count,
		ByCategory:   byCategory,
		Trend:        trend(w, buckets),
		Split:        split,
		GeneratedAt:  now.UTC(),
	}
}

func share(part, total int64) string {
	if total == 0 {
		return "0.0"
	}
	return decimal.NewFromInt(part).Mul(hundred).DivRound(decimal.NewFromInt(total), 1).StringFixed(1)
}

func bucketLabel(g Granularity, d core.Date) string {
	if g == ByMonth {
		return d.Period()
	}
	return d.String()
}

// trend lists every bucket of the window in order, zero-filled.
func trend(w Window, buckets map[string]int64) []TrendPoint {
	var points []TrendPoint
	if w.Bucket == ByMonth {
		for m := w.Start.FirstOfMonth(); !m.After(w.End.Time); m = m.AddMonths(1) {
			label := m.Period()
			points = append(points, TrendPoint{Label: label, Amount: core.Money{Cents: buckets[label]}.String()})
		}
		return points
	}
	for d := w.Start; !d.After(w.End.Time); d = d.AddDays(1) {
		label := d.String()
		points = append(points, TrendPoint{Label: label, Amount: core.Money{Cents: buckets[label]}.String()})
	}
	return points
}
