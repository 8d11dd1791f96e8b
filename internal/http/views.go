package http

import (
	"time"

	"budget/internal/achievements"
	"budget/internal/core"
	"budget/internal/services"
)

// JSON views of domain values. Amounts are fixed two-decimal strings and
// dates are YYYY-MM-DD; an unset date is omitted.

type userView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type profileView struct {
	ID                 int64  `json:"id"`
	UserID             int64  `json:"user_id"`
	PreferredCurrency  string `json:"preferred_currency"`
	MonthlySavingsGoal string `json:"monthly_savings_goal"`
	LastLogDate        string `json:"last_log_date,omitempty"`
	StreakCount        int    `json:"streak_count"`
	PhoneNumber        string `json:"phone_number,omitempty"`
	DOB                string `json:"dob,omitempty"`
	University         string `json:"university"`
}

type badgeView struct {
	achievements.Definition
	EarnedAt *time.Time `json:"earned_at,omitempty"`
}

type accountView struct {
	User          userView    `json:"user"`
	Profile       profileView `json:"profile"`
	CurrentStreak int         `json:"current_streak"`
	Achievements  []badgeView `json:"achievements"`
}

type expenseView struct {
	ID          int64     `json:"id"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	RecurringID int64     `json:"recurring_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type logExpenseView struct {
	Expense         expenseView `json:"expense"`
	Streak          int         `json:"streak"`
	StreakOutcome   string      `json:"streak_outcome"`
	NewAchievements []badgeView `json:"new_achievements"`
}

type categoryView struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Global bool   `json:"global"`
}

type recurringView struct {
	ID            int64  `json:"id"`
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	Frequency     string `json:"frequency"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date,omitempty"`
	LastExecution string `json:"last_execution,omitempty"`
}

func dateString(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.String()
}

func newUserView(u core.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
}

func newProfileView(p core.Profile) profileView {
	return profileView{
		ID:                 p.ID,
		UserID:             p.UserID,
		PreferredCurrency:  p.PreferredCurrency,
		MonthlySavingsGoal: p.MonthlySavingsGoal.String(),
		LastLogDate:        dateString(p.LastLogDate),
		StreakCount:        p.StreakCount,
		PhoneNumber:        p.PhoneNumber,
		DOB:                dateString(p.DOB),
		University:         p.University,
	}
}

func newAccountView(v services.ProfileView) accountView {
	badges := make([]badgeView, 0, len(v.Achievements))
	for _, b := range v.Achievements {
		earned := b.EarnedAt
		badges = append(badges, badgeView{Definition: b.Definition, EarnedAt: &earned})
	}
	return accountView{
		User:          newUserView(v.User),
		Profile:       newProfileView(v.Profile),
		CurrentStreak: v.CurrentStreak,
		Achievements:  badges,
	}
}

// catalogBadges resolves keys to their definitions, skipping unknown keys.
func catalogBadges(keys []achievements.Key) []badgeView {
	out := make([]badgeView, 0, len(keys))
	for _, k := range keys {
		if def, ok := achievements.Lookup(k); ok {
			out = append(out, badgeView{Definition: def})
		}
	}
	return out
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		Amount:      e.Amount.String(),
		Category:    e.DisplayCategory(),
		Date:        e.Date.String(),
		Description: e.Description,
		RecurringID: e.RecurringID,
		CreatedAt:   e.CreatedAt,
	}
}

func newLogExpenseView(r services.LogResult) logExpenseView {
	return logExpenseView{
		Expense:         newExpenseView(r.Expense),
		Streak:          r.Streak,
		StreakOutcome:   r.Outcome.String(),
		NewAchievements: catalogBadges(r.NewAchievements),
	}
}

func newCategoryView(c core.Category) categoryView {
	return categoryView{ID: c.ID, Name: c.Name, Global: c.UserID == 0}
}

func newRecurringView(re core.RecurringExpense) recurringView {
	category := re.CategoryName
	if category == "" {
		category = core.Uncategorized
	}
	return recurringView{
		ID:            re.ID,
		Amount:        re.Amount.String(),
		Category:      category,
		Description:   re.Description,
		Frequency:     string(re.Frequency),
		StartDate:     re.StartDate.String(),
		EndDate:       dateString(re.EndDate),
		LastExecution: dateString(re.LastExecution),
	}
}

func mapSlice[T, V any](in []T, f func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
