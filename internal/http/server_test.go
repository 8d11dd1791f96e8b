package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"budget/internal/analytics"
	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/services"
	"budget/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ServerTestSuite struct {
	suite.Suite
	repo   *storage.SQLiteRepository
	now    time.Time
	server *Server
	userID int64
}

func (s *ServerTestSuite) SetupTest() {
	repo, err := storage.NewSQLiteRepository(filepath.Join(s.T().TempDir(), "budget.db"))
	require.NoError(s.T(), err)
	s.repo = repo
	s.now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	reports := analytics.NewService(repo, analytics.Options{CacheTTL: time.Hour, MemoryTTL: time.Minute, Now: clock})
	s.server = NewServer(":0", Deps{
		Ledger:             services.NewLedgerService(repo, services.WithReports(reports), services.WithClock(clock, time.UTC)),
		Accounts:           services.NewAccountService(repo, services.AccountOptions{Reports: reports, Now: clock}),
		Analytics:          reports,
		Export:             export.NewService(repo),
		Store:              repo,
		RateLimitPerMinute: 1000,
		Now:                clock,
	})

	rec := s.do(http.MethodPost, "/api/users", 0, `{"username":"alice","email":"alice@example.com"}`)
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	var created accountView
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &created))
	s.userID = created.User.ID
}

func (s *ServerTestSuite) TearDownTest() {
	_ = s.server.Shutdown(context.Background())
	s.repo.Close()
}

// do sends a request as userID; zero sends it anonymously.
func (s *ServerTestSuite) do(method, target string, userID int64, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != 0 {
		req.Header.Set(HeaderUserID, fmt.Sprint(userID))
	}
	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) decode(rec *httptest.ResponseRecorder, v any) {
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *ServerTestSuite) errorMessage(rec *httptest.ResponseRecorder) string {
	var body errorBody
	s.decode(rec, &body)
	return body.Error
}

func (s *ServerTestSuite) TestHealthEndpoints() {
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := s.do(http.MethodGet, path, 0, "")
		assert.Equal(s.T(), http.StatusOK, rec.Code, path)
		assert.Equal(s.T(), "application/json", rec.Header().Get("Content-Type"))
		assert.NotEmpty(s.T(), rec.Header().Get("X-Request-ID"))
		assert.Equal(s.T(), "nosniff", rec.Header().Get("X-Content-Type-Options"))
	}
}

func (s *ServerTestSuite) TestIdentityRequired() {
	rec := s.do(http.MethodGet, "/api/profile", 0, "")
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
	assert.Contains(s.T(), s.errorMessage(rec), HeaderUserID)

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set(HeaderUserID, "abc")
	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/profile", 999, "")
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *ServerTestSuite) TestCreateUserErrors() {
	rec := s.do(http.MethodPost, "/api/users", 0, `{"username":"alice"}`)
	assert.Equal(s.T(), http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/users", 0, `{"username":""}`)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPost, "/api/users", 0, `{"username":"bob","admin":true}`)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPost, "/api/users", 0, `not json`)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)
}

func (s *ServerTestSuite) TestLogExpenseStreakAndBadges() {
	rec := s.do(http.MethodPost, "/api/expenses", s.userID, `{"amount":"12.50","category":"Food","description":"lunch"}`)
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())

	var first logExpenseView
	s.decode(rec, &first)
	assert.Equal(s.T(), "12.50", first.Expense.Amount)
	assert.Equal(s.T(), "Food", first.Expense.Category)
	assert.Equal(s.T(), "2024-03-01", first.Expense.Date)
	assert.Equal(s.T(), 1, first.Streak)
	require.Len(s.T(), first.NewAchievements, 1)
	assert.Equal(s.T(), "FIRST_LOG", string(first.NewAchievements[0].Key))

	s.now = s.now.AddDate(0, 0, 1)
	rec = s.do(http.MethodPost, "/api/expenses", s.userID, `{"amount":3,"category":"Food","description":"coffee"}`)
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	var second logExpenseView
	s.decode(rec, &second)
	assert.Equal(s.T(), "3.00", second.Expense.Amount)
	assert.Equal(s.T(), 2, second.Streak)
	assert.Empty(s.T(), second.NewAchievements)

	rec = s.do(http.MethodGet, "/api/profile", s.userID, "")
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var profile accountView
	s.decode(rec, &profile)
	assert.Equal(s.T(), 2, profile.CurrentStreak)
	assert.Equal(s.T(), "2024-03-02", profile.Profile.LastLogDate)
	require.Len(s.T(), profile.Achievements, 1)
	assert.NotNil(s.T(), profile.Achievements[0].EarnedAt)
}

func (s *ServerTestSuite) TestLogExpenseValidation() {
	tests := []struct {
		name string
		body string
	}{
		{"negative amount", `{"amount":"-1","description":"x"}`},
		{"zero amount", `{"amount":"0","description":"x"}`},
		{"bad date", `{"amount":"1","date":"2024-13-40","description":"x"}`},
		{"missing amount", `{"description":"x"}`},
	}
	for _, tt := range tests {
		rec := s.do(http.MethodPost, "/api/expenses", s.userID, tt.body)
		assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code, tt.name)
		assert.NotEmpty(s.T(), s.errorMessage(rec), tt.name)
	}
}

func (s *ServerTestSuite) TestListExpensesRange() {
	for _, date := range []string{"2024-02-10", "2024-02-20", "2024-03-01"} {
		rec := s.do(http.MethodPost, "/api/expenses", s.userID, fmt.Sprintf(`{"amount":"1","date":%q,"description":"x"}`, date))
		require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodGet, "/api/expenses?from=2024-02-15&to=2024-03-01", s.userID, "")
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var list []expenseView
	s.decode(rec, &list)
	assert.Len(s.T(), list, 2)

	rec = s.do(http.MethodGet, "/api/expenses?from=2024-03-01&to=2024-02-01", s.userID, "")
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodGet, "/api/expenses?from=yesterday", s.userID, "")
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)
}

func (s *ServerTestSuite) TestUpdateProfileGrantsGoalSetter() {
	rec := s.do(http.MethodPatch, "/api/profile", s.userID, `{"monthly_savings_goal":"250.00","preferred_currency":"eur"}`)
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Profile         profileView `json:"profile"`
		NewAchievements []badgeView `json:"new_achievements"`
	}
	s.decode(rec, &body)
	assert.Equal(s.T(), "250.00", body.Profile.MonthlySavingsGoal)
	assert.Equal(s.T(), "EUR", body.Profile.PreferredCurrency)
	require.Len(s.T(), body.NewAchievements, 1)
	assert.Equal(s.T(), "GOAL_SETTER", string(body.NewAchievements[0].Key))

	rec = s.do(http.MethodPatch, "/api/profile", s.userID, `{"monthly_savings_goal":"-5"}`)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)
}

func (s *ServerTestSuite) TestAchievementCatalog() {
	s.do(http.MethodPost, "/api/expenses", s.userID, `{"amount":"1","description":"x"}`)

	rec := s.do(http.MethodGet, "/api/achievements", s.userID, "")
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var badges []badgeView
	s.decode(rec, &badges)
	assert.Len(s.T(), badges, 9)

	earned := 0
	for _, b := range badges {
		if b.EarnedAt != nil {
			earned++
			assert.Equal(s.T(), "FIRST_LOG", string(b.Key))
		}
	}
	assert.Equal(s.T(), 1, earned)
}

func (s *ServerTestSuite) TestCategories() {
	rec := s.do(http.MethodPost, "/api/categories", s.userID, `{"name":"Books"}`)
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	var created categoryView
	s.decode(rec, &created)
	assert.False(s.T(), created.Global)

	rec = s.do(http.MethodPost, "/api/categories", s.userID, `{"name":"Books"}`)
	assert.Equal(s.T(), http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/categories", s.userID, "")
	require.Equal(s.T(), http.StatusOK, rec.Code)
	var list []categoryView
	s.decode(rec, &list)
	assert.NotEmpty(s.T(), list)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/categories/%d", created.ID), s.userID, "")
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/categories/%d", created.ID), s.userID, "")
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/api/categories/abc", s.userID, "")
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)
}

func (s *ServerTestSuite) TestRecurring() {
	rec := s.do(http.MethodPost, "/api/recurring", s.userID,
		`{"amount":"9.99","category":"Subscriptions","description":"music","frequency":"monthly","start_date":"2024-03-05"}`)
	require.Equal(s.T(), http.StatusCreated, rec.Code, rec.Body.String())
	var created recurringView
	s.decode(rec, &created)
	assert.Equal(s.T(), "9.99", created.Amount)
	assert.Equal(s.T(), "MONTHLY", created.Frequency)
	assert.Empty(s.T(), created.LastExecution)

	rec = s.do(http.MethodPost, "/api/recurring", s.userID,
		`{"amount":"9.99","description":"music","frequency":"hourly","start_date":"2024-03-05"}`)
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodGet, "/api/recurring", s.userID, "")
	var list []recurringView
	s.decode(rec, &list)
	assert.Len(s.T(), list, 1)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/recurring/%d", created.ID), s.userID, "")
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)
}

func (s *ServerTestSuite) TestAnalyticsReport() {
	s.do(http.MethodPost, "/api/expenses", s.userID, `{"amount":"10","category":"Food","description":"x"}`)
	s.do(http.MethodPost, "/api/expenses", s.userID, `{"amount":"5","category":"Books","description":"y"}`)

	rec := s.do(http.MethodGet, "/api/analytics/Monthly", s.userID, "")
	require.Equal(s.T(), http.StatusOK, rec.Code, rec.Body.String())
	var report analytics.Report
	s.decode(rec, &report)
	assert.Equal(s.T(), analytics.Monthly, report.Type)
	assert.Equal(s.T(), "15.00", report.Total)
	assert.Equal(s.T(), 2, report.ExpenseCount)

	rec = s.do(http.MethodGet, "/api/analytics/daily", s.userID, "")
	assert.Equal(s.T(), http.StatusUnprocessableEntity, rec.Code)
}

func (s *ServerTestSuite) TestExportCSV() {
	s.do(http.MethodPost, "/api/expenses", s.userID, `{"amount":"7.25","category":"Food","description":"pizza, large"}`)

	rec := s.do(http.MethodGet, "/api/expenses/export", s.userID, "")
	require.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(s.T(), rec.Header().Get("Content-Disposition"), "expenses-2024-03-01.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(s.T(), lines, 2)
	assert.Equal(s.T(), strings.Join(export.Header, ","), strings.TrimSpace(lines[0]))
	assert.Contains(s.T(), lines[1], `"pizza, large"`)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", core.ErrValidation), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrap: %w", core.ErrConflict), http.StatusConflict},
		{fmt.Errorf("wrap: %w", core.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusForError(tt.err); got != tt.want {
			t.Errorf("StatusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
