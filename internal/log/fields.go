package log

import (
	"net/http"
	"time"
)

// Field names shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldUserID        = "user_id"
	FieldProfileID     = "profile_id"
	FieldExpenseID     = "expense_id"
	FieldRecurringID   = "recurring_id"
	FieldAmountCents   = "amount_cents"
	FieldCategory      = "category"
	FieldExpenseDate   = "expense_date"
	FieldStreak        = "streak"
	FieldStreakOutcome = "streak_outcome"
	FieldAchievements  = "achievements"
	FieldReportType    = "report_type"
	FieldPeriod        = "period"
	FieldMessageID     = "message_id"
	FieldSheetsRef     = "sheets_ref"
)

// Component names, one per subsystem.
const (
	ComponentApp          = "app"
	ComponentHTTP         = "http"
	ComponentLedger       = "ledger"
	ComponentAccounts     = "accounts"
	ComponentAchievements = "achievements"
	ComponentAnalytics    = "analytics"
	ComponentRecurring    = "recurring"
	ComponentGoals        = "goals"
	ComponentExport       = "export"
	ComponentStorage      = "storage"
	ComponentAMQP         = "amqp"
	ComponentWorker       = "worker"
	ComponentSheets       = "sheets"
	ComponentSecurity     = "security"
)

// Operation names.
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpPublish  = "publish"
	OpParse    = "parse"
	OpShutdown = "shutdown"
)

// Fields accumulates key/value pairs in insertion order so records read
// the same way every time.
type Fields []any

func NewFields() Fields {
	return make(Fields, 0, 16)
}

func (f Fields) WithRequestID(requestID string) Fields {
	return append(f, FieldRequestID, requestID)
}

func (f Fields) WithClientIP(ip string) Fields {
	if ip == "" {
		return f
	}
	return append(f, FieldClientIP, ip)
}

func (f Fields) WithError(err error) Fields {
	if err == nil {
		return f
	}
	return append(f, FieldError, err.Error())
}

func (f Fields) WithOperation(op string) Fields {
	return append(f, FieldOperation, op)
}

func (f Fields) WithUser(userID int64) Fields {
	return append(f, FieldUserID, userID)
}

// WithExpense describes a stored expense.
func (f Fields) WithExpense(id, amountCents int64, category, date string) Fields {
	return append(f,
		FieldExpenseID, id,
		FieldAmountCents, amountCents,
		FieldCategory, category,
		FieldExpenseDate, date)
}

// WithStreak records the streak counter and how the last event moved it.
func (f Fields) WithStreak(count int, outcome string) Fields {
	return append(f, FieldStreak, count, FieldStreakOutcome, outcome)
}

// WithAchievements adds newly granted badge keys. Nothing is added when
// no badge was granted.
func (f Fields) WithAchievements(keys []string) Fields {
	if len(keys) == 0 {
		return f
	}
	return append(f, FieldAchievements, keys)
}

func (f Fields) WithHTTPRequest(r *http.Request) Fields {
	f = append(f, FieldMethod, r.Method, FieldPath, r.URL.Path)
	if r.URL.RawQuery != "" {
		f = append(f, FieldQuery, r.URL.RawQuery)
	}
	return f
}

func (f Fields) WithHTTPResponse(status int, elapsed time.Duration) Fields {
	return append(f, FieldStatusCode, status, FieldDuration, elapsed.Milliseconds())
}
