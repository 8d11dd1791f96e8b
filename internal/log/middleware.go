package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type contextKey struct{}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored by NewContext, or the process
// default when there is none.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return Default()
}

// StructuredLogger emits the recurring records of the service with a fixed
// message and field layout.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogHTTPStart records an incoming request.
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, requestID, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r).
		WithRequestID(requestID).
		WithClientIP(clientIP)
	if ua := r.UserAgent(); ua != "" {
		fields = append(fields, FieldUserAgent, ua)
	}
	sl.logger.WithComponent(ComponentHTTP).DebugContext(ctx, "HTTP request started", fields...)
}

// LogHTTPEnd records a finished request. Client errors are warnings and
// server errors are errors.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, requestID, clientIP string, status int, elapsed time.Duration) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r).
		WithHTTPResponse(status, elapsed).
		WithRequestID(requestID).
		WithClientIP(clientIP)
	sl.logger.WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", fields...)
}

// LogExpenseLogged records a committed expense with its streak and badge effects.
func (sl *StructuredLogger) LogExpenseLogged(ctx context.Context, userID, expenseID, amountCents int64, category, date string, streak int, outcome string, achievements []string) {
	fields := NewFields().
		WithOperation(OpCreate).
		WithUser(userID).
		WithExpense(expenseID, amountCents, category, date).
		WithStreak(streak, outcome).
		WithAchievements(achievements)
	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Expense logged", fields...)
}

// LogError records a failed operation of component.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields Fields) {
	fields = fields.WithOperation(operation).WithError(err)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields...)
}
