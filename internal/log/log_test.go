package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newJSONLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Handler: slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})})
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record %q is not JSON: %v", buf.String(), err)
	}
	buf.Reset()
	return rec
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestLogger_StampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelInfo)

	logger.InfoContext(context.Background(), "started")
	if rec := decode(t, &buf); rec[FieldComponent] != ComponentApp {
		t.Errorf("component = %v, want %q", rec[FieldComponent], ComponentApp)
	}

	logger.WithComponent(ComponentLedger).With(FieldUserID, 7).WarnContext(context.Background(), "slow")
	rec := decode(t, &buf)
	if rec[FieldComponent] != ComponentLedger || rec[FieldUserID] != float64(7) {
		t.Errorf("record = %v", rec)
	}

	logger.DebugContext(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record written at info level: %s", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, slog.LevelInfo).With(FieldRequestID, "req-1")
	ctx := NewContext(context.Background(), logger)

	FromContext(ctx).InfoContext(ctx, "hello")
	if rec := decode(t, &buf); rec[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v, want req-1", rec[FieldRequestID])
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext without a logger should fall back to the default")
	}
}

func TestStructuredLogger_HTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, slog.LevelDebug))
	r := httptest.NewRequest("POST", "/api/expenses?x=1", nil)

	for status, level := range map[int]string{200: "INFO", 422: "WARN", 500: "ERROR"} {
		sl.LogHTTPEnd(context.Background(), r, "req-1", "10.0.0.1", status, 1500*time.Millisecond)
		rec := decode(t, &buf)
		if rec["level"] != level {
			t.Errorf("status %d logged at %v, want %s", status, rec["level"], level)
		}
		if rec[FieldDuration] != float64(1500) || rec[FieldQuery] != "x=1" || rec[FieldComponent] != ComponentHTTP {
			t.Errorf("record = %v", rec)
		}
	}
}

func TestStructuredLogger_ExpenseAndError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, slog.LevelInfo))

	sl.LogExpenseLogged(context.Background(), 7, 42, 1250, "Food", "2024-03-01", 3, "incremented", nil)
	rec := decode(t, &buf)
	if _, ok := rec[FieldAchievements]; ok {
		t.Error("empty achievements should be omitted")
	}
	if rec[FieldStreak] != float64(3) || rec[FieldCategory] != "Food" {
		t.Errorf("record = %v", rec)
	}

	sl.LogError(context.Background(), "publish failed", errors.New("broker down"), ComponentAMQP, OpPublish, NewFields().WithUser(7))
	rec = decode(t, &buf)
	if rec[FieldError] != "broker down" || rec[FieldOperation] != OpPublish || rec[FieldComponent] != ComponentAMQP {
		t.Errorf("record = %v", rec)
	}
}

func TestFields_Order(t *testing.T) {
	f := NewFields().WithUser(1).WithOperation(OpRead).WithClientIP("")
	got := make([]string, 0, len(f)/2)
	for i := 0; i < len(f); i += 2 {
		got = append(got, f[i].(string))
	}
	if strings.Join(got, ",") != "user_id,operation" {
		t.Errorf("keys = %v", got)
	}
}
