package memory

import (
	"context"
	"errors"
	"testing"

	"budget/internal/export"
)

func TestStoreAppendRow(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendRow(ctx, export.Row{Date: "2024-01-01", Amount: "1.23"})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, _ = s.AppendRow(ctx, export.Row{Date: "2024-01-02", Amount: "4.56"})
	if ref != "mem:2" {
		t.Fatalf("ref = %q, want mem:2", ref)
	}

	rows := s.Rows()
	if len(rows) != 2 || rows[1].Amount != "4.56" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	rows[0].Amount = "changed"
	if s.Rows()[0].Amount != "1.23" {
		t.Error("Rows must return a copy")
	}
}

func TestStoreFailWith(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailWith(boom)
	if _, err := s.AppendRow(context.Background(), export.Row{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	s.FailWith(nil)
	if _, err := s.AppendRow(context.Background(), export.Row{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Rows()) != 1 {
		t.Fatalf("rows = %d, want 1", len(s.Rows()))
	}
}
