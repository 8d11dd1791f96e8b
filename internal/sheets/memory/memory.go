// Package memory is an in-process export mirror used when no spreadsheet
// is configured, and by tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budget/internal/export"
	ports "budget/internal/sheets"
)

var _ ports.RowAppender = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows []export.Row
	fail error
}

func New() *Store {
	return &Store{}
}

// AppendRow stores the row and returns a synthetic row reference.
func (s *Store) AppendRow(_ context.Context, row export.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []export.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Row(nil), s.rows...)
}

// FailWith makes subsequent appends return err until called with nil.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}
