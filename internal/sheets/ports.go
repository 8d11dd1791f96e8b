// Package sheets defines the export mirror port and its adapters.
package sheets

import (
	"context"

	"budget/internal/export"
)

// RowAppender appends one exported expense row to an external ledger.
type RowAppender interface {
	AppendRow(ctx context.Context, row export.Row) (ref string, err error)
}
