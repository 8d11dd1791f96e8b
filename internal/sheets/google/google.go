// Package google mirrors exported expense rows into a Google Sheets
// spreadsheet, one tab per year.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"budget/internal/export"
	ports "budget/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ports.RowAppender = (*Client)(nil)

type Config struct {
	SpreadsheetID   string
	SheetName       string // base tab name; the row's year is prefixed
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	mu          sync.Mutex
	headersDone map[string]bool
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Expenses"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
		headersDone:   make(map[string]bool),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline service account credentials")
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// yearPrefixedName returns "<year> <base>" unless base already carries a
// year or a %d pattern.
func yearPrefixedName(base string, year int) string {
	if strings.Contains(base, "%d") {
		return fmt.Sprintf(base, year)
	}
	if fields := strings.Fields(base); len(fields) > 0 {
		if _, err := strconv.Atoi(fields[0]); err == nil && len(fields[0]) == 4 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func (c *Client) tabFor(row export.Row) string {
	year := 0
	if len(row.Date) >= 4 {
		year, _ = strconv.Atoi(row.Date[:4])
	}
	return yearPrefixedName(c.sheetBase, year)
}

func toValues(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// AppendRow appends row below the last filled row of the year's tab and
// returns the updated range.
func (c *Client) AppendRow(ctx context.Context, row export.Row) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	tab := c.tabFor(row)

	if err := c.ensureHeader(ctx, tab); err != nil {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]interface{}{toValues(row.Values())}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, tab+"!A:E", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append row to %s: %w", tab, err)
	}

	ref := tab
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// ensureHeader writes the export header into an empty tab, once per tab per
// process.
func (c *Client) ensureHeader(ctx context.Context, tab string) error {
	c.mu.Lock()
	done := c.headersDone[tab]
	c.mu.Unlock()
	if done {
		return nil
	}

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, tab+"!A1:E1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", tab, err)
	}
	if len(resp.Values) == 0 {
		vr := &gsheet.ValueRange{Values: [][]interface{}{toValues(export.Header)}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, tab+"!A1:E1", vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header of %s: %w", tab, err)
		}
		slog.InfoContext(ctx, "Wrote export header", "sheet", tab)
	}

	c.mu.Lock()
	c.headersDone[tab] = true
	c.mu.Unlock()
	return nil
}
