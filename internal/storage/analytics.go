package storage

import (
	"context"
	"fmt"
	"time"

	"budget/internal/core"
)

// AnalyticsCacheRow is one persisted report payload.
type AnalyticsCacheRow struct {
	UserID      int64
	ReportType  string
	PeriodStart core.Date
	Data        string
	LastUpdated time.Time
}

const getAnalyticsCache = `-- name: GetAnalyticsCache :one
SELECT user_id, report_type, period_start, data, last_updated
FROM analytics_cache WHERE user_id = ? AND report_type = ?`

func (q *Queries) GetAnalyticsCache(ctx context.Context, userID int64, reportType string) (AnalyticsCacheRow, error) {
	var (
		row          AnalyticsCacheRow
		start, stamp string
	)
	err := q.db.QueryRowContext(ctx, getAnalyticsCache, userID, reportType).Scan(
		&row.UserID, &row.ReportType, &start, &row.Data, &stamp,
	)
	if err != nil {
		return AnalyticsCacheRow{}, fmt.Errorf("get analytics cache: %w", mapError(err))
	}
	d, err := core.ParseDate(start)
	if err != nil {
		return AnalyticsCacheRow{}, fmt.Errorf("analytics cache period: %w", err)
	}
	row.PeriodStart = d
	row.LastUpdated = parseTime(stamp)
	return row, nil
}

const upsertAnalyticsCache = `-- name: UpsertAnalyticsCache :exec
INSERT INTO analytics_cache (user_id, report_type, period_start, data, last_updated)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id, report_type) DO UPDATE SET
    period_start = excluded.period_start,
    data = excluded.data,
    last_updated = excluded.last_updated`

// UpsertAnalyticsCache stores a payload. Concurrent writers for the same key
// resolve last-writer-wins.
func (q *Queries) UpsertAnalyticsCache(ctx context.Context, row AnalyticsCacheRow) error {
	_, err := q.db.ExecContext(ctx, upsertAnalyticsCache,
		row.UserID, row.ReportType, row.PeriodStart.String(), row.Data, formatTime(row.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("upsert analytics cache: %w", err)
	}
	return nil
}

const deleteAnalyticsCache = `-- name: DeleteAnalyticsCache :exec
DELETE FROM analytics_cache WHERE user_id = ?`

func (q *Queries) DeleteAnalyticsCache(ctx context.Context, userID int64) error {
	if _, err := q.db.ExecContext(ctx, deleteAnalyticsCache, userID); err != nil {
		return fmt.Errorf("invalidate analytics cache: %w", err)
	}
	return nil
}
