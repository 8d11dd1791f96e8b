package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/storage"

	"golang.org/x/sync/singleflight"
)

type Options struct {
	CacheTTL   time.Duration // age after which a persisted report is rebuilt
	MemoryTTL  time.Duration // lifetime of in-process copies; 0 disables them
	MemorySize int
	Location   *time.Location
	Now        func() time.Time
}

type memoryEntry struct {
	periodStart string
	data        []byte
}

// Service serves reports from the analytics_cache table, rebuilding them
// when missing, stale or for a past window.
type Service struct {
	repo   *storage.SQLiteRepository
	ttl    time.Duration
	loc    *time.Location
	now    func() time.Time
	memory *cache.LRUCache[memoryEntry]
	group  singleflight.Group

	mu  sync.Mutex
	gen map[int64]uint64
}

func NewService(repo *storage.SQLiteRepository, opts Options) *Service {
	s := &Service{
		repo: repo,
		ttl:  opts.CacheTTL,
		loc:  opts.Location,
		now:  opts.Now,
		gen:  make(map[int64]uint64),
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.MemoryTTL > 0 {
		size := opts.MemorySize
		if size <= 0 {
			size = 1024
		}
		s.memory = cache.NewLRUCache[memoryEntry](size, opts.MemoryTTL).WithClock(s.now)
	}
	return s
}

// Memory exposes the in-process layer for periodic cleanup. It is nil when
// disabled.
func (s *Service) Memory() cache.Cleaner {
	if s.memory == nil {
		return nil
	}
	return s.memory
}

func memoryKey(userID int64, t ReportType) string {
	return strconv.FormatInt(userID, 10) + ":" + string(t)
}

// Invalidate drops the user's in-process reports. Persisted rows are
// removed by the writer inside its own transaction.
func (s *Service) Invalidate(userID int64) {
	s.mu.Lock()
	s.gen[userID]++
	s.mu.Unlock()

	if s.memory != nil {
		s.memory.DeletePrefix(strconv.FormatInt(userID, 10) + ":")
	}
}

func (s *Service) generation(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[userID]
}

// GetReport returns the encoded report of type t for the user. Repeated
// calls with no intervening expense write return identical bytes.
func (s *Service) GetReport(ctx context.Context, userID int64, t ReportType) ([]byte, error) {
	now := s.now()
	w := WindowFor(t, core.DateOf(now, s.loc))
	key := memoryKey(userID, t)
	gen := s.generation(userID)

	if s.memory != nil {
		if e, ok := s.memory.Get(key); ok && e.periodStart == w.Start.String() {
			return e.data, nil
		}
	}

	// the load is shared by every waiter, so one caller leaving must not fail the rest
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key+":"+w.Start.String(), func() (interface{}, error) {
		return s.load(shared, userID, t, w, now)
	})
	if err != nil {
		return nil, err
	}
	data := v.([]byte)

	if s.memory != nil && s.generation(userID) == gen {
		s.memory.Set(key, memoryEntry{periodStart: w.Start.String(), data: data})
	}
	return data, nil
}

// Report is GetReport decoded.
func (s *Service) Report(ctx context.Context, userID int64, t ReportType) (Report, error) {
	data, err := s.GetReport(ctx, userID, t)
	if err != nil {
		return Report{}, err
	}
	return Decode(data)
}

func (s *Service) load(ctx context.Context, userID int64, t ReportType, w Window, now time.Time) ([]byte, error) {
	var data []byte
	err := s.repo.InTx(ctx, func(q *storage.Queries) error {
		row, err := q.GetAnalyticsCache(ctx, userID, string(t))
		switch {
		case err == nil:
			if s.fresh(row, w, now) {
				data = []byte(row.Data)
				return nil
			}
		case errors.Is(err, core.ErrNotFound):
		default:
			return err
		}

		profile, err := q.GetProfileByUserID(ctx, userID)
		if err != nil {
			return err
		}
		expenses, err := q.ListExpenses(ctx, userID, w.Start, w.End)
		if err != nil {
			return err
		}

		data, err = Build(t, w, profile.PreferredCurrency, expenses, now).Encode()
		if err != nil {
			return err
		}

		slog.DebugContext(ctx, "Analytics report rebuilt",
			log.FieldComponent, log.ComponentAnalytics,
			log.FieldUserID, userID,
			log.FieldReportType, t,
			"expenses", len(expenses))

		return q.UpsertAnalyticsCache(ctx, storage.AnalyticsCacheRow{
			UserID:      userID,
			ReportType:  string(t),
			PeriodStart: w.Start,
			Data:        string(data),
			LastUpdated: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load %s report: %w", t, err)
	}
	return data, nil
}

func (s *Service) fresh(row storage.AnalyticsCacheRow, w Window, now time.Time) bool {
	if !row.PeriodStart.Equal(w.Start.Time) {
		return false
	}
	return now.Sub(row.LastUpdated) < s.ttl
}
