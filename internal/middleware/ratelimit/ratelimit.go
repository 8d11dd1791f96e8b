// Package ratelimit caps how many requests a client may make per minute.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const (
	window = time.Minute
	// idleAfter is how long a client may stay quiet before it is forgotten.
	idleAfter = 10 * time.Minute
)

type Config struct {
	RequestsPerMinute int
	// SweepInterval controls how often idle clients are dropped.
	SweepInterval time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, SweepInterval: 5 * time.Minute}
}

type bucket struct {
	opened time.Time
	count  int
}

// Limiter counts requests per client in fixed one-minute windows.
type Limiter struct {
	limit int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	rejected atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter together with its sweeper goroutine. Call Stop
// to release it.
func NewLimiter(config Config) *Limiter {
	defaults := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	l := &Limiter{
		limit:   config.RequestsPerMinute,
		now:     config.Now,
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	go l.sweepEvery(config.SweepInterval)
	return l
}

// Take records a request from client. When the client is over its limit it
// returns false and the time left until its window reopens.
func (l *Limiter) Take(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[client]
	if b == nil || now.Sub(b.opened) >= window {
		l.buckets[client] = &bucket{opened: now, count: 1}
		return true, 0
	}

	b.count++
	if b.count <= l.limit {
		return true, 0
	}
	l.rejected.Add(1)
	return false, max(window-now.Sub(b.opened), 0)
}

// Allow is Take without the wait.
func (l *Limiter) Allow(client string) bool {
	ok, _ := l.Take(client)
	return ok
}

func (l *Limiter) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.done:
			return
		}
	}
}

func (l *Limiter) evictIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idleAfter)
	evicted := 0
	for client, b := range l.buckets {
		if b.opened.Before(cutoff) {
			delete(l.buckets, client)
			evicted++
		}
	}
	return evicted
}

// ActiveClients returns the number of clients with a live bucket.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the sweeper. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   l.rejected.Load(),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware limits the requests for which limited returns true. A nil
// limited applies the limit to every request. Rejected requests get a
// Retry-After header before onLimit writes the body.
func (l *Limiter) Middleware(clientOf func(*http.Request) string, limited func(*http.Request) bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limited == nil || limited(r) {
				if ok, wait := l.Take(clientOf(r)); !ok {
					w.Header().Set("Retry-After", strconv.Itoa(int(wait/time.Second)+1))
					onLimit(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
