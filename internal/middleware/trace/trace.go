// Package trace tags every request with an ID, a request-scoped logger and
// start/end log records.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"budget/internal/log"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

type Metrics struct {
	TotalRequests int64
	ServerErrors  int64
	// AverageResponseTime is in microseconds.
	AverageResponseTime int64
}

type Middleware struct {
	clientIP   func(*http.Request) string
	logger     *log.Logger
	structured *log.StructuredLogger

	requests     atomic.Int64
	serverErrors atomic.Int64
	totalMicros  atomic.Int64
}

// NewMiddleware builds the tracer. A nil logger uses the process default.
func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return &Middleware{
		clientIP:   clientIP,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
	}
}

// Middleware wraps next. Handlers find the request-scoped logger with
// log.FromContext and the ID with RequestID.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := requestID(r)
		ip := ""
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = log.NewContext(ctx, m.logger.With(log.FieldRequestID, id))
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, id)

		m.structured.LogHTTPStart(ctx, r, id, ip)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		m.requests.Add(1)
		m.totalMicros.Add(elapsed.Microseconds())
		if rec.status >= 500 {
			m.serverErrors.Add(1)
		}
		m.structured.LogHTTPEnd(ctx, r, id, ip, rec.status, elapsed)
	})
}

// requestID reuses a caller supplied UUID so a request can be followed
// across services, and mints a new one otherwise.
func requestID(r *http.Request) string {
	if in := r.Header.Get(HeaderRequestID); in != "" {
		if id, err := uuid.Parse(in); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}

// RequestID returns the ID assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (m *Middleware) GetMetrics() Metrics {
	out := Metrics{
		TotalRequests: m.requests.Load(),
		ServerErrors:  m.serverErrors.Load(),
	}
	if out.TotalRequests > 0 {
		out.AverageResponseTime = m.totalMicros.Load() / out.TotalRequests
	}
	return out
}

// statusRecorder remembers the first status written to the response.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}
