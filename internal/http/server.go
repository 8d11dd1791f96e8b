package http

import (
	"context"
	"net/http"
	"time"

	"budget/internal/analytics"
	"budget/internal/export"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API serves.
type Deps struct {
	Ledger    *services.LedgerService
	Accounts  *services.AccountService
	Analytics *analytics.Service
	Export    *export.Service
	Store     Pinger

	Logger             *log.Logger
	RateLimitPerMinute int
	Location           *time.Location
	Now                func() time.Time
}

// Server is the JSON API over the budget services.
type Server struct {
	http.Server

	ledger    *services.LedgerService
	accounts  *services.AccountService
	analytics *analytics.Service
	exports   *export.Service
	store     Pinger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	loc      *time.Location
	now      func() time.Time
	started  time.Time
}

// NewServer wires routes and middleware. Call Shutdown to release the rate
// limiter along with the listener.
func NewServer(addr string, deps Deps) *Server {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	s := &Server{
		ledger:    deps.Ledger,
		accounts:  deps.Accounts,
		analytics: deps.Analytics,
		exports:   deps.Export,
		store:     deps.Store,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector:  security.NewDetector(),
		loc:       deps.Location,
		now:       deps.Now,
		started:   deps.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, deps.Logger.WithComponent(log.ComponentHTTP))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/profile", s.authed(s.handleGetProfile))
	mux.HandleFunc("PATCH /api/profile", s.authed(s.handleUpdateProfile))
	mux.HandleFunc("GET /api/achievements", s.authed(s.handleAchievements))

	mux.HandleFunc("POST /api/expenses", s.authed(s.handleLogExpense))
	mux.HandleFunc("GET /api/expenses", s.authed(s.handleListExpenses))
	mux.HandleFunc("GET /api/expenses/export", s.authed(s.handleExportExpenses))

	mux.HandleFunc("GET /api/categories", s.authed(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.authed(s.handleCreateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.authed(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/recurring", s.authed(s.handleListRecurring))
	mux.HandleFunc("POST /api/recurring", s.authed(s.handleCreateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.authed(s.handleDeleteRecurring))

	mux.HandleFunc("GET /api/analytics/{type}", s.authed(s.handleAnalytics))

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, isMutating, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

// authed resolves the caller from the identity header or answers 401.
func (s *Server) authed(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserID(r)
		if err != nil {
			UnauthorizedError(err.Error()).Write(w)
			return
		}
		h(w, r, userID)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the store and reports cache and limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.store == nil {
		checks["database"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		checks["database"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if s.analytics != nil {
		if mem := s.analytics.Memory(); mem != nil {
			checks["analytics_memory"] = mem.Stats()
		}
	}
	limits := s.limiter.GetMetrics()
	checks["rate_limiter"] = map[string]any{
		"active_clients": limits.ClientCount,
		"rejected":       limits.TotalHits,
	}
	checks["suspicious_requests"] = s.detector.GetMetrics().SuspiciousRequests
	traffic := s.tracer.GetMetrics()
	checks["requests"] = map[string]any{
		"total":           traffic.TotalRequests,
		"server_errors":   traffic.ServerErrors,
		"avg_response_us": traffic.AverageResponseTime,
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
