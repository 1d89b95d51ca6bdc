package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cadenza/internal/cache"
	applog "cadenza/internal/log"
	"cadenza/internal/middleware/ratelimit"
	"cadenza/internal/middleware/security"
	"cadenza/internal/middleware/trace"
	"cadenza/internal/services"
)

const progressCacheKey = "progress"

// Server wires the scheduler and budget services to the JSON API.
type Server struct {
	http.Server

	obligationService *services.ObligationService
	budgetService     *services.BudgetService
	lookaheadDays     int

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector

	// Read-side projections are cached briefly; mutations invalidate.
	upcomingCache *cache.TTLCache[[]upcomingJSON]
	progressCache *cache.TTLCache[[]progressJSON]
	cacheJanitor  *cache.Janitor

	now func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, obligations *services.ObligationService, budgets *services.BudgetService, lookaheadDays int, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		obligationService: obligations,
		budgetService:     budgets,
		lookaheadDays:     lookaheadDays,
		rateLimiter:       ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:          security.NewDetector(),
		upcomingCache:     cache.NewTTLCache[[]upcomingJSON](16, time.Minute),
		progressCache:     cache.NewTTLCache[[]progressJSON](4, time.Minute),
		cacheJanitor:      cache.NewJanitor(),
		now:               time.Now,
	}

	s.cacheJanitor.Register(s.upcomingCache)
	s.cacheJanitor.Register(s.progressCache)
	s.cacheJanitor.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/obligations", s.handleListObligations)
	mux.HandleFunc("POST /api/obligations", s.handleCreateObligation)
	mux.HandleFunc("GET /api/obligations/upcoming", s.handleUpcomingObligations)
	mux.HandleFunc("GET /api/obligations/{id}", s.handleGetObligation)
	mux.HandleFunc("PUT /api/obligations/{id}", s.handleUpdateObligation)
	mux.HandleFunc("DELETE /api/obligations/{id}", s.handleDeleteObligation)
	mux.HandleFunc("POST /api/obligations/{id}/process", s.handleProcessObligation)
	mux.HandleFunc("POST /api/obligations/{id}/skip", s.handleSkipObligation)
	mux.HandleFunc("POST /api/obligations/{id}/deactivate", s.handleDeactivateObligation)
	mux.HandleFunc("GET /api/obligations/{id}/occurrences", s.handleObligationOccurrences)

	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("GET /api/budgets/progress", s.handleBudgetProgress)
	mux.HandleFunc("GET /api/budgets/{id}", s.handleGetBudget)
	mux.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)
	mux.HandleFunc("POST /api/budgets/{id}/reset", s.handleResetBudget)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.buildMiddleware(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// buildMiddleware assembles the request pipeline: logging and tracing
// outermost, then security headers, with rate limiting closest to the
// handlers so limited requests are still traced.
func (s *Server) buildMiddleware(next http.Handler, logger *applog.Logger) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	traceMW := trace.NewMiddleware(s.detector.ExtractClientIP)
	limitMW := s.rateLimiter.Middleware(s.detector.ExtractClientIP, nil)

	h := limitMW(next)
	h = s.suspicionMiddleware(h)
	h = headers.Middleware(h)
	if logger != nil {
		// Trace assigns the request id, so this runs inside it.
		h = applog.RequestIDMiddleware(func(r *http.Request) string {
			return trace.GetRequestID(r.Context())
		})(h)
	}
	h = traceMW.Middleware(h)
	if logger != nil {
		h = applog.Middleware(logger)(h)
	}
	return h
}

// suspicionMiddleware flags requests matching known attack patterns.
// Flagged requests are logged and counted but not blocked; the rate
// limiter handles abusive volumes.
func (s *Server) suspicionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request detected",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheJanitor.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) invalidateUpcoming() {
	// Lookahead is a free parameter, drop every cached window.
	s.upcomingCache.Clear()
}

func (s *Server) invalidateProgress() {
	s.progressCache.Delete(progressCacheKey)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
