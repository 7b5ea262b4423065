package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"savings/internal/cache"
	"savings/internal/core"
	"savings/internal/goals"
	applog "savings/internal/log"
	"savings/internal/middleware/ratelimit"
	"savings/internal/middleware/security"
	"savings/internal/middleware/trace"
	"savings/internal/rates"
)

// GoalService is the goal store as seen by the handlers.
type GoalService interface {
	Sync(ctx context.Context)
	Goals() []core.Goal
	Goal(id string) (core.Goal, bool)
	Revision() int64
	CreateGoal(ctx context.Context, in goals.GoalInput) (core.Goal, error)
	EditGoal(ctx context.Context, id string, in goals.GoalInput) (core.Goal, bool, error)
	DeleteGoal(ctx context.Context, id string) bool
	AddContribution(ctx context.Context, goalID string, in goals.ContributionInput) (core.Contribution, bool, error)
}

// RateService is the exchange rate provider as seen by the handlers.
type RateService interface {
	Current() core.ExchangeRate
	State() rates.State
	Refresh(ctx context.Context) core.ExchangeRate
}

// Options tunes the server. Zero values select the defaults.
type Options struct {
	Reference         core.Currency
	RequestsPerMinute int
	DashboardCacheTTL time.Duration
}

type Server struct {
	http.Server
	goals     GoalService
	rates     RateService
	reference core.Currency
	logger    *applog.Logger
	started   time.Time

	limiter          *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	// Dashboard views keyed by store revision, rate and reference currency
	dashboardCache *cache.LRUCache[dashboardView]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, gs GoalService, rs RateService, logger *applog.Logger, opts Options) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	if !opts.Reference.IsValid() {
		opts.Reference = core.INR
	}
	if opts.DashboardCacheTTL <= 0 {
		opts.DashboardCacheTTL = 5 * time.Minute
	}
	limitCfg := ratelimit.DefaultConfig()
	if opts.RequestsPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RequestsPerMinute
	}

	s := &Server{
		goals:            gs,
		rates:            rs,
		reference:        opts.Reference,
		logger:           logger,
		started:          time.Now(),
		limiter:          ratelimit.NewLimiter(limitCfg),
		securityDetector: security.NewDetector(),
		traceMiddleware:  trace.NewMiddleware(),
		dashboardCache:   cache.NewLRUCache[dashboardView](32, opts.DashboardCacheTTL),
		cacheManager:     cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog()),
	}
	s.cacheManager.Register("dashboard", s.dashboardCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /goals", s.handleListGoals)
	mux.HandleFunc("POST /goals", s.handleCreateGoal)
	mux.HandleFunc("GET /goals/{id}", s.handleGetGoal)
	mux.HandleFunc("PUT /goals/{id}", s.handleEditGoal)
	mux.HandleFunc("DELETE /goals/{id}", s.handleDeleteGoal)
	mux.HandleFunc("GET /goals/{id}/contributions", s.handleListContributions)
	mux.HandleFunc("POST /goals/{id}/contributions", s.handleAddContribution)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /rate", s.handleRate)
	mux.HandleFunc("POST /rate/refresh", s.handleRefreshRate)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// middleware wraps h, outermost first: request ID, request logging,
// suspicious-request detection, security headers, rate limiting.
func (s *Server) middleware(h http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	}
	requestLogger := func(r *http.Request) *slog.Logger {
		return applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).Slog()
	}

	h = s.limiter.Middleware(s.securityDetector.ExtractClientIP, onLimit)(h)
	h = headers.Middleware(h)
	h = s.securityDetector.Middleware(requestLogger)(h)
	h = applog.RequestLogger(s.logger, trace.FromRequest, s.securityDetector.ExtractClientIP)(h)
	return s.traceMiddleware.Middleware(h)
}

// Shutdown stops background routines then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
