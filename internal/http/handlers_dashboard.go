package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"savings/internal/core"
	"savings/internal/dashboard"
	applog "savings/internal/log"
)

type dashboardView struct {
	Summary   dashboard.Summary    `json:"summary"`
	Goals     []dashboard.GoalCard `json:"goals"`
	RateState string               `json:"rateState"`
	Revision  int64                `json:"revision"`
}

type rateResponse struct {
	Rate  core.ExchangeRate `json:"rate"`
	State string            `json:"state"`
}

func dashboardKey(revision int64, rate core.ExchangeRate, reference core.Currency) string {
	return fmt.Sprintf("%d|%s|%d|%s|%s", revision, rate.INR.String(), rate.LastUpdated.UnixNano(), rate.Error, reference)
}

// handleDashboard aggregates all goals in the reference currency, optionally
// overridden by ?currency=. The goals and the rate are read once per request.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	reference := s.reference
	if v := strings.TrimSpace(r.URL.Query().Get("currency")); v != "" {
		c, err := core.ParseCurrency(v)
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		reference = c
	}

	s.goals.Sync(r.Context())
	revision := s.goals.Revision()
	gs := s.goals.Goals()
	rate := s.rates.Current()
	state := s.rates.State().String()
	key := dashboardKey(revision, rate, reference)

	if view, ok := s.dashboardCache.Get(key); ok {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Dashboard cache hit", "revision", revision)
		view.RateState = state
		NewJSONResponse().Body(view).Write(w)
		return
	}

	summary, err := dashboard.Summarize(gs, rate, reference)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard aggregation failed", "error", err)
		InternalServerError("internal error").Write(w)
		return
	}
	cards, err := dashboard.Cards(gs, rate)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Dashboard aggregation failed", "error", err)
		InternalServerError("internal error").Write(w)
		return
	}

	view := dashboardView{Summary: summary, Goals: cards, RateState: state, Revision: revision}
	s.dashboardCache.Set(key, view)
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(rateResponse{Rate: s.rates.Current(), State: s.rates.State().String()}).Write(w)
}

// handleRefreshRate bypasses the cache TTL. A failed fetch still answers 200
// with the fallback rate and its error message.
func (s *Server) handleRefreshRate(w http.ResponseWriter, r *http.Request) {
	rate := s.rates.Refresh(r.Context())
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Exchange rate refreshed",
		applog.FieldOperation, applog.OpRefresh,
		"rate_inr", rate.INR.String(),
		"rate_error", rate.Error)
	NewJSONResponse().Body(rateResponse{Rate: rate, State: s.rates.State().String()}).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports dependency state. A failed rate fetch degrades but
// does not fail readiness since conversions fall back to the last rate.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	rate := s.rates.Current()
	rateCheck := map[string]any{
		"state":       s.rates.State().String(),
		"inr":         rate.INR.String(),
		"lastUpdated": rate.LastUpdated.Format(time.RFC3339),
	}
	if rate.Error != "" {
		rateCheck["error"] = rate.Error
	}

	status := "ready"
	if rate.Error != "" {
		status = "degraded"
	}

	NewJSONResponse().Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks": map[string]any{
			"goals": map[string]any{
				"count":    len(s.goals.Goals()),
				"revision": s.goals.Revision(),
			},
			"exchange_rate": rateCheck,
			"cache": map[string]any{
				"dashboard_entries": s.dashboardCache.Size(),
			},
			"rate_limiter": map[string]any{
				"active_clients": s.limiter.ActiveClients(),
			},
		},
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	limitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()
	cacheStats := s.dashboardCache.Stats()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	w.WriteHeader(http.StatusOK)
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_requests_in_flight", "gauge", "Requests currently being served", traceMetrics.InFlight)
	metric("savings_goals", "gauge", "Number of goals", len(s.goals.Goals()))
	metric("savings_store_revision", "counter", "Goal store revision", s.goals.Revision())
	metric("dashboard_cache_hits_total", "counter", "Dashboard cache hits", cacheStats.Hits)
	metric("dashboard_cache_misses_total", "counter", "Dashboard cache misses", cacheStats.Misses)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", limitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", limitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.started).Seconds()))
}
