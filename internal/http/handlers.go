package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"otkaz/internal/core"
	applog "otkaz/internal/log"
	"otkaz/internal/middleware/trace"
)

const (
	defaultHeatmapWeeks = 20
	maxHeatmapWeeks     = 104
)

type appMetrics struct {
	uptime       time.Time
	reportsSaved int64
	sosRequests  int64
	failures     int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

// fail logs err and answers with the status it maps to. Validation errors
// carry their message; anything else is reported generically.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg, component, op string, err error) {
	ctx := r.Context()
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		atomic.AddInt64(&s.appMetrics.failures, 1)
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, msg, err, component, op, nil)
		InternalServerError(msg).WithRequestID(trace.GetRequestID(ctx)).Write(w)
		return
	}
	applog.FromContext(ctx).WarnContext(ctx, msg, applog.FieldError, err.Error(), applog.FieldOperation, op)
	ErrorResponse(status, err.Error()).WithRequestID(trace.GetRequestID(ctx)).Write(w)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListReports(w, r)
	case http.MethodPost:
		s.handleCreateReport(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reports.LoadReports(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to load reports", applog.ComponentReports, applog.OpLoad, err)
		return
	}
	if reports == nil {
		reports = []core.DailyReport{}
	}
	NewJSONResponse().Data(reports).Write(w)
}

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).WithRequestID(trace.FromRequest(r)).Write(w)
		return
	}
	req.Sanitize()

	report := core.NewReport(time.Now(), req.DidDrink, req.MoodLevel, req.CravingLevel,
		req.Triggers, req.Note, req.AlcoholType, req.AlcoholAmount)
	if req.Date != "" {
		report.Date = req.Date
	}

	ctx := r.Context()
	updated, err := s.reports.SaveReport(ctx, report)
	if err != nil {
		s.fail(w, r, "Failed to save report", applog.ComponentReports, applog.OpSave, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.reportsSaved, 1)
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogReportSaved(ctx, report.Date, report.DidDrink, report.MoodLevel, report.CravingLevel, len(updated))

	NewJSONResponse().
		Status(http.StatusCreated).
		Data(map[string]any{"report": report, "total": len(updated)}).
		Write(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	overview, err := s.stats.Overview(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to compute statistics", applog.ComponentReports, applog.OpLoad, err)
		return
	}
	NewJSONResponse().Data(overview).Write(w)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	weeks := ParseIntQuery(r.URL.Query(), "weeks", defaultHeatmapWeeks, 1, maxHeatmapWeeks)
	grid, err := s.stats.Heatmap(r.Context(), weeks)
	if err != nil {
		s.fail(w, r, "Failed to build heatmap", applog.ComponentReports, applog.OpLoad, err)
		return
	}
	NewJSONResponse().Data(map[string]any{"weeks": grid}).Write(w)
}

func (s *Server) handleMotivation(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	m, err := s.stats.Motivation(r.Context())
	if err != nil {
		s.fail(w, r, "Failed to compute motivation", applog.ComponentReports, applog.OpLoad, err)
		return
	}
	NewJSONResponse().Data(m).Write(w)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		NewJSONResponse().Data(s.reports.LoadSettings(ctx)).Write(w)
	case http.MethodPut:
		var settings core.UserSettings
		if err := DecodeJSON(w, r, &settings); err != nil {
			BadRequestError(err.Error()).WithRequestID(trace.FromRequest(r)).Write(w)
			return
		}
		settings.Currency = sanitizeInput(settings.Currency)
		if err := s.reports.SaveSettings(ctx, settings); err != nil {
			s.fail(w, r, "Failed to save settings", applog.ComponentSettings, applog.OpSave, err)
			return
		}
		applog.FromContext(ctx).InfoContext(ctx, "Settings saved",
			"cost_per_day", settings.CostPerDay, "currency", settings.Currency)
		NewJSONResponse().Data(settings).Write(w)
	default:
		MethodNotAllowedError("GET, PUT").Write(w)
	}
}

func (s *Server) handleSOS(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	var req SOSRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).WithRequestID(trace.FromRequest(r)).Write(w)
		return
	}
	req.Sanitize()

	switch {
	case req.CravingLevel < 0 || req.CravingLevel > core.MaxLevel:
		s.fail(w, r, "Invalid SOS request", applog.ComponentAdvice, applog.OpValidate, core.ErrInvalidCraving)
		return
	case req.MoodLevel < 0 || req.MoodLevel > core.MaxLevel:
		s.fail(w, r, "Invalid SOS request", applog.ComponentAdvice, applog.OpValidate, core.ErrInvalidMood)
		return
	}

	atomic.AddInt64(&s.appMetrics.sosRequests, 1)
	labels := core.TriggerLabels(s.stats.Catalog(), req.Triggers, req.Custom)
	text := s.advice.RequestAdvice(r.Context(), req.CravingLevel, labels, req.MoodLevel)

	NewJSONResponse().Data(map[string]any{"advice": text, "triggers": labels}).Write(w)
}

func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	NewJSONResponse().Data(s.caps).Write(w)
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	NewJSONResponse().Data(s.stats.Catalog()).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the local store. The remote store is optional by
// nature and never makes the service unready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["local_store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["local_store"] = "ok"
		}
	} else {
		checks["local_store"] = "not_configured"
	}

	checks["cloud_storage"] = s.caps.CloudStorage
	checks["advice"] = s.advice != nil && s.advice.Enabled()
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	NewJSONResponse().Status(httpStatus).Data(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	boolGauge := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "counter", "HTTP responses with a 5xx status", traceMetrics.ServerErrors)
	metric("http_response_time_avg_microseconds", "gauge", "Mean response time", traceMetrics.AverageResponseTime)
	metric("reports_saved_total", "counter", "Reports saved through the API", atomic.LoadInt64(&s.appMetrics.reportsSaved))
	metric("sos_requests_total", "counter", "SOS advice requests", atomic.LoadInt64(&s.appMetrics.sosRequests))
	metric("handler_failures_total", "counter", "Requests that failed on a storage error", atomic.LoadInt64(&s.appMetrics.failures))
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("blocked_requests_total", "counter", "Suspicious requests answered with 404", securityMetrics.BlockedRequests)
	metric("cloud_storage_enabled", "gauge", "Whether the host supports cloud storage", boolGauge(s.caps.CloudStorage))
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.appMetrics.uptime).Seconds()))
}
