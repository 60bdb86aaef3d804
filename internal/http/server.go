package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"otkaz/internal/core"
	"otkaz/internal/host"
	applog "otkaz/internal/log"
	"otkaz/internal/middleware/auth"
	"otkaz/internal/middleware/ratelimit"
	"otkaz/internal/middleware/security"
	"otkaz/internal/middleware/trace"
	"otkaz/internal/services"
)

type (
	// ReportService stores reports and settings.
	ReportService interface {
		LoadReports(ctx context.Context) ([]core.DailyReport, error)
		SaveReport(ctx context.Context, r core.DailyReport) ([]core.DailyReport, error)
		LoadSettings(ctx context.Context) core.UserSettings
		SaveSettings(ctx context.Context, s core.UserSettings) error
	}

	// StatsProvider derives the read-only views.
	StatsProvider interface {
		Overview(ctx context.Context) (services.Overview, error)
		Motivation(ctx context.Context) (core.Motivation, error)
		Heatmap(ctx context.Context, weeks int) ([][]core.HeatDay, error)
		Catalog() core.Catalog
	}

	// Advisor answers SOS requests. It never fails.
	Advisor interface {
		RequestAdvice(ctx context.Context, cravingLevel int, triggers []string, moodLevel int) string
		Enabled() bool
	}

	// Pinger is checked by /readyz.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Options wires a Server. Store may be nil.
type Options struct {
	Addr         string
	Reports      ReportService
	Stats        StatsProvider
	Advice       Advisor
	Capabilities host.Capabilities
	Store        Pinger
	Auth         auth.Config
	RateLimit    ratelimit.Config
	Logger       *applog.Logger
}

type Server struct {
	http.Server

	reports ReportService
	stats   StatsProvider
	advice  Advisor
	caps    host.Capabilities
	store   Pinger
	logger  *applog.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Call Shutdown to release the rate limiter.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}

	s := &Server{
		reports:          opts.Reports,
		stats:            opts.Stats,
		advice:           opts.Advice,
		caps:             opts.Capabilities,
		store:            opts.Store,
		logger:           logger,
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		securityDetector: security.NewDetector(),
		traceMiddleware:  trace.NewMiddleware(),
		appMetrics:       newAppMetrics(),
	}

	api := func(h http.HandlerFunc) http.Handler {
		limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(r *http.Request) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				applog.FieldPath, r.URL.Path)
		})
		return limited(auth.Middleware(opts.Auth)(h))
	}

	mux := http.NewServeMux()
	mux.Handle("/api/reports", api(s.handleReports))
	mux.Handle("/api/stats", api(s.handleStats))
	mux.Handle("/api/heatmap", api(s.handleHeatmap))
	mux.Handle("/api/motivation", api(s.handleMotivation))
	mux.Handle("/api/settings", api(s.handleSettings))
	mux.Handle("/api/sos", api(s.handleSOS))
	mux.Handle("/api/host", api(s.handleHost))
	mux.Handle("/api/triggers", api(s.handleTriggers))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").WithRequestID(trace.FromRequest(r)).Write(w)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = s.securityDetector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = applog.AccessLog(s.securityDetector.ExtractClientIP)(handler)
	handler = applog.RequestIDMiddleware(trace.FromRequest)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
