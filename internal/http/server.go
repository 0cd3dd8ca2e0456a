package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"fintrack/internal/cache"
	"fintrack/internal/calendar"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

const staticMaxAge = 3600

// Options wires a Server. Sessions and Calendar are required.
type Options struct {
	Addr     string
	Sessions ledger.Sessions
	Calendar *calendar.Store
	Caches   *cache.Manager
	Money    core.MoneyFormatter
	Logger   *applog.Logger

	// Fallback is used for requests that carry no session cookie.
	Fallback      ledger.Session
	SessionCookie string

	RateLimitPerMinute int
	TrustedProxies     []string

	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	sessions  ledger.Sessions
	calendar  *calendar.Store
	txs       *services.TransactionService
	caches    *cache.Manager
	money     core.MoneyFormatter
	logger    *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	fallback      ledger.Session
	sessionCookie string
	now           func() time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and mounts every route, returning
// a ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("new server: ledger sessions are required")
	}
	if opts.Calendar == nil {
		return nil, fmt.Errorf("new server: calendar store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		sessions:      opts.Sessions,
		calendar:      opts.Calendar,
		txs:           services.NewTransactionService(opts.Calendar, logger),
		caches:        opts.Caches,
		money:         opts.Money,
		logger:        logger,
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:      security.NewDetector(),
		fallback:      opts.Fallback,
		sessionCookie: opts.SessionCookie,
		now:           opts.Now,
	}
	if s.sessionCookie == "" {
		s.sessionCookie = ledger.DefaultSessionCookie
	}
	if s.now == nil {
		s.now = time.Now
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	t, err := template.New("").Funcs(template.FuncMap{
		"money": func(d decimal.Decimal) string { return s.money.Format(d) },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	router, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() (*mux.Router, error) {
	r := mux.NewRouter()

	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(staticMaxAge)(static))

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)

	ui := r.PathPrefix("/ui").Methods(http.MethodGet).Subrouter()
	ui.HandleFunc("/balance", s.handleBalance)
	ui.HandleFunc("/analytics", s.handleAnalytics)
	ui.HandleFunc("/summary", s.handleSummary)
	ui.HandleFunc("/transactions", s.handleTransactions)
	ui.HandleFunc("/calendar", s.handleCalendar)
	ui.HandleFunc("/calendar/day", s.handleCalendarDay)
	ui.HandleFunc("/categories", s.handleCategories)
	ui.HandleFunc("/form", s.handleForm)

	r.HandleFunc("/transactions", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id:[0-9]+}/edit", s.handleEdit).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id:[0-9]+}/delete", s.handleConfirmDelete).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id:[0-9]+}/delete", s.handleDelete).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id:[0-9]+}", s.handleDelete).Methods(http.MethodDelete)

	return r, nil
}

// middleware wraps the router so that blocked methods and unmatched routes
// are still traced and logged.
func (s *Server) middleware(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	chain := []func(http.Handler) http.Handler{
		s.tracer.Middleware,
		headers.Middleware,
		s.detector.Middleware(s.logger),
		applog.Middleware(s.logger),
		applog.RequestIDMiddleware(trace.RequestIDFromRequest),
		s.detector.SameOriginMiddleware(s.logger, ratelimit.MutatingOnly, s.handleCrossSite),
		s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.handleRateLimited),
	}
	h := next
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down").
		Header("HX-Reswap", "none").
		Write(w)
}

func (s *Server) handleCrossSite(w http.ResponseWriter, _ *http.Request) {
	ErrorResponse(http.StatusForbidden, "Request blocked, reload the page and try again").
		Header("HX-Reswap", "none").
		Write(w)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports whether the ledger API is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.sessions.Ping(r.Context()); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed",
			applog.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("ledger unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// render executes a template into a buffer first so that a template error
// never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate)
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Template rendering failed", err, applog.OpRender,
			applog.LogFields{"template": name})
		InternalServerError("Failed to render page").Write(w)
		return
	}
	b.BodyHTML(buf.Bytes()).Write(w)
}

// Shutdown stops background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		m := s.Metrics()
		s.logger.InfoContext(ctx, "Server metrics",
			"requests", m.Requests.TotalRequests,
			"server_errors", m.Requests.ServerErrors,
			"rate_limited_clients", m.RateLimit.ClientCount,
			"rate_limit_hits", m.RateLimit.TotalHits,
			"blocked_requests", m.Security.BlockedRequests,
			"suspicious_requests", m.Security.SuspiciousRequests,
			"cross_site_requests", m.Security.CrossSiteRequests)
		s.limiter.Stop()
		if s.caches != nil {
			s.caches.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Metrics collects the middleware counters.
type Metrics struct {
	Requests  trace.Metrics
	RateLimit ratelimit.Metrics
	Security  security.DetectionMetrics
}

func (s *Server) Metrics() Metrics {
	return Metrics{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
}
