package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"finvault/internal/api"
	"finvault/internal/cache"
	"finvault/internal/core"
	"finvault/internal/events"
	"finvault/internal/log"
	"finvault/internal/middleware/ratelimit"
	"finvault/internal/middleware/security"
	"finvault/internal/middleware/trace"
	"finvault/internal/session"
	appweb "finvault/web"
)

// Backend is the part of the FinVault API the web client talks to.
// *api.Client implements it.
type Backend interface {
	Register(ctx context.Context, name, email, password string) (api.RegisterResponse, error)
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
	GetProfile(ctx context.Context, token string) (core.Profile, error)
	CreateTransaction(ctx context.Context, token string, txn core.NewTransaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, token string) ([]core.Transaction, error)
	TransactionsBaseURL() string
}

// pinger is implemented by stores backed by a database.
type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	backend   Backend
	sessions  *session.Manager
	store     session.Store
	publisher events.Publisher
	renderer  *renderer
	profiles  *cache.LRUCache[string]
	caches    *cache.Manager
	inflight  *inflightGuard
	limiter   *ratelimit.Limiter
	tracer    *trace.Middleware
	detector  *security.Detector
	logger    *log.Logger

	maxImage     int64
	cookieSecure bool
	started      time.Time
	shutdownOnce sync.Once
}

// Profile names are cached per session so the dashboard shell does not
// refetch them on every page.
const (
	profileCacheSize = 1000
	profileCacheTTL  = 5 * time.Minute
)

// Options configures a Server. Backend, Sessions and Store are required.
type Options struct {
	Addr               string
	Backend            Backend
	Sessions           *session.Manager
	Store              session.Store
	Publisher          events.Publisher
	Logger             *log.Logger
	RateLimitPerMinute int
	MaxImageBytes      int64
	CookieSecure       bool
}

// NewServer parses the templates and wires routes and middleware,
// returning a ready-to-run http.Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Backend == nil || opts.Sessions == nil || opts.Store == nil {
		return nil, errors.New("new server: backend, sessions and store are required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = defaultMaxImageBytes
	}

	rd, err := newRenderer(appweb.TemplatesFS)
	if err != nil {
		return nil, err
	}

	detector := security.NewDetector(security.Routes{
		Paths: []string{
			loginPath, "/register", "/logout", navPath,
			homePath, aboutPath, incomePath, expensePath, historyPath,
			"/healthz", "/readyz", "/metrics",
		},
		Prefixes: []string{"/static/"},
	})
	profiles := cache.NewLRUCache[string](profileCacheSize, profileCacheTTL)
	caches := cache.NewManager(opts.Logger)
	caches.Register(profiles)

	s := &Server{
		backend:      opts.Backend,
		sessions:     opts.Sessions,
		store:        opts.Store,
		publisher:    opts.Publisher,
		renderer:     rd,
		profiles:     profiles,
		caches:       caches,
		inflight:     newInflightGuard(),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:     detector,
		tracer:       trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		maxImage:     opts.MaxImageBytes,
		cookieSecure: opts.CookieSecure,
		started:      time.Now(),
	}

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	open := func(h http.HandlerFunc) http.Handler { return security.NoStore(h) }
	guarded := func(h http.HandlerFunc) http.Handler { return security.NoStore(s.requireSession(h)) }

	mux.Handle("GET /{$}", open(s.handleLoginPage))
	mux.Handle("POST /{$}", open(s.handleLogin))
	mux.Handle("GET /register", open(s.handleRegisterPage))
	mux.Handle("POST /register", open(s.handleRegister))
	mux.Handle("GET /logout", open(s.handleLogout))
	mux.Handle("POST /logout", open(s.handleLogout))

	mux.Handle("GET "+homePath, guarded(s.handleHome))
	mux.Handle("GET "+aboutPath, guarded(s.handleAbout))
	mux.Handle("GET "+incomePath, guarded(s.transactionFormPage(core.Income)))
	mux.Handle("POST "+incomePath, guarded(s.createTransaction(core.Income)))
	mux.Handle("GET "+expensePath, guarded(s.transactionFormPage(core.Expense)))
	mux.Handle("POST "+expensePath, guarded(s.createTransaction(core.Expense)))
	mux.Handle("GET "+historyPath, guarded(s.handleHistory))
	mux.Handle("POST "+navPath, guarded(s.handleNavToggle))

	// Everything else goes back to the login screen.
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		Redirect(loginPath).Write(w)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig(opts.Backend.TransactionsBaseURL()))
	limit := s.limiter.Middleware(detector.ExtractClientIP, ratelimit.OnlyPOST, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, detector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		TooManyRequestsError("Too many attempts. Please wait a minute and try again.").Write(w)
	})

	var handler http.Handler = mux
	handler = limit(handler)
	handler = detector.Middleware(opts.Logger)(handler)
	handler = headers.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	caches.StartCleanup(profileCacheTTL)
	return s, nil
}

// Shutdown stops the background cleanups and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.caches.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports whether the session store is reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ready", "sessions": "ok"}
	code := http.StatusOK

	if p, ok := s.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Session store not ready", log.FieldError, err)
			status["status"] = "unavailable"
			status["sessions"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// handleMetrics prints request, security and session counters as plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	dm := s.detector.GetMetrics()
	rm := s.limiter.GetMetrics()

	var b strings.Builder
	fmt.Fprintf(&b, "uptime_seconds %d\n", int64(time.Since(s.started).Seconds()))
	fmt.Fprintf(&b, "http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(&b, "http_client_errors_total %d\n", tm.ClientErrors)
	fmt.Fprintf(&b, "http_server_errors_total %d\n", tm.ServerErrors)
	fmt.Fprintf(&b, "http_response_time_avg_ms %.3f\n", float64(tm.AverageResponseTime().Microseconds())/1000)
	fmt.Fprintf(&b, "security_suspicious_requests_total %d\n", dm.SuspiciousRequests)
	fmt.Fprintf(&b, "security_invalid_ip_total %d\n", dm.InvalidIPAttempts)
	reasons := make([]string, 0, len(dm.ByReason))
	for r := range dm.ByReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(&b, "security_flagged_total{reason=%q} %d\n", r, dm.ByReason[security.Reason(r)])
	}
	fmt.Fprintf(&b, "ratelimit_rejections_total %d\n", rm.TotalHits)
	fmt.Fprintf(&b, "ratelimit_clients %d\n", rm.ClientCount)
	fmt.Fprintf(&b, "submissions_in_flight %d\n", s.inflight.size())
	fmt.Fprintf(&b, "profile_cache_entries %d\n", s.profiles.Size())
	if c, ok := s.store.(session.Counter); ok {
		if n, err := c.Count(r.Context()); err == nil {
			fmt.Fprintf(&b, "sessions_active %d\n", n)
		} else {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Session count failed", log.FieldError, err)
		}
	}

	NewResponse().BodyString(b.String()).Write(w)
}
