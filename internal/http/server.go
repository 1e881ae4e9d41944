// Package http serves the clerk desk: the landing page, staff login, the
// period reports and the administrative JSON surface.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"churchclerk/internal/auth"
	clog "churchclerk/internal/log"
	"churchclerk/internal/metrics"
	"churchclerk/internal/middleware/ratelimit"
	"churchclerk/internal/middleware/security"
	"churchclerk/internal/middleware/trace"
	"churchclerk/internal/records"
	"churchclerk/internal/services"
	appweb "churchclerk/web"
)

// Deps are the collaborators the handlers call into.
type Deps struct {
	Org          string
	Certificates *services.CertificateService
	Transfers    *services.TransferService
	Communion    *services.CommunionService
	Reports      *services.ReportService
	Activity     records.ActivityStore
	Auth         *auth.Manager
	Metrics      *metrics.Metrics
	Logger       *clog.Logger
	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	deps      Deps
	templates *template.Template
	limiter   *ratelimit.Limiter
	detector  *security.Detector

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = clog.Wrap(slog.Default(), clog.ComponentHTTP)
	}
	if deps.Org == "" {
		deps.Org = "Newlife"
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps:      deps,
		templates: t,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig(), deps.Metrics),
		detector:  security.NewDetector(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = s.rejectSuspicious(h)
	h = trace.NewMiddleware(deps.Logger.WithComponent(clog.ComponentHTTP), deps.Metrics, s.detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go s.limiter.Run(ctx, 5*time.Minute)

	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssets(3600)(static))
	} else {
		s.deps.Logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	private := func(h http.HandlerFunc) http.Handler {
		return s.deps.Auth.Require(security.NoStore(h))
	}

	mux.Handle("GET /reports", private(s.handleReports))
	mux.Handle("GET /reports/pdf", private(s.handleReportPDF))
	mux.Handle("POST /reports/export", private(s.handleReportExport))

	mux.Handle("GET /admin/certificates", private(s.handleListCertificates))
	mux.Handle("POST /admin/certificates", private(s.handleCreateCertificate))
	mux.Handle("GET /admin/certificates/{id}", private(s.handleGetCertificate))
	mux.Handle("PUT /admin/certificates/{id}", private(s.handleUpdateCertificate))
	mux.Handle("POST /admin/certificates/actions", private(s.handleCertificateAction))

	mux.Handle("GET /admin/transfers", private(s.handleListTransfers))
	mux.Handle("POST /admin/transfers", private(s.handleCreateTransfer))
	mux.Handle("GET /admin/transfers/{id}", private(s.handleGetTransfer))
	mux.Handle("PUT /admin/transfers/{id}", private(s.handleUpdateTransfer))

	mux.Handle("GET /admin/communion", private(s.handleListCommunion))
	mux.Handle("POST /admin/communion", private(s.handleCreateCommunion))
	mux.Handle("PUT /admin/communion/{id}", private(s.handleUpdateCommunion))
	mux.Handle("GET /admin/communion/{id}/sheet", private(s.handleCommunionSheet))

	mux.Handle("GET /admin/activity", private(s.handleListActivity))
}

func (s *Server) rejectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.Suspicious(r) {
			s.deps.Logger.WithComponent(clog.ComponentSecurity).Warn("Suspicious request rejected",
				clog.FieldPath, r.URL.Path,
				clog.FieldClientIP, s.detector.ExtractClientIP(r))
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.deps.Logger.WithComponent(clog.ComponentRateLimit).Warn("Rate limit exceeded",
		clog.FieldClientIP, s.detector.ExtractClientIP(r),
		clog.FieldPath, r.URL.Path)
	NewJSONResponse().Status(http.StatusTooManyRequests).Error("rate limit exceeded, please try again later").Write(w)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.deps.Logger.WarnContext(r.Context(), "Readiness check failed", clog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
