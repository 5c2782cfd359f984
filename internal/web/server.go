// Package web provides the HTTP server of the relay: the submission API,
// capacity reports, directory administration and operational endpoints.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/FormRelay/internal/admin"
	"github.com/JonMunkholm/FormRelay/internal/config"
	"github.com/JonMunkholm/FormRelay/internal/core"
	"github.com/JonMunkholm/FormRelay/internal/logging"
	"github.com/JonMunkholm/FormRelay/internal/metrics"
	"github.com/JonMunkholm/FormRelay/internal/web/middleware"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps wires a Server. Importer and Health are optional; without an
// Importer the admin routes are not mounted.
type Deps struct {
	Service  *core.Service
	Catalog  *core.Catalog
	Importer *admin.Importer
	Health   Pinger

	Server     config.ServerConfig
	Rate       config.RateLimitConfig
	Security   config.SecurityConfig
	Submission config.SubmissionConfig
}

// Server is the HTTP server of the relay.
type Server struct {
	service  *core.Service
	catalog  *core.Catalog
	importer *admin.Importer
	health   Pinger
	cfg      Deps

	router      *chi.Mux
	server      *http.Server
	limiters    []*middleware.RateLimiter
	cleanupCtx  context.Context
	stopCleanup context.CancelFunc
}

// NewServer creates a Server with all routes mounted.
func NewServer(d Deps) *Server {
	s := &Server{
		service:  d.Service,
		catalog:  d.Catalog,
		importer: d.Importer,
		health:   d.Health,
		cfg:      d,
		router:   chi.NewRouter(),
	}
	s.cleanupCtx, s.stopCleanup = context.WithCancel(context.Background())
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         d.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  d.Server.ReadTimeout,
		WriteTimeout: d.Server.WriteTimeout,
		IdleTimeout:  d.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", metrics.Handler())

	// Pages
	s.router.Get("/capacity/{channel}/{date}", s.handleCapacityPage)

	s.router.Route("/api", func(r chi.Router) {
		if s.cfg.Server.RequestTimeout > 0 {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
		}

		r.Get("/health", s.handleHealth)
		r.Get("/limiter", s.handleLimiterStatus)
		r.Get("/forms", s.handleListForms)
		r.Get("/capacity/{channel}/{date}", s.handleCapacity)

		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(s.newLimiter(s.cfg.Rate.SubmissionLimit).Handler)
			}
			r.Post("/submissions", s.handleSubmit)
			r.Post("/submissions/preview", s.handlePreview)
		})

		if s.importer != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.APIKeyAuth(s.cfg.Security))
				r.Get("/directory", s.handleDirectoryCounts)
				r.Post("/directory", s.handleDirectoryImport)
			})
		}
	})
}

func (s *Server) newLimiter(perMinute int) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start listens on the configured address and blocks until the server
// stops. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	for _, rl := range s.limiters {
		go rl.RunCleanup(s.cleanupCtx)
	}
	logging.FromContext(s.cleanupCtx).Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopCleanup()
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// The capacity page uses only inline styles.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
