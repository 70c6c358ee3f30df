package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/brandlens/brandlens/internal/errors"
	"github.com/brandlens/brandlens/internal/metrics"
	"github.com/brandlens/brandlens/internal/observability"
	"github.com/brandlens/brandlens/internal/server/handlers"
	"github.com/brandlens/brandlens/internal/server/middleware"
)

// Server is the brandlens HTTP API.
type Server struct {
	addr   string
	router chi.Router
	http   *http.Server

	health     *handlers.HealthManager
	api        *handlers.EvaluationAPI
	adminToken string
	timeouts   struct{ read, write, idle time.Duration }
}

// Option customizes a Server.
type Option func(*Server)

// WithTimeouts overrides the HTTP server timeouts. Zero values keep the defaults.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.timeouts.read = read
		}
		if write > 0 {
			s.timeouts.write = write
		}
		if idle > 0 {
			s.timeouts.idle = idle
		}
	}
}

// WithAPI mounts the evaluation API under /v1.
func WithAPI(api *handlers.EvaluationAPI) Option {
	return func(s *Server) { s.api = api }
}

// WithHealth serves the probes from hm instead of a manager with no checkers.
func WithHealth(hm *handlers.HealthManager) Option {
	return func(s *Server) {
		if hm != nil {
			s.health = hm
		}
	}
}

// WithAdminToken enables POST /admin/signal behind bearer token auth.
func WithAdminToken(token string) Option {
	return func(s *Server) { s.adminToken = token }
}

// New builds the router. Nothing listens until Start.
func New(host string, port int, opts ...Option) *Server {
	s := &Server{
		addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		router: chi.NewRouter(),
		health: handlers.NewHealthManager(handlers.CurrentBuild().Version),
	}
	s.timeouts.read, s.timeouts.write, s.timeouts.idle = 30*time.Second, 90*time.Second, 120*time.Second
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	s.http = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  s.timeouts.read,
		WriteTimeout: s.timeouts.write,
		IdleTimeout:  s.timeouts.idle,
	}
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimw.RealIP, middleware.RequestID, middleware.Instrument, middleware.Recover)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.RespondWithError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	r.Get("/health", s.health.HealthHandler)
	r.Get("/health/live", s.health.LivenessHandler)
	r.Get("/health/ready", s.health.ReadinessHandler)
	r.Get("/health/startup", s.health.StartupHandler)
	r.Get("/version", handlers.VersionHandler)
	r.Get("/metrics", MetricsHandler)

	if s.api != nil {
		r.Route("/v1", s.api.Routes)
	}
	if s.adminToken != "" {
		admin := signals.NewHTTPHandler(signals.HTTPConfig{
			TokenAuth: s.adminToken,
			RateLimit: 10,
			RateBurst: 5,
		})
		r.Post("/admin/signal", admin.ServeHTTP)
		if log := observability.ServerLogger; log != nil {
			log.Warn("Admin signal endpoint enabled; keep this listener off the public internet",
				zap.String("path", "/admin/signal"))
		}
	}
}

// Start binds the listener, marks the startup probe as passing and serves until
// Shutdown. It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.health.MarkStarted()
	metrics.ServerStarted(time.Now())
	if log := observability.Logger(); log != nil {
		log.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
	}
	return s.http.Serve(ln)
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Health returns the manager behind the /health probes.
func (s *Server) Health() *handlers.HealthManager {
	return s.health
}
