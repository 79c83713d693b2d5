package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gesturelab/gesturelab/internal/auth"
	"github.com/gesturelab/gesturelab/internal/config"
	"github.com/gesturelab/gesturelab/internal/http/handlers"
	"github.com/gesturelab/gesturelab/internal/metrics"
	"github.com/gesturelab/gesturelab/internal/middleware"
	"github.com/gesturelab/gesturelab/internal/storage"
)

// Deps are the collaborators the server is built from.
type Deps struct {
	Accounts storage.AccountStore
	Sessions storage.SessionStore
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	// Health lists dependencies probed by GET /health.
	Health map[string]handlers.Pinger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner    *http.Server
	handler  http.Handler
	service  *auth.Service
	sessions *auth.SessionManager
	admin    auth.AdminSeed
	log      *slog.Logger
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Accounts == nil || deps.Sessions == nil {
		return nil, errors.New("server: account and session stores are required")
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	hasher := auth.NewHasher(auth.Argon2Params{
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})
	service := auth.NewService(deps.Accounts, hasher, cfg.PasswordMinLength, log)
	tokens := auth.NewTokenManager(cfg.SessionSecret, cfg.SessionIssuer)
	sessions := auth.NewSessionManager(deps.Sessions, tokens, cfg.SessionTTL, log)
	cookie := auth.SessionCookie{Name: cfg.SessionCookieName, Path: "/", Secure: cfg.CookieSecure}
	gate := auth.NewGate(sessions, cookie, handlers.PathLogin)

	view, err := handlers.NewRenderer(log)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(time.Now(), deps.Health).Register(mux)
	handlers.NewAuthHandler(service, sessions, gate, cookie, view, m, log).Register(mux)
	handlers.NewPagesHandler(service, sessions, gate, cookie, view, log).Register(mux)
	handlers.NewAdminHandler(service, sessions, gate, cookie, view, log).Register(mux)
	mux.Handle("GET /metrics", m.Handler())

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(log, middleware.Metrics(m, mux)))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{
		inner:    httpServer,
		handler:  handler,
		service:  service,
		sessions: sessions,
		admin: auth.AdminSeed{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		},
		log: log,
	}, nil
}

// Bootstrap makes sure the admin account exists and drops stale sessions.
func (s *Server) Bootstrap(ctx context.Context) error {
	if _, err := s.service.EnsureAdmin(ctx, s.admin); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	n, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired sessions: %w", err)
	}
	if n > 0 {
		s.log.InfoContext(ctx, "purged expired sessions", "count", n)
	}
	return nil
}

// Handler exposes the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
