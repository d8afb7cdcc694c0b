package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/adapter/metrics"
	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/deveex11-sketch/postdominator/internal/platform/config"
	apperrors "github.com/deveex11-sketch/postdominator/internal/platform/errors"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type connectionService interface {
	BeginConnect(ctx context.Context, platform domain.Platform) (string, domain.PendingState, error)
	HandleCallback(ctx context.Context, userID string, platform domain.Platform, params domain.CallbackParams, pending *domain.PendingState) (*domain.Connection, error)
	Disconnect(ctx context.Context, userID string, platform domain.Platform) error
	DeleteConnection(ctx context.Context, userID string, platform domain.Platform) error
	ListConnections(ctx context.Context, userID string) ([]domain.ConnectionView, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app connectionService

	sessionStore *sessions.CookieStore
	errors       *apperrors.Handler
	httpMetrics  *metrics.HTTPMetrics
	metricsReg   *prometheus.Registry
	healthChecks []HealthCheck
	authLimiter  echo.MiddlewareFunc
	startTime    time.Time
}

type Option func(*Server)

func WithHealthChecks(checks ...HealthCheck) Option {
	return func(s *Server) { s.healthChecks = checks }
}

// WithMetrics records HTTP metrics on reg and serves it on /metrics.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(s *Server) { s.metricsReg = reg }
}

// WithAuthRateLimit overrides the per-IP limit on the OAuth routes.
func WithAuthRateLimit(ratePerSecond float64, burst int) Option {
	return func(s *Server) { s.authLimiter = newRateLimiter(ratePerSecond, burst) }
}

func NewServer(cfg *config.Config, app connectionService, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		sessionStore: setupSessionStore(cfg),
		authLimiter:  newRateLimiter(authRatePerSecond, authBurst),
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	reg := prometheus.NewRegistry()
	if srv.metricsReg != nil {
		reg = srv.metricsReg
		srv.httpMetrics = metrics.NewHTTPMetrics(reg)
	}
	srv.errors = apperrors.NewHandler(reg)

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

const (
	sessionName    = "postdominator-session"
	sessionKeyUser = "user_id"
)

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
