package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/adapter/httpserver"
	"github.com/deveex11-sketch/postdominator/internal/adapter/memory"
	"github.com/deveex11-sketch/postdominator/internal/adapter/metrics"
	"github.com/deveex11-sketch/postdominator/internal/adapter/postgres"
	"github.com/deveex11-sketch/postdominator/internal/adapter/redis"
	"github.com/deveex11-sketch/postdominator/internal/app"
	"github.com/deveex11-sketch/postdominator/internal/crypto"
	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/deveex11-sketch/postdominator/internal/platform/config"
	"github.com/deveex11-sketch/postdominator/internal/platform/logging"
	"github.com/deveex11-sketch/postdominator/internal/platform/retry"
	"github.com/deveex11-sketch/postdominator/internal/platform/version"
	"github.com/deveex11-sketch/postdominator/internal/provider"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

type stores struct {
	connections domain.ConnectionRepository
	ledger      domain.StateLedger
	locker      domain.RefreshLocker
	checks      []httpserver.HealthCheck
	closers     []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func startupPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Dependency not ready, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
}

func setupDB(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*pgxpool.Pool, error) {
	tracer := postgres.NewMetricsTracer(metrics.NewDBMetrics(reg))
	pool, err := retry.Do(ctx, startupPolicy(), retry.Always, func() (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, tracer)
	})
	if err != nil {
		return nil, err
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func setupRedis(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*goredis.Client, error) {
	hook := redis.NewMetricsHook(metrics.NewRedisMetrics(reg))
	return retry.Do(ctx, startupPolicy(), retry.Always, func() (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL, hook)
	})
}

// setupStores picks Postgres and Redis when configured and falls back to in-process
// stores for local development.
func setupStores(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, clock clockwork.Clock) (*stores, error) {
	s := &stores{}

	if cfg.DatabaseURL != "" {
		pool, err := setupDB(ctx, cfg, reg)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		s.connections = postgres.NewConnectionRepo(pool)
		s.checks = append(s.checks, httpserver.HealthCheck{Name: "postgres", Check: pool.Ping})
	} else {
		slog.Warn("DATABASE_URL not set, connections are kept in memory")
		s.connections = memory.NewConnectionStore()
	}

	if cfg.RedisURL != "" {
		client, err := setupRedis(ctx, cfg, reg)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.ledger = redis.NewStateLedger(client)
		s.locker = redis.NewRefreshLocker(client)
		s.checks = append(s.checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	} else {
		slog.Warn("REDIS_URL not set, state ledger and refresh locks are process-local")
		s.ledger = memory.NewStateLedger(clock)
		s.locker = memory.NewRefreshLocker()
	}

	return s, nil
}

func runGracefulShutdown(srv *httpserver.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	cryptoSvc, err := crypto.New(cfg.EncryptionKey, cfg.IsProduction())
	if err != nil {
		slog.Error("Failed to initialize token encryption", "error", err)
		os.Exit(1)
	}

	reg := metrics.NewRegistry()
	oauthMetrics := metrics.NewOAuthMetrics(reg)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	st, err := setupStores(ctx, cfg, reg, clock)
	cancel()
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer st.close()

	registry := provider.NewRegistry(cfg.ProviderConfigs(),
		provider.WithTimeout(cfg.ProviderHTTPTimeout),
		provider.WithUserAgent(cfg.RedditUserAgent),
		provider.WithCircuitBreaker(oauthMetrics.BreakerChanged),
	)
	slog.Info("Providers configured", "platforms", registry.Configured())

	connections := app.NewConnectionService(registry, st.connections, cryptoSvc, st.ledger, st.locker, clock,
		app.WithObserver(oauthMetrics))

	srv := httpserver.NewServer(cfg, connections,
		httpserver.WithHealthChecks(st.checks...),
		httpserver.WithMetrics(reg),
	)

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		st.close()
		os.Exit(1)
	}

	<-done
	slog.Info("Server stopped")
}
