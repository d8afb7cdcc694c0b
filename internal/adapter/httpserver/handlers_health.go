package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/platform/version"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const (
	startupCheckTimeout   = 2 * time.Second
	readinessCheckTimeout = 5 * time.Second
)

// HealthCheck pings one storage dependency (Postgres, Redis).
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.checkDependencies(startupCheckTimeout))
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.checkDependencies(readinessCheckTimeout))
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

// checkDependencies runs every health check in parallel under the given deadline. The
// response names the first failing check in registration order and each check's result.
func (s *Server) checkDependencies(timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		results := make([]error, len(s.healthChecks))
		var g errgroup.Group
		for i, hc := range s.healthChecks {
			g.Go(func() error {
				results[i] = hc.Check(ctx)
				return nil
			})
		}
		_ = g.Wait()

		checks := make(map[string]string, len(results))
		failed := ""
		for i, err := range results {
			name := s.healthChecks[i].Name
			if err == nil {
				checks[name] = "ok"
				continue
			}
			checks[name] = err.Error()
			if failed == "" {
				failed = name
			}
		}

		status, response := http.StatusOK, map[string]any{"status": "ready", "checks": checks}
		if failed != "" {
			status = http.StatusServiceUnavailable
			response = map[string]any{"status": "unhealthy", "failed_check": failed, "checks": checks}
		}
		if err := c.JSON(status, response); err != nil {
			return fmt.Errorf("failed to send JSON response: %w", err)
		}
		return nil
	}
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
