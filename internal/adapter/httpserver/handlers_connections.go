package httpserver

import (
	"fmt"
	"net/http"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	apperrors "github.com/deveex11-sketch/postdominator/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerConnectionRoutes(csrf echo.MiddlewareFunc) {
	api := s.echo.Group("/api/connections", csrf, s.requireUser)
	api.GET("", s.handleListConnections)
	api.DELETE("/:platform", s.handleDeleteConnection)
}

type connectionsResponse struct {
	Connections []domain.ConnectionView `json:"connections"`
}

func (s *Server) handleListConnections(c echo.Context) error {
	views, err := s.app.ListConnections(c.Request().Context(), currentUserID(c))
	if err != nil {
		return apperrors.InternalError("failed to fetch connections", err)
	}
	if views == nil {
		views = []domain.ConnectionView{}
	}

	if err := c.JSON(http.StatusOK, connectionsResponse{Connections: views}); err != nil {
		return fmt.Errorf("failed to write connections response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteConnection(c echo.Context) error {
	platform, err := parsePlatform(c.Param("platform"))
	if err != nil {
		return err
	}

	if err := s.app.DeleteConnection(c.Request().Context(), currentUserID(c), platform); err != nil {
		return toHTTPError(err, platform)
	}
	return c.NoContent(http.StatusNoContent)
}
