package httpserver

import (
	"errors"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/deveex11-sketch/postdominator/internal/platform/correlation"
	apperrors "github.com/deveex11-sketch/postdominator/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

const ctxKeyUserID = "userID"

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.Header))
		c.Response().Header().Set(correlation.Header, id)
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// requireUser resolves the acting user from the signed session cookie. Outside production
// DEFAULT_USER_ID stands in when no session exists.
func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.bindUser(c) {
			return apperrors.UnauthorizedError("authentication required")
		}
		return next(c)
	}
}

// bindUser attaches the acting user to the echo and request contexts. It reports
// false when no user can be resolved.
func (s *Server) bindUser(c echo.Context) bool {
	userID := s.sessionUserID(c)
	if userID == "" && !s.config.IsProduction() {
		userID = s.config.DefaultUserID
	}
	if userID == "" {
		return false
	}

	c.Set(ctxKeyUserID, userID)
	c.SetRequest(c.Request().WithContext(correlation.WithUserID(c.Request().Context(), userID)))
	return true
}

func (s *Server) sessionUserID(c echo.Context) string {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return ""
	}
	userID, _ := session.Values[sessionKeyUser].(string)
	return userID
}

func currentUserID(c echo.Context) string {
	userID, _ := c.Get(ctxKeyUserID).(string)
	return userID
}

func parsePlatform(raw string) (domain.Platform, error) {
	p, err := domain.ParsePlatform(raw)
	if err != nil {
		return "", apperrors.ValidationError("invalid platform").WithField("platform", raw)
	}
	return p, nil
}

// toHTTPError maps service errors onto structured errors.
func toHTTPError(err error, platform domain.Platform) error {
	switch {
	case errors.Is(err, domain.ErrUnsupportedPlatform):
		return apperrors.ValidationError("platform is not available").WithField("platform", string(platform))
	case errors.Is(err, domain.ErrConnectionNotFound):
		return apperrors.NotFoundError("connection not found").WithField("platform", string(platform))
	default:
		return apperrors.InternalError("request failed", err).WithField("platform", string(platform))
	}
}
