package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	apperrors "github.com/deveex11-sketch/postdominator/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

const callbackTimeout = 30 * time.Second

// Callback error codes understood by the connections page.
const (
	codeMissingParameters   = "missing_parameters"
	codeInvalidState        = "invalid_state"
	codeExpiredState        = "expired_state"
	codeConnectionFailed    = "connection_failed"
	codeUnsupportedPlatform = "unsupported_platform"
	codeUnauthorized        = "unauthorized"
)

func (s *Server) registerAuthRoutes(csrf echo.MiddlewareFunc) {
	auth := s.echo.Group("/api/auth", s.authLimiter)
	auth.GET("/:platform", s.handleBeginConnect, s.requireUser)
	auth.GET("/:platform/callback", s.handleCallback)
	auth.POST("/disconnect", s.handleDisconnect, csrf, s.requireUser)
}

func (s *Server) handleBeginConnect(c echo.Context) error {
	platform, err := parsePlatform(c.Param("platform"))
	if err != nil {
		return err
	}

	authURL, pending, err := s.app.BeginConnect(c.Request().Context(), platform)
	if err != nil {
		return toHTTPError(err, platform)
	}

	if err := s.saveState(c, platform, pending); err != nil {
		return apperrors.InternalError("failed to store OAuth state", err)
	}

	if err := c.Redirect(http.StatusFound, authURL); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

// handleCallback always answers with a redirect to the connections page and always
// clears the state cookie, whatever the outcome.
func (s *Server) handleCallback(c echo.Context) error {
	platform, err := domain.ParsePlatform(c.Param("platform"))
	if err != nil {
		return s.redirectToConnections(c, failure(codeUnsupportedPlatform, "Unsupported platform"))
	}

	pending := s.loadState(c, platform)
	if err := s.clearState(c, platform); err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to clear OAuth state cookie", "platform", platform, "error", err)
	}

	if !s.bindUser(c) {
		slog.WarnContext(c.Request().Context(), "OAuth callback without a signed-in user", "platform", platform)
		return s.redirectToConnections(c, failure(codeUnauthorized, "Please sign in and try again"))
	}

	params := domain.CallbackParams{
		Code:             c.QueryParam("code"),
		State:            c.QueryParam("state"),
		Error:            c.QueryParam("error"),
		ErrorDescription: c.QueryParam("error_description"),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), callbackTimeout)
	defer cancel()

	conn, err := s.app.HandleCallback(ctx, currentUserID(c), platform, params, pending)
	if err != nil {
		code, message := callbackFailure(err)
		slog.WarnContext(ctx, "OAuth callback failed", "platform", platform, "code", code, "error", err)
		return s.redirectToConnections(c, failure(code, message))
	}

	slog.InfoContext(ctx, "Account connected", "platform", platform, "connection_id", conn.ID.String())
	return s.redirectToConnections(c, url.Values{
		"success":  {"true"},
		"platform": {string(platform)},
	})
}

func failure(code, message string) url.Values {
	return url.Values{"error": {code}, "message": {message}}
}

// callbackFailure turns a callback error into the code and message shown to the user.
// Provider error codes are forwarded as sent.
func callbackFailure(err error) (string, string) {
	if errors.Is(err, domain.ErrUnsupportedPlatform) {
		return codeUnsupportedPlatform, "Unsupported platform"
	}

	var cbErr *domain.CallbackError
	if !errors.As(err, &cbErr) {
		return codeConnectionFailed, "Connection failed"
	}

	switch cbErr.Reason {
	case domain.CallbackRemoteError:
		return cbErr.Code, cbErr.Message
	case domain.CallbackMissingParams:
		return codeMissingParameters, "Missing authorization code or state"
	case domain.CallbackStateMismatch:
		return codeInvalidState, "Invalid state parameter"
	case domain.CallbackExpired:
		return codeExpiredState, "Authorization expired, please try again"
	}

	switch {
	case errors.Is(err, domain.ErrNoFacebookPages):
		return codeConnectionFailed, "No Facebook pages found for this account"
	case errors.Is(err, domain.ErrNoInstagramAccount):
		return codeConnectionFailed, "No Instagram business account is linked to your Facebook pages"
	default:
		return codeConnectionFailed, "Connection failed"
	}
}

func (s *Server) redirectToConnections(c echo.Context, q url.Values) error {
	target := s.config.ConnectionsPage
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	if err := c.Redirect(http.StatusFound, target+sep+q.Encode()); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

type disconnectRequest struct {
	Platform string `json:"platform"`
}

func (s *Server) handleDisconnect(c echo.Context) error {
	var req disconnectRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Platform == "" {
		return apperrors.ValidationError("platform is required")
	}

	platform, err := parsePlatform(req.Platform)
	if err != nil {
		return err
	}

	if err := s.app.Disconnect(c.Request().Context(), currentUserID(c), platform); err != nil {
		return toHTTPError(err, platform)
	}

	if err := c.JSON(http.StatusOK, map[string]bool{"success": true}); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
