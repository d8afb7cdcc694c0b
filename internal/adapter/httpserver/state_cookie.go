package httpserver

import (
	"fmt"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

const (
	stateKeyToken    = "state"
	stateKeyIssuedAt = "issued_at"
)

func stateCookieName(p domain.Platform) string {
	return "oauth_state_" + string(p)
}

// saveState stores the pending state in a signed, short-lived cookie scoped to the platform.
func (s *Server) saveState(c echo.Context, p domain.Platform, pending domain.PendingState) error {
	session := s.newStateSession(p, int(domain.StateTTL.Seconds()))
	session.Values[stateKeyToken] = pending.Token
	session.Values[stateKeyIssuedAt] = pending.IssuedAt.Unix()
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return fmt.Errorf("failed to save state cookie: %w", err)
	}
	return nil
}

// loadState returns nil when the cookie is missing, expired or has a bad signature.
func (s *Server) loadState(c echo.Context, p domain.Platform) *domain.PendingState {
	session, err := s.sessionStore.Get(c.Request(), stateCookieName(p))
	if err != nil || session.IsNew {
		return nil
	}

	token, ok := session.Values[stateKeyToken].(string)
	if !ok || token == "" {
		return nil
	}
	issuedAt, ok := session.Values[stateKeyIssuedAt].(int64)
	if !ok {
		return nil
	}
	return &domain.PendingState{Token: token, IssuedAt: time.Unix(issuedAt, 0)}
}

func (s *Server) clearState(c echo.Context, p domain.Platform) error {
	session := s.newStateSession(p, -1)
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return fmt.Errorf("failed to clear state cookie: %w", err)
	}
	return nil
}

func (s *Server) newStateSession(p domain.Platform, maxAge int) *sessions.Session {
	session := sessions.NewSession(s.sessionStore, stateCookieName(p))
	opts := *s.sessionStore.Options
	opts.MaxAge = maxAge
	session.Options = &opts
	return session
}
