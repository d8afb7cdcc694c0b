package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/deveex11-sketch/postdominator/internal/platform/config"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockConnectionService struct {
	beginConnectFn     func(ctx context.Context, platform domain.Platform) (string, domain.PendingState, error)
	handleCallbackFn   func(ctx context.Context, userID string, platform domain.Platform, params domain.CallbackParams, pending *domain.PendingState) (*domain.Connection, error)
	disconnectFn       func(ctx context.Context, userID string, platform domain.Platform) error
	deleteConnectionFn func(ctx context.Context, userID string, platform domain.Platform) error
	listConnectionsFn  func(ctx context.Context, userID string) ([]domain.ConnectionView, error)
}

func (m *mockConnectionService) BeginConnect(ctx context.Context, platform domain.Platform) (string, domain.PendingState, error) {
	if m.beginConnectFn != nil {
		return m.beginConnectFn(ctx, platform)
	}
	return "", domain.PendingState{}, errors.New("not implemented")
}

func (m *mockConnectionService) HandleCallback(ctx context.Context, userID string, platform domain.Platform, params domain.CallbackParams, pending *domain.PendingState) (*domain.Connection, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, userID, platform, params, pending)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConnectionService) Disconnect(ctx context.Context, userID string, platform domain.Platform) error {
	if m.disconnectFn != nil {
		return m.disconnectFn(ctx, userID, platform)
	}
	return nil
}

func (m *mockConnectionService) DeleteConnection(ctx context.Context, userID string, platform domain.Platform) error {
	if m.deleteConnectionFn != nil {
		return m.deleteConnectionFn(ctx, userID, platform)
	}
	return nil
}

func (m *mockConnectionService) ListConnections(ctx context.Context, userID string) ([]domain.ConnectionView, error) {
	if m.listConnectionsFn != nil {
		return m.listConnectionsFn(ctx, userID)
	}
	return nil, nil
}

// --- Test helpers ---

const (
	testUserID    = "user-1"
	testCSRFToken = "csrf-test-token"
)

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:          "development",
		Port:            "0",
		SessionSecret:   "test-secret-key-32-bytes-long!!!",
		ConnectionsPage: "/dashboard/connections",
	}
}

func newTestServer(t *testing.T, app connectionService, opts ...Option) *Server {
	t.Helper()
	return newTestServerWithConfig(t, testConfig(), app, opts...)
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config, app connectionService, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithAuthRateLimit(1000, 1000)}, opts...)
	return NewServer(cfg, app, opts...)
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// withUser attaches a signed session cookie naming userID.
func withUser(t *testing.T, srv *Server, req *http.Request, userID string) {
	t.Helper()
	session := sessions.NewSession(srv.sessionStore, sessionName)
	opts := *srv.sessionStore.Options
	session.Options = &opts
	session.Values[sessionKeyUser] = userID

	rec := httptest.NewRecorder()
	require.NoError(t, session.Save(req, rec))
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
}

func withCSRF(req *http.Request) {
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: testCSRFToken})
	req.Header.Set("X-CSRF-Token", testCSRFToken)
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
