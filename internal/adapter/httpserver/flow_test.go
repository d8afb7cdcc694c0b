package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/deveex11-sketch/postdominator/internal/adapter/memory"
	"github.com/deveex11-sketch/postdominator/internal/app"
	"github.com/deveex11-sketch/postdominator/internal/crypto"
	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/deveex11-sketch/postdominator/internal/provider"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handlerTransport answers outbound provider calls from an in-process handler.
type handlerTransport struct {
	handler http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.handler.ServeHTTP(rec, req)
	return rec.Result(), nil
}

func fakeTwitter(exchanges *atomic.Int32) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /2/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":7200,"token_type":"bearer"}`))
	})
	mux.HandleFunc("GET /2/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"42","username":"jack","name":"Jack"}}`))
	})
	return mux
}

type flowHarness struct {
	srv       *Server
	store     *memory.ConnectionStore
	service   *app.ConnectionService
	exchanges *atomic.Int32
}

func newFlowHarness(t *testing.T) *flowHarness {
	t.Helper()
	exchanges := &atomic.Int32{}

	configs := provider.NewConfigs("https://app.example.com", map[domain.Platform]provider.Credentials{
		domain.PlatformTwitter: {ClientID: "client-id", ClientSecret: "client-secret"},
	})
	registry := provider.NewRegistry(configs, provider.WithTransport(handlerTransport{handler: fakeTwitter(exchanges)}))

	cryptoSvc, err := crypto.NewAesCbcCryptoService(strings.Repeat("ab", 32))
	require.NoError(t, err)

	clock := clockwork.NewRealClock()
	store := memory.NewConnectionStore()
	service := app.NewConnectionService(registry, store, cryptoSvc, memory.NewStateLedger(clock), memory.NewRefreshLocker(), clock)

	return &flowHarness{
		srv:       newTestServer(t, service),
		store:     store,
		service:   service,
		exchanges: exchanges,
	}
}

func TestFlow_ConnectListDisconnect(t *testing.T) {
	h := newFlowHarness(t)

	// Begin: the browser is sent to Twitter with a fresh state.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/twitter", nil)
	withUser(t, h.srv, req, testUserID)
	rec := serve(h.srv, req)
	require.Equal(t, http.StatusFound, rec.Code)

	authURL, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "twitter.com", authURL.Host)
	assert.Equal(t, "client-id", authURL.Query().Get("client_id"))
	assert.Equal(t, "https://app.example.com/api/auth/twitter/callback", authURL.Query().Get("redirect_uri"))
	state := authURL.Query().Get("state")
	require.Len(t, state, 64)

	stateCookie := findCookie(rec, "oauth_state_twitter")
	require.NotNil(t, stateCookie)

	// Callback: the code is exchanged and the connection stored encrypted.
	rec = serve(h.srv, callbackRequest(t, h.srv, "twitter", "code=good-code&state="+state, stateCookie))
	_, q := redirectQuery(t, rec)
	require.Equal(t, "true", q.Get("success"), q.Get("message"))

	stored, err := h.store.GetActive(context.Background(), testUserID, domain.PlatformTwitter)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "at-1", stored.AccessToken)
	assert.Equal(t, "jack", stored.PlatformUsername)

	token, err := h.service.GetValidAccessToken(context.Background(), testUserID, domain.PlatformTwitter)
	require.NoError(t, err)
	assert.Equal(t, "at-1", token)

	// Replaying the same callback is rejected without another exchange.
	rec = serve(h.srv, callbackRequest(t, h.srv, "twitter", "code=good-code&state="+state, stateCookie))
	_, q = redirectQuery(t, rec)
	assert.Equal(t, "invalid_state", q.Get("error"))
	assert.Equal(t, int32(1), h.exchanges.Load())

	// List shows the connection without tokens.
	req = httptest.NewRequest(http.MethodGet, "/api/connections", nil)
	withUser(t, h.srv, req, testUserID)
	rec = serve(h.srv, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "at-1")
	assert.NotContains(t, rec.Body.String(), "rt-1")

	var listed connectionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Connections, 1)
	assert.Equal(t, "42", listed.Connections[0].PlatformUserID)

	// Disconnect, then the list is empty and tokens are unavailable.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/disconnect", strings.NewReader(`{"platform":"twitter"}`))
	req.Header.Set("Content-Type", "application/json")
	withUser(t, h.srv, req, testUserID)
	withCSRF(req)
	rec = serve(h.srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/connections", nil)
	withUser(t, h.srv, req, testUserID)
	rec = serve(h.srv, req)
	assert.JSONEq(t, `{"connections":[]}`, rec.Body.String())

	_, err = h.service.GetValidAccessToken(context.Background(), testUserID, domain.PlatformTwitter)
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
}

func TestFlow_RejectedExchangeStoresNothing(t *testing.T) {
	h := newFlowHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/twitter", nil)
	withUser(t, h.srv, req, testUserID)
	rec := serve(h.srv, req)
	authURL, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := authURL.Query().Get("state")

	rec = serve(h.srv, callbackRequest(t, h.srv, "twitter", "code=bad-code&state="+state, findCookie(rec, "oauth_state_twitter")))

	_, q := redirectQuery(t, rec)
	assert.Equal(t, "connection_failed", q.Get("error"))
	assert.NotContains(t, rec.Header().Get("Location"), "invalid_grant")

	_, err = h.store.GetActive(context.Background(), testUserID, domain.PlatformTwitter)
	assert.ErrorIs(t, err, domain.ErrConnectionNotFound)
}

func TestFlow_StateFromAnotherBrowser(t *testing.T) {
	h := newFlowHarness(t)

	// Attacker starts a flow and lures the victim to the callback with the attacker's state.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/twitter", nil)
	withUser(t, h.srv, req, "attacker")
	rec := serve(h.srv, req)
	authURL, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	attackerState := authURL.Query().Get("state")

	// Victim has their own pending flow.
	req = httptest.NewRequest(http.MethodGet, "/api/auth/twitter", nil)
	withUser(t, h.srv, req, testUserID)
	rec = serve(h.srv, req)
	victimCookie := findCookie(rec, "oauth_state_twitter")

	rec = serve(h.srv, callbackRequest(t, h.srv, "twitter", "code=good-code&state="+attackerState, victimCookie))

	_, q := redirectQuery(t, rec)
	assert.Equal(t, "invalid_state", q.Get("error"))
	assert.Equal(t, int32(0), h.exchanges.Load())
}
