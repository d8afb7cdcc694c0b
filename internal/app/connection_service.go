package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/crypto"
	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/deveex11-sketch/postdominator/internal/provider"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

const (
	stateBytes     = 32
	refreshTimeout = 30 * time.Second
)

// Providers resolves platform configuration and adapters.
type Providers interface {
	Lookup(platform domain.Platform) (provider.Config, bool)
	Adapter(platform domain.Platform) (provider.Adapter, bool)
}

// ConnectionService drives a connection through
// Disconnected -> Pending -> Active (valid | needs refresh) -> Disconnected.
type ConnectionService struct {
	providers    Providers
	connections  domain.ConnectionRepository
	crypto       crypto.Service
	ledger       domain.StateLedger
	locker       domain.RefreshLocker
	clock        clockwork.Clock
	observer     Observer
	refreshGroup singleflight.Group
}

type Option func(*ConnectionService)

func WithObserver(o Observer) Option {
	return func(s *ConnectionService) { s.observer = o }
}

func NewConnectionService(
	providers Providers,
	connections domain.ConnectionRepository,
	cryptoSvc crypto.Service,
	ledger domain.StateLedger,
	locker domain.RefreshLocker,
	clock clockwork.Clock,
	opts ...Option,
) *ConnectionService {
	s := &ConnectionService{
		providers:   providers,
		connections: connections,
		crypto:      cryptoSvc,
		ledger:      ledger,
		locker:      locker,
		clock:       clock,
		observer:    noopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginConnect creates a fresh anti-forgery state and returns the provider's authorization
// URL. The caller stores the pending state until the callback arrives.
func (s *ConnectionService) BeginConnect(_ context.Context, platform domain.Platform) (string, domain.PendingState, error) {
	cfg, adapter, err := s.resolve(platform)
	if err != nil {
		return "", domain.PendingState{}, err
	}

	state, err := newState()
	if err != nil {
		return "", domain.PendingState{}, err
	}

	s.observer.FlowStarted(platform)
	return adapter.AuthCodeURL(cfg, state), domain.PendingState{Token: state, IssuedAt: s.clock.Now()}, nil
}

// HandleCallback verifies the callback against the pending state, exchanges the code,
// fetches the profile and stores the encrypted connection. The pending state is consumed
// first, so it cannot be replayed whatever the outcome.
func (s *ConnectionService) HandleCallback(ctx context.Context, userID string, platform domain.Platform, params domain.CallbackParams, pending *domain.PendingState) (*domain.Connection, error) {
	conn, err := s.handleCallback(ctx, userID, platform, params, pending)

	result := "success"
	var cbErr *domain.CallbackError
	switch {
	case errors.As(err, &cbErr):
		result = string(cbErr.Reason)
	case err != nil:
		result = "error"
	}
	s.observer.CallbackHandled(platform, result)

	return conn, err
}

func (s *ConnectionService) handleCallback(ctx context.Context, userID string, platform domain.Platform, params domain.CallbackParams, pending *domain.PendingState) (*domain.Connection, error) {
	cfg, adapter, err := s.resolve(platform)
	if err != nil {
		return nil, err
	}

	// Spend the pending state before looking at the params so that no outcome,
	// rejected or not, leaves it usable.
	fresh := false
	if pending != nil {
		if fresh, err = s.ledger.Consume(ctx, pending.Token, domain.StateTTL); err != nil {
			return nil, fmt.Errorf("failed to consume oauth state: %w", err)
		}
	}

	if params.Error != "" {
		msg := params.ErrorDescription
		if msg == "" {
			msg = "Authentication failed"
		}
		return nil, &domain.CallbackError{Reason: domain.CallbackRemoteError, Code: params.Error, Message: msg}
	}
	if params.Code == "" || params.State == "" {
		return nil, &domain.CallbackError{Reason: domain.CallbackMissingParams, Message: "missing code or state"}
	}
	if pending == nil || subtle.ConstantTimeCompare([]byte(params.State), []byte(pending.Token)) != 1 {
		return nil, &domain.CallbackError{Reason: domain.CallbackStateMismatch, Message: "state does not match"}
	}
	if !fresh {
		return nil, &domain.CallbackError{Reason: domain.CallbackStateMismatch, Message: "state already used"}
	}
	if s.clock.Since(pending.IssuedAt) > domain.StateTTL {
		return nil, &domain.CallbackError{Reason: domain.CallbackExpired, Message: "authorization attempt expired"}
	}

	start := s.clock.Now()
	tokens, err := adapter.Exchange(ctx, cfg, params.Code)
	s.observer.ProviderCall(platform, "exchange", s.clock.Since(start), err)
	if err != nil {
		return nil, &domain.CallbackError{Reason: domain.CallbackExchangeFailed, Err: err}
	}

	start = s.clock.Now()
	profile, err := adapter.FetchProfile(ctx, tokens.AccessToken)
	s.observer.ProviderCall(platform, "profile", s.clock.Since(start), err)
	if err != nil {
		return nil, &domain.CallbackError{Reason: domain.CallbackExchangeFailed, Err: err}
	}

	access, err := s.crypto.Encrypt(tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	var refresh string
	if tokens.RefreshToken != "" {
		if refresh, err = s.crypto.Encrypt(tokens.RefreshToken); err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	now := s.clock.Now()
	conn, err := s.connections.UpsertActive(ctx, domain.ConnectionInput{
		UserID:               userID,
		Platform:             platform,
		AccessToken:          access,
		RefreshToken:         refresh,
		TokenExpiresAt:       expiresAt(now, tokens.ExpiresIn),
		PlatformUserID:       profile.ID,
		PlatformUsername:     profile.DisplayName(),
		PlatformProfileImage: profile.ProfileImage,
		Scopes:               cfg.Scopes,
		Now:                  now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save connection: %w", err)
	}

	slog.Info("Connection established",
		"user_id", userID,
		"platform", platform,
		"connection_id", conn.ID.String(),
	)
	return conn, nil
}

// GetValidAccessToken returns a plaintext access token, refreshing it first when it
// expires within domain.RefreshThreshold. Concurrent callers for the same connection
// share one refresh.
func (s *ConnectionService) GetValidAccessToken(ctx context.Context, userID string, platform domain.Platform) (string, error) {
	conn, err := s.connections.GetActive(ctx, userID, platform)
	if err != nil {
		return "", err
	}
	if !s.needsRefresh(conn) {
		return s.decrypt(conn.AccessToken)
	}
	if !conn.HasRefreshToken() {
		return "", fmt.Errorf("%w for %s", domain.ErrRefreshTokenMissing, platform)
	}

	// The shared refresh outlives any single caller; each caller still stops
	// waiting when its own context ends.
	key := userID + "|" + string(platform)
	ch := s.refreshGroup.DoChan(key, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.refresh(refreshCtx, userID, platform, key)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *ConnectionService) refresh(ctx context.Context, userID string, platform domain.Platform, key string) (string, error) {
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return "", err
	}
	defer unlock()

	// Another replica may have refreshed while we waited for the lock.
	conn, err := s.connections.GetActive(ctx, userID, platform)
	if err != nil {
		return "", err
	}
	if !s.needsRefresh(conn) {
		return s.decrypt(conn.AccessToken)
	}
	if !conn.HasRefreshToken() {
		return "", fmt.Errorf("%w for %s", domain.ErrRefreshTokenMissing, platform)
	}

	cfg, adapter, err := s.resolve(platform)
	if err != nil {
		return "", err
	}

	refreshToken, err := s.decrypt(conn.RefreshToken)
	if err != nil {
		return "", err
	}

	start := s.clock.Now()
	tokens, err := adapter.Refresh(ctx, cfg, refreshToken)
	s.observer.ProviderCall(platform, "refresh", s.clock.Since(start), err)
	if err != nil {
		if errors.Is(err, domain.ErrRefreshNotSupported) {
			s.observer.TokenRefreshed(platform, "unsupported")
		} else {
			s.observer.TokenRefreshed(platform, "error")
		}
		return "", fmt.Errorf("failed to refresh %s token: %w", platform, err)
	}

	now := s.clock.Now()
	update := domain.TokenUpdate{
		ExpiresAt:   expiresAt(now, tokens.ExpiresIn),
		RefreshedAt: now,
	}
	if update.AccessToken, err = s.crypto.Encrypt(tokens.AccessToken); err != nil {
		return "", fmt.Errorf("failed to encrypt access token: %w", err)
	}
	if tokens.RefreshToken != "" && tokens.RefreshToken != refreshToken {
		if update.RefreshToken, err = s.crypto.Encrypt(tokens.RefreshToken); err != nil {
			return "", fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	if _, err := s.connections.UpdateTokens(ctx, userID, platform, update); err != nil {
		return "", fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	s.observer.TokenRefreshed(platform, "success")
	slog.Info("Token refreshed", "user_id", userID, "platform", platform)
	return tokens.AccessToken, nil
}

// Disconnect soft-deletes the active connection. Disconnecting twice reports
// domain.ErrConnectionNotFound.
func (s *ConnectionService) Disconnect(ctx context.Context, userID string, platform domain.Platform) error {
	ok, err := s.connections.Deactivate(ctx, userID, platform)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrConnectionNotFound, platform)
	}
	slog.Info("Connection disconnected", "user_id", userID, "platform", platform)
	return nil
}

// DeleteConnection removes the active connection and its tokens permanently.
func (s *ConnectionService) DeleteConnection(ctx context.Context, userID string, platform domain.Platform) error {
	ok, err := s.connections.Delete(ctx, userID, platform)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrConnectionNotFound, platform)
	}
	slog.Info("Connection deleted", "user_id", userID, "platform", platform)
	return nil
}

func (s *ConnectionService) ListConnections(ctx context.Context, userID string) ([]domain.ConnectionView, error) {
	conns, err := s.connections.ListActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]domain.ConnectionView, 0, len(conns))
	for _, c := range conns {
		views = append(views, c.View())
	}
	return views, nil
}

func (s *ConnectionService) resolve(platform domain.Platform) (provider.Config, provider.Adapter, error) {
	cfg, ok := s.providers.Lookup(platform)
	if !ok {
		return provider.Config{}, nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedPlatform, platform)
	}
	adapter, ok := s.providers.Adapter(platform)
	if !ok {
		return provider.Config{}, nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedPlatform, platform)
	}
	return cfg, adapter, nil
}

func (s *ConnectionService) needsRefresh(c *domain.Connection) bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return c.TokenExpiresAt.Sub(s.clock.Now()) < domain.RefreshThreshold
}

func (s *ConnectionService) decrypt(envelope string) (string, error) {
	plain, err := s.crypto.Decrypt(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return plain, nil
}

func expiresAt(now time.Time, in time.Duration) *time.Time {
	if in <= 0 {
		return nil
	}
	t := now.Add(in)
	return &t
}

func newState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
