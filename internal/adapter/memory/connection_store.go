package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/google/uuid"
)

// Compile-time interface check.
var _ domain.ConnectionRepository = (*ConnectionStore)(nil)

type connectionKey struct {
	userID   string
	platform domain.Platform
}

// ConnectionStore keeps connections in process memory. Suitable for development and
// single-instance deployments; every operation runs under one mutex.
type ConnectionStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.Connection
	active  map[connectionKey]uuid.UUID
}

func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{
		records: make(map[uuid.UUID]*domain.Connection),
		active:  make(map[connectionKey]uuid.UUID),
	}
}

func (s *ConnectionStore) UpsertActive(_ context.Context, in domain.ConnectionInput) (*domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := connectionKey{userID: in.UserID, platform: in.Platform}
	conn, ok := s.activeLocked(key)
	if !ok {
		conn = &domain.Connection{
			ID:          uuid.New(),
			UserID:      in.UserID,
			Platform:    in.Platform,
			ConnectedAt: in.Now,
		}
		s.records[conn.ID] = conn
		s.active[key] = conn.ID
	}

	conn.AccessToken = in.AccessToken
	conn.RefreshToken = in.RefreshToken
	conn.TokenExpiresAt = cloneTime(in.TokenExpiresAt)
	conn.PlatformUserID = in.PlatformUserID
	conn.PlatformUsername = in.PlatformUsername
	conn.PlatformProfileImage = in.PlatformProfileImage
	conn.Scopes = slices.Clone(in.Scopes)
	conn.IsActive = true
	conn.LastRefreshedAt = in.Now

	return clone(conn), nil
}

func (s *ConnectionStore) GetActive(_ context.Context, userID string, platform domain.Platform) (*domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.activeLocked(connectionKey{userID: userID, platform: platform})
	if !ok {
		return nil, domain.ErrConnectionNotFound
	}
	return clone(conn), nil
}

func (s *ConnectionStore) ListActive(_ context.Context, userID string) ([]*domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Connection
	for key, id := range s.active {
		if key.userID == userID {
			out = append(out, clone(s.records[id]))
		}
	}
	slices.SortFunc(out, func(a, b *domain.Connection) int {
		return a.ConnectedAt.Compare(b.ConnectedAt)
	})
	return out, nil
}

func (s *ConnectionStore) UpdateTokens(_ context.Context, userID string, platform domain.Platform, u domain.TokenUpdate) (*domain.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.activeLocked(connectionKey{userID: userID, platform: platform})
	if !ok {
		return nil, domain.ErrConnectionNotFound
	}

	conn.AccessToken = u.AccessToken
	if u.RefreshToken != "" {
		conn.RefreshToken = u.RefreshToken
	}
	if u.ExpiresAt != nil {
		conn.TokenExpiresAt = cloneTime(u.ExpiresAt)
	}
	conn.LastRefreshedAt = u.RefreshedAt

	return clone(conn), nil
}

func (s *ConnectionStore) Deactivate(_ context.Context, userID string, platform domain.Platform) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := connectionKey{userID: userID, platform: platform}
	conn, ok := s.activeLocked(key)
	if !ok {
		return false, nil
	}
	conn.IsActive = false
	delete(s.active, key)
	return true, nil
}

func (s *ConnectionStore) Delete(_ context.Context, userID string, platform domain.Platform) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := connectionKey{userID: userID, platform: platform}
	conn, ok := s.activeLocked(key)
	if !ok {
		return false, nil
	}
	delete(s.records, conn.ID)
	delete(s.active, key)
	return true, nil
}

func (s *ConnectionStore) activeLocked(key connectionKey) (*domain.Connection, bool) {
	id, ok := s.active[key]
	if !ok {
		return nil, false
	}
	conn, ok := s.records[id]
	return conn, ok
}

func clone(c *domain.Connection) *domain.Connection {
	out := *c
	out.Scopes = slices.Clone(c.Scopes)
	out.TokenExpiresAt = cloneTime(c.TokenExpiresAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
