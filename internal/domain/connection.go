package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Connection is a user's link to one social platform. AccessToken and RefreshToken
// hold ciphertext envelopes produced by the crypto service, never plaintext.
type Connection struct {
	ID       uuid.UUID
	UserID   string
	Platform Platform

	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time

	PlatformUserID       string
	PlatformUsername     string
	PlatformProfileImage string
	Scopes               []string

	IsActive        bool
	ConnectedAt     time.Time
	LastRefreshedAt time.Time
}

// HasRefreshToken reports whether a refresh token envelope is stored.
func (c *Connection) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// View strips credentials from the connection.
func (c *Connection) View() ConnectionView {
	scopes := c.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return ConnectionView{
		ID:                   c.ID,
		Platform:             c.Platform,
		PlatformUserID:       c.PlatformUserID,
		PlatformUsername:     c.PlatformUsername,
		PlatformProfileImage: c.PlatformProfileImage,
		Scopes:               scopes,
		ConnectedAt:          c.ConnectedAt,
		LastRefreshedAt:      c.LastRefreshedAt,
		TokenExpiresAt:       c.TokenExpiresAt,
	}
}

// ConnectionView is the projection handed to clients. It never carries tokens.
type ConnectionView struct {
	ID                   uuid.UUID  `json:"id"`
	Platform             Platform   `json:"platform"`
	PlatformUserID       string     `json:"platformUserId"`
	PlatformUsername     string     `json:"platformUsername,omitempty"`
	PlatformProfileImage string     `json:"platformProfileImage,omitempty"`
	Scopes               []string   `json:"scopes"`
	ConnectedAt          time.Time  `json:"connectedAt"`
	LastRefreshedAt      time.Time  `json:"lastRefreshedAt"`
	TokenExpiresAt       *time.Time `json:"tokenExpiresAt,omitempty"`
}

// ConnectionInput carries everything needed to create or overwrite the active record.
// Token fields are already encrypted. Now is used for ConnectedAt on creation and for
// LastRefreshedAt always.
type ConnectionInput struct {
	UserID   string
	Platform Platform

	AccessToken    string
	RefreshToken   string
	TokenExpiresAt *time.Time

	PlatformUserID       string
	PlatformUsername     string
	PlatformProfileImage string
	Scopes               []string

	Now time.Time
}

// TokenUpdate describes a token rotation on the active record.
// An empty RefreshToken keeps the stored one; a nil ExpiresAt keeps the stored expiry.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	RefreshedAt  time.Time
}

// ConnectionRepository is the durable per-(user, platform) store. Every mutation is atomic
// per record, and at most one active record exists per (user, platform).
type ConnectionRepository interface {
	UpsertActive(ctx context.Context, in ConnectionInput) (*Connection, error)
	GetActive(ctx context.Context, userID string, platform Platform) (*Connection, error)
	ListActive(ctx context.Context, userID string) ([]*Connection, error)
	UpdateTokens(ctx context.Context, userID string, platform Platform, update TokenUpdate) (*Connection, error)
	Deactivate(ctx context.Context, userID string, platform Platform) (bool, error)
	Delete(ctx context.Context, userID string, platform Platform) (bool, error)
}
