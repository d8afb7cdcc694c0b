package domain

import (
	"context"
	"time"
)

// StateTTL bounds how long an authorization attempt may stay pending.
const StateTTL = 10 * time.Minute

// RefreshThreshold is the remaining lifetime below which a token gets refreshed.
const RefreshThreshold = 5 * time.Minute

// Tokens is what a provider hands back from a code exchange or refresh.
// ExpiresIn is zero when the provider did not report a lifetime.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	TokenType    string
}

// Profile is the provider identity normalized across platforms.
type Profile struct {
	ID           string
	Username     string
	Name         string
	ProfileImage string
}

// DisplayName prefers the handle and falls back to the display name.
func (p *Profile) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return p.Name
}

// PendingState is the anti-forgery token stored at the edge while a flow is in flight.
type PendingState struct {
	Token    string
	IssuedAt time.Time
}

// CallbackParams are the query parameters a provider sends to the redirect URI.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// StateLedger remembers consumed state tokens so a replayed callback is rejected.
type StateLedger interface {
	// Consume marks the token as used. It returns false if it was already consumed.
	Consume(ctx context.Context, token string, ttl time.Duration) (bool, error)
}

// RefreshLocker serializes token refreshes for one (user, platform) key.
type RefreshLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
