package provider

import (
	"context"
	"fmt"

	"github.com/deveex11-sketch/postdominator/internal/domain"
)

// blueskyAdapter is a placeholder. Bluesky uses app passwords, so the registry never
// reports it as connectable and every operation fails.
type blueskyAdapter struct{}

func (blueskyAdapter) AuthCodeURL(Config, string) string { return "" }

func (blueskyAdapter) Exchange(context.Context, Config, string) (*domain.Tokens, error) {
	return nil, fmt.Errorf("%w: %s has no oauth flow", domain.ErrUnsupportedPlatform, domain.PlatformBluesky)
}

func (blueskyAdapter) Refresh(context.Context, Config, string) (*domain.Tokens, error) {
	return nil, fmt.Errorf("%w for %s", domain.ErrRefreshNotSupported, domain.PlatformBluesky)
}

func (blueskyAdapter) FetchProfile(context.Context, string) (*domain.Profile, error) {
	return nil, fmt.Errorf("%w: %s has no oauth flow", domain.ErrUnsupportedPlatform, domain.PlatformBluesky)
}
