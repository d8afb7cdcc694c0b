package provider

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"golang.org/x/oauth2"
)

// redditAdapter authenticates token requests with HTTP Basic. Its client carries the
// mandatory User-Agent (see userAgentTransport).
type redditAdapter struct {
	oauthAdapter
	apiURL string
}

func newRedditAdapter(client *http.Client) *redditAdapter {
	a := &redditAdapter{
		oauthAdapter: newOAuthAdapter(domain.PlatformReddit, client),
		apiURL:       "https://oauth.reddit.com",
	}
	a.exchangeStyle = oauth2.AuthStyleInHeader
	a.refreshStyle = oauth2.AuthStyleInHeader
	return a
}

func (a *redditAdapter) Refresh(ctx context.Context, cfg Config, refreshToken string) (*domain.Tokens, error) {
	return a.refresh(ctx, cfg, refreshToken)
}

func (a *redditAdapter) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	var me struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		IconImg      string `json:"icon_img"`
		SnoovatarImg string `json:"snoovatar_img"`
	}
	if err := a.getJSON(ctx, a.apiURL+"/api/v1/me", accessToken, &me); err != nil {
		return nil, fmt.Errorf("failed to fetch reddit profile: %w", err)
	}

	image := me.IconImg
	if image == "" {
		image = me.SnoovatarImg
	}

	return &domain.Profile{
		ID:           me.ID,
		Username:     me.Name,
		Name:         me.Name,
		ProfileImage: html.UnescapeString(image),
	}, nil
}
