package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"golang.org/x/oauth2"
)

type twitterAdapter struct {
	oauthAdapter
	apiURL string
}

func newTwitterAdapter(client *http.Client) *twitterAdapter {
	a := &twitterAdapter{
		oauthAdapter: newOAuthAdapter(domain.PlatformTwitter, client),
		apiURL:       "https://api.twitter.com",
	}
	a.refreshStyle = oauth2.AuthStyleInHeader
	return a
}

func (a *twitterAdapter) Refresh(ctx context.Context, cfg Config, refreshToken string) (*domain.Tokens, error) {
	return a.refresh(ctx, cfg, refreshToken)
}

func (a *twitterAdapter) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	var me struct {
		Data struct {
			ID              string `json:"id"`
			Username        string `json:"username"`
			Name            string `json:"name"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"data"`
	}
	if err := a.getJSON(ctx, a.apiURL+"/2/users/me?user.fields=profile_image_url", accessToken, &me); err != nil {
		return nil, fmt.Errorf("failed to fetch twitter profile: %w", err)
	}

	return &domain.Profile{
		ID:           me.Data.ID,
		Username:     me.Data.Username,
		Name:         me.Data.Name,
		ProfileImage: me.Data.ProfileImageURL,
	}, nil
}
