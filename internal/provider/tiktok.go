package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deveex11-sketch/postdominator/internal/domain"
)

type tiktokAdapter struct {
	oauthAdapter
	apiURL string
}

func newTikTokAdapter(client *http.Client) *tiktokAdapter {
	return &tiktokAdapter{
		oauthAdapter: newOAuthAdapter(domain.PlatformTikTok, client),
		apiURL:       "https://open.tiktokapis.com",
	}
}

func (a *tiktokAdapter) Refresh(context.Context, Config, string) (*domain.Tokens, error) {
	return nil, a.refreshNotSupported()
}

func (a *tiktokAdapter) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	var resp struct {
		Data struct {
			User struct {
				OpenID      string `json:"open_id"`
				Username    string `json:"username"`
				DisplayName string `json:"display_name"`
				AvatarURL   string `json:"avatar_url"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := a.getJSON(ctx, a.apiURL+"/v2/user/info/?fields=open_id,avatar_url,display_name,username", accessToken, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch tiktok profile: %w", err)
	}

	u := resp.Data.User
	return &domain.Profile{
		ID:           u.OpenID,
		Username:     u.Username,
		Name:         u.DisplayName,
		ProfileImage: u.AvatarURL,
	}, nil
}
