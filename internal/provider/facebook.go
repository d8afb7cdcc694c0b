package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/deveex11-sketch/postdominator/internal/domain"
)

const graphBaseURL = "https://graph.facebook.com/" + graphVersion

type facebookAdapter struct {
	oauthAdapter
	graphURL string
}

func newFacebookAdapter(client *http.Client) *facebookAdapter {
	return &facebookAdapter{
		oauthAdapter: newOAuthAdapter(domain.PlatformFacebook, client),
		graphURL:     graphBaseURL,
	}
}

// Refresh trades the stored token for a fresh long-lived one. Facebook has no
// refresh_token grant; the long-lived access token itself is exchanged.
func (a *facebookAdapter) Refresh(ctx context.Context, cfg Config, refreshToken string) (*domain.Tokens, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", cfg.ClientID)
	q.Set("client_secret", cfg.ClientSecret)
	q.Set("fb_exchange_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.TokenURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var resp struct {
		AccessToken string      `json:"access_token"`
		TokenType   string      `json:"token_type"`
		ExpiresIn   json.Number `json:"expires_in"`
	}
	if err := a.doJSON(req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &domain.TokenExchangeError{Platform: a.platform, Err: fmt.Errorf("response missing access_token")}
	}

	return &domain.Tokens{
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   seconds(resp.ExpiresIn),
	}, nil
}

func (a *facebookAdapter) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	var me struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Picture struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		} `json:"picture"`
	}
	if err := a.getJSON(ctx, a.graphURL+"/me?fields=id,name,email,picture", accessToken, &me); err != nil {
		return nil, fmt.Errorf("failed to fetch facebook profile: %w", err)
	}

	return &domain.Profile{
		ID:           me.ID,
		Name:         me.Name,
		ProfileImage: me.Picture.Data.URL,
	}, nil
}
