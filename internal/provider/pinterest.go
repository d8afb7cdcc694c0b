package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deveex11-sketch/postdominator/internal/domain"
)

type pinterestAdapter struct {
	oauthAdapter
	apiURL string
}

func newPinterestAdapter(client *http.Client) *pinterestAdapter {
	return &pinterestAdapter{
		oauthAdapter: newOAuthAdapter(domain.PlatformPinterest, client),
		apiURL:       "https://api.pinterest.com",
	}
}

func (a *pinterestAdapter) Refresh(context.Context, Config, string) (*domain.Tokens, error) {
	return nil, a.refreshNotSupported()
}

func (a *pinterestAdapter) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	var account struct {
		ID           string `json:"id"`
		Username     string `json:"username"`
		BusinessName string `json:"business_name"`
		ProfileImage string `json:"profile_image"`
	}
	if err := a.getJSON(ctx, a.apiURL+"/v5/user_account", accessToken, &account); err != nil {
		return nil, fmt.Errorf("failed to fetch pinterest account: %w", err)
	}

	id := account.ID
	if id == "" {
		id = account.Username
	}
	return &domain.Profile{
		ID:           id,
		Username:     account.Username,
		Name:         account.BusinessName,
		ProfileImage: account.ProfileImage,
	}, nil
}
