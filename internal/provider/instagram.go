package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/deveex11-sketch/postdominator/internal/domain"
)

// instagramAdapter resolves the Instagram Business account behind the user's first
// Facebook page. Threads goes through the same Graph API and reuses it.
type instagramAdapter struct {
	oauthAdapter
	graphURL string
}

func newInstagramAdapter(platform domain.Platform, client *http.Client) *instagramAdapter {
	return &instagramAdapter{
		oauthAdapter: newOAuthAdapter(platform, client),
		graphURL:     graphBaseURL,
	}
}

func (a *instagramAdapter) Refresh(context.Context, Config, string) (*domain.Tokens, error) {
	return nil, a.refreshNotSupported()
}

func (a *instagramAdapter) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	var pages struct {
		Data []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := a.getJSON(ctx, a.graphURL+"/me/accounts", accessToken, &pages); err != nil {
		return nil, fmt.Errorf("failed to fetch facebook pages: %w", err)
	}
	if len(pages.Data) == 0 {
		return nil, fmt.Errorf("%s requires a connected Facebook page: %w", a.platform, domain.ErrNoFacebookPages)
	}
	page := pages.Data[0]

	var linked struct {
		InstagramBusinessAccount *struct {
			ID string `json:"id"`
		} `json:"instagram_business_account"`
	}
	pageURL := a.graphURL + "/" + url.PathEscape(page.ID) + "?fields=instagram_business_account"
	if err := a.getJSON(ctx, pageURL, accessToken, &linked); err != nil {
		return nil, fmt.Errorf("failed to resolve instagram account of page %s: %w", page.ID, err)
	}
	if linked.InstagramBusinessAccount == nil || linked.InstagramBusinessAccount.ID == "" {
		return nil, fmt.Errorf("page %q: %w", page.Name, domain.ErrNoInstagramAccount)
	}

	var account struct {
		ID                string `json:"id"`
		Username          string `json:"username"`
		ProfilePictureURL string `json:"profile_picture_url"`
	}
	accountURL := a.graphURL + "/" + url.PathEscape(linked.InstagramBusinessAccount.ID) + "?fields=id,username,profile_picture_url"
	if err := a.getJSON(ctx, accountURL, accessToken, &account); err != nil {
		return nil, fmt.Errorf("failed to fetch instagram account: %w", err)
	}

	return &domain.Profile{
		ID:           account.ID,
		Username:     account.Username,
		ProfileImage: account.ProfilePictureURL,
	}, nil
}
