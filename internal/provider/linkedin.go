package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deveex11-sketch/postdominator/internal/domain"
)

type linkedInAdapter struct {
	oauthAdapter
	apiURL string
}

func newLinkedInAdapter(client *http.Client) *linkedInAdapter {
	return &linkedInAdapter{
		oauthAdapter: newOAuthAdapter(domain.PlatformLinkedIn, client),
		apiURL:       "https://api.linkedin.com",
	}
}

func (a *linkedInAdapter) Refresh(ctx context.Context, cfg Config, refreshToken string) (*domain.Tokens, error) {
	return a.refresh(ctx, cfg, refreshToken)
}

// FetchProfile reads the OpenID Connect userinfo. LinkedIn exposes no handle.
func (a *linkedInAdapter) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	var info struct {
		Sub     string `json:"sub"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := a.getJSON(ctx, a.apiURL+"/v2/userinfo", accessToken, &info); err != nil {
		return nil, fmt.Errorf("failed to fetch linkedin profile: %w", err)
	}

	return &domain.Profile{
		ID:           info.Sub,
		Name:         info.Name,
		ProfileImage: info.Picture,
	}, nil
}
