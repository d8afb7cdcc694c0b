package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/deveex11-sketch/postdominator/internal/domain"
)

type youtubeAdapter struct {
	oauthAdapter
	apiURL string
}

func newYouTubeAdapter(client *http.Client) *youtubeAdapter {
	return &youtubeAdapter{
		oauthAdapter: newOAuthAdapter(domain.PlatformYouTube, client),
		apiURL:       "https://www.googleapis.com",
	}
}

func (a *youtubeAdapter) Refresh(context.Context, Config, string) (*domain.Tokens, error) {
	return nil, a.refreshNotSupported()
}

// FetchProfile returns the channel owned by the authorizing account.
func (a *youtubeAdapter) FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	var resp struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title      string `json:"title"`
				CustomURL  string `json:"customUrl"`
				Thumbnails struct {
					Default struct {
						URL string `json:"url"`
					} `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := a.getJSON(ctx, a.apiURL+"/youtube/v3/channels?part=snippet&mine=true", accessToken, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch youtube channel: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("account has no youtube channel")
	}

	ch := resp.Items[0]
	return &domain.Profile{
		ID:           ch.ID,
		Username:     strings.TrimPrefix(ch.Snippet.CustomURL, "@"),
		Name:         ch.Snippet.Title,
		ProfileImage: ch.Snippet.Thumbnails.Default.URL,
	}, nil
}
