package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"golang.org/x/oauth2"
)

const maxResponseBody = 1 << 20

// Adapter speaks one platform's OAuth and profile protocol.
type Adapter interface {
	AuthCodeURL(cfg Config, state string) string
	Exchange(ctx context.Context, cfg Config, code string) (*domain.Tokens, error)
	Refresh(ctx context.Context, cfg Config, refreshToken string) (*domain.Tokens, error)
	FetchProfile(ctx context.Context, accessToken string) (*domain.Profile, error)
}

// oauthAdapter implements the standard authorization code grant. Platforms embed it and
// add their profile endpoint and refresh behavior.
type oauthAdapter struct {
	platform      domain.Platform
	client        *http.Client
	exchangeStyle oauth2.AuthStyle
	refreshStyle  oauth2.AuthStyle
}

func newOAuthAdapter(platform domain.Platform, client *http.Client) oauthAdapter {
	return oauthAdapter{
		platform:      platform,
		client:        client,
		exchangeStyle: oauth2.AuthStyleInParams,
		refreshStyle:  oauth2.AuthStyleInParams,
	}
}

func (a *oauthAdapter) AuthCodeURL(cfg Config, state string) string {
	return cfg.oauth2(a.exchangeStyle).AuthCodeURL(state)
}

func (a *oauthAdapter) Exchange(ctx context.Context, cfg Config, code string) (*domain.Tokens, error) {
	tok, err := cfg.oauth2(a.exchangeStyle).Exchange(a.withClient(ctx), code)
	if err != nil {
		return nil, a.tokenError(err)
	}
	return tokensFrom(tok), nil
}

func (a *oauthAdapter) refresh(ctx context.Context, cfg Config, refreshToken string) (*domain.Tokens, error) {
	src := cfg.oauth2(a.refreshStyle).TokenSource(a.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, a.tokenError(err)
	}
	return tokensFrom(tok), nil
}

func (a *oauthAdapter) refreshNotSupported() error {
	return fmt.Errorf("%w for %s", domain.ErrRefreshNotSupported, a.platform)
}

func (a *oauthAdapter) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.client)
}

func (a *oauthAdapter) tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &domain.TokenExchangeError{
			Platform:   a.platform,
			StatusCode: re.Response.StatusCode,
			Body:       string(re.Body),
			Err:        err,
		}
	}
	return &domain.TokenExchangeError{Platform: a.platform, Err: err}
}

// getJSON calls a platform API with the user's bearer token and decodes the response.
func (a *oauthAdapter) getJSON(ctx context.Context, rawURL, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if accessToken != "" {
		(&oauth2.Token{AccessToken: accessToken}).SetAuthHeader(req)
	}
	req.Header.Set("Accept", "application/json")

	return a.doJSON(req, out)
}

func (a *oauthAdapter) doJSON(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return &domain.TokenExchangeError{Platform: a.platform, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &domain.TokenExchangeError{Platform: a.platform, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.TokenExchangeError{
			Platform:   a.platform,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &domain.TokenExchangeError{Platform: a.platform, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func tokensFrom(tok *oauth2.Token) *domain.Tokens {
	t := &domain.Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	switch {
	case tok.ExpiresIn > 0:
		t.ExpiresIn = time.Duration(tok.ExpiresIn) * time.Second
	case !tok.Expiry.IsZero():
		t.ExpiresIn = time.Until(tok.Expiry).Round(time.Second)
	}
	return t
}

func seconds(n json.Number) time.Duration {
	v, err := n.Int64()
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}
