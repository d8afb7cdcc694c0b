package provider

import (
	"strings"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"golang.org/x/oauth2"
)

const graphVersion = "v18.0"

// Config is the static OAuth configuration of one platform. Built once at startup.
type Config struct {
	Platform     domain.Platform
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURL  string
	Scopes       []string
}

// Configured reports whether the platform can run the authorization code flow.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.AuthURL != "" && c.TokenURL != ""
}

func (c Config) oauth2(style oauth2.AuthStyle) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: style,
		},
	}
}

type Credentials struct {
	ClientID     string
	ClientSecret string
}

type endpoint struct {
	authURL  string
	tokenURL string
	scopes   []string
}

var (
	facebookEndpoint = endpoint{
		authURL:  "https://www.facebook.com/" + graphVersion + "/dialog/oauth",
		tokenURL: "https://graph.facebook.com/" + graphVersion + "/oauth/access_token",
		scopes: []string{
			"pages_manage_posts",
			"pages_read_engagement",
			"pages_show_list",
			"instagram_basic",
			"instagram_content_publish",
		},
	}
	instagramEndpoint = endpoint{
		authURL:  facebookEndpoint.authURL,
		tokenURL: facebookEndpoint.tokenURL,
		scopes:   []string{"instagram_basic", "instagram_content_publish", "pages_show_list"},
	}
)

var catalog = map[domain.Platform]endpoint{
	domain.PlatformFacebook:  facebookEndpoint,
	domain.PlatformInstagram: instagramEndpoint,
	domain.PlatformThreads:   instagramEndpoint,
	domain.PlatformTwitter: {
		authURL:  "https://twitter.com/i/oauth2/authorize",
		tokenURL: "https://api.twitter.com/2/oauth2/token",
		scopes:   []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
	},
	domain.PlatformReddit: {
		authURL:  "https://www.reddit.com/api/v1/authorize",
		tokenURL: "https://www.reddit.com/api/v1/access_token",
		scopes:   []string{"identity", "submit", "read", "history"},
	},
	domain.PlatformLinkedIn: {
		authURL:  "https://www.linkedin.com/oauth/v2/authorization",
		tokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
		scopes:   []string{"openid", "profile", "email", "w_member_social"},
	},
	domain.PlatformTikTok: {
		authURL:  "https://www.tiktok.com/v2/auth/authorize",
		tokenURL: "https://open.tiktokapis.com/v2/oauth/token",
		scopes:   []string{"user.info.basic", "video.upload"},
	},
	domain.PlatformYouTube: {
		authURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL: "https://oauth2.googleapis.com/token",
		scopes: []string{
			"https://www.googleapis.com/auth/youtube.upload",
			"https://www.googleapis.com/auth/youtube.readonly",
		},
	},
	domain.PlatformPinterest: {
		authURL:  "https://www.pinterest.com/oauth",
		tokenURL: "https://api.pinterest.com/v5/oauth/token",
		scopes:   []string{"boards:read", "pins:read", "pins:write"},
	},
	// Bluesky authenticates with app passwords, there is no OAuth endpoint.
	domain.PlatformBluesky: {},
}

// NewConfigs builds the configuration of every known platform. Platforms missing from
// creds get a Config without credentials, which the registry treats as not connectable.
func NewConfigs(appURL string, creds map[domain.Platform]Credentials) map[domain.Platform]Config {
	base := strings.TrimRight(appURL, "/")
	configs := make(map[domain.Platform]Config, len(catalog))
	for _, p := range domain.Platforms {
		ep := catalog[p]
		c := creds[p]
		configs[p] = Config{
			Platform:     p,
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			AuthURL:      ep.authURL,
			TokenURL:     ep.tokenURL,
			RedirectURL:  base + "/api/auth/" + string(p) + "/callback",
			Scopes:       append([]string(nil), ep.scopes...),
		}
	}
	return configs
}
