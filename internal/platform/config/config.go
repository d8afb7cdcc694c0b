package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
	"github.com/deveex11-sketch/postdominator/internal/provider"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv          string `env:"APP_ENV" default:"development"`
	Port            string `env:"PORT" default:"8080"`
	AppURL          string `env:"APP_URL" default:"http://localhost:8080"`
	DatabaseURL     string `env:"DATABASE_URL"`
	RedisURL        string `env:"REDIS_URL"`
	SessionSecret   string `env:"SESSION_SECRET"`
	EncryptionKey   string `env:"ENCRYPTION_KEY"`
	LogLevel        string `env:"LOG_LEVEL" default:"info"`
	LogFormat       string `env:"LOG_FORMAT" default:"text"`
	ConnectionsPage string `env:"CONNECTIONS_PAGE" default:"/dashboard/connections"`
	DefaultUserID   string `env:"DEFAULT_USER_ID"`

	ProviderHTTPTimeout time.Duration `env:"PROVIDER_HTTP_TIMEOUT" default:"10s"`

	FacebookAppID      string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret  string `env:"FACEBOOK_APP_SECRET"`
	TwitterClientID    string `env:"TWITTER_CLIENT_ID"`
	TwitterSecret      string `env:"TWITTER_CLIENT_SECRET"`
	RedditClientID     string `env:"REDDIT_CLIENT_ID"`
	RedditSecret       string `env:"REDDIT_CLIENT_SECRET"`
	RedditUserAgent    string `env:"REDDIT_USER_AGENT" default:"PostDominator/1.0"`
	LinkedInClientID   string `env:"LINKEDIN_CLIENT_ID"`
	LinkedInSecret     string `env:"LINKEDIN_CLIENT_SECRET"`
	TikTokClientID     string `env:"TIKTOK_CLIENT_ID"`
	TikTokSecret       string `env:"TIKTOK_CLIENT_SECRET"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleSecret       string `env:"GOOGLE_CLIENT_SECRET"`
	PinterestAppID     string `env:"PINTEREST_APP_ID"`
	PinterestAppSecret string `env:"PINTEREST_APP_SECRET"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ProviderCredentials maps each platform to its client credentials. Instagram and
// Threads share the Facebook app.
func (c *Config) ProviderCredentials() map[domain.Platform]provider.Credentials {
	facebook := provider.Credentials{ClientID: c.FacebookAppID, ClientSecret: c.FacebookAppSecret}
	return map[domain.Platform]provider.Credentials{
		domain.PlatformFacebook:  facebook,
		domain.PlatformInstagram: facebook,
		domain.PlatformThreads:   facebook,
		domain.PlatformTwitter:   {ClientID: c.TwitterClientID, ClientSecret: c.TwitterSecret},
		domain.PlatformReddit:    {ClientID: c.RedditClientID, ClientSecret: c.RedditSecret},
		domain.PlatformLinkedIn:  {ClientID: c.LinkedInClientID, ClientSecret: c.LinkedInSecret},
		domain.PlatformTikTok:    {ClientID: c.TikTokClientID, ClientSecret: c.TikTokSecret},
		domain.PlatformYouTube:   {ClientID: c.GoogleClientID, ClientSecret: c.GoogleSecret},
		domain.PlatformPinterest: {ClientID: c.PinterestAppID, ClientSecret: c.PinterestAppSecret},
	}
}

// ProviderConfigs builds the per-platform OAuth configuration. Platforms without
// credentials come back unconfigured.
func (c *Config) ProviderConfigs() map[domain.Platform]provider.Config {
	return provider.NewConfigs(c.AppURL, c.ProviderCredentials())
}

func validate(cfg *Config) error {
	if cfg.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	u, err := url.Parse(cfg.AppURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("APP_URL must be an absolute URL, got %q", cfg.AppURL)
	}
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")

	if cfg.ProviderHTTPTimeout <= 0 {
		return fmt.Errorf("PROVIDER_HTTP_TIMEOUT must be positive")
	}

	if cfg.EncryptionKey != "" {
		keyBytes, err := hex.DecodeString(cfg.EncryptionKey)
		if err != nil {
			return fmt.Errorf("ENCRYPTION_KEY must be valid hex: %w", err)
		}
		if len(keyBytes) != 32 {
			return fmt.Errorf("ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
		}
	}

	if !cfg.IsProduction() {
		return nil
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	if cfg.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required in production")
	}
	if cfg.DefaultUserID != "" {
		return fmt.Errorf("DEFAULT_USER_ID is not allowed in production")
	}
	if mode := sslMode(cfg.DatabaseURL); mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}

	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}
