package provider

import (
	"net/http"
	"time"

	"github.com/deveex11-sketch/postdominator/internal/domain"
)

const defaultUserAgent = "PostDominator/1.0"

var (
	_ Adapter = (*facebookAdapter)(nil)
	_ Adapter = (*instagramAdapter)(nil)
	_ Adapter = (*twitterAdapter)(nil)
	_ Adapter = (*redditAdapter)(nil)
	_ Adapter = (*linkedInAdapter)(nil)
	_ Adapter = (*tiktokAdapter)(nil)
	_ Adapter = (*youtubeAdapter)(nil)
	_ Adapter = (*pinterestAdapter)(nil)
	_ Adapter = blueskyAdapter{}
)

// Registry maps a platform to its configuration and adapter. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	configs  map[domain.Platform]Config
	adapters map[domain.Platform]Adapter
}

type registryOptions struct {
	transport      http.RoundTripper
	timeout        time.Duration
	userAgent      string
	breaker        bool
	breakerChanged BreakerListener
}

type Option func(*registryOptions)

// WithTransport replaces the base transport shared by all adapters.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *registryOptions) { o.transport = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(o *registryOptions) { o.timeout = d }
}

// WithUserAgent sets the User-Agent sent to Reddit.
func WithUserAgent(ua string) Option {
	return func(o *registryOptions) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithCircuitBreaker guards each platform with its own circuit breaker.
func WithCircuitBreaker(listener BreakerListener) Option {
	return func(o *registryOptions) {
		o.breaker = true
		o.breakerChanged = listener
	}
}

func NewRegistry(configs map[domain.Platform]Config, opts ...Option) *Registry {
	o := registryOptions{
		transport: http.DefaultTransport,
		timeout:   10 * time.Second,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{
		configs:  make(map[domain.Platform]Config, len(configs)),
		adapters: make(map[domain.Platform]Adapter, len(domain.Platforms)),
	}
	for p, c := range configs {
		r.configs[p] = c
	}

	clientFor := func(p domain.Platform) *http.Client {
		rt := o.transport
		if p == domain.PlatformReddit {
			rt = &userAgentTransport{userAgent: o.userAgent, next: rt}
		}
		if o.breaker {
			rt = newBreakerTransport(p, rt, o.breakerChanged)
		}
		return &http.Client{Transport: rt, Timeout: o.timeout}
	}

	r.adapters[domain.PlatformFacebook] = newFacebookAdapter(clientFor(domain.PlatformFacebook))
	r.adapters[domain.PlatformInstagram] = newInstagramAdapter(domain.PlatformInstagram, clientFor(domain.PlatformInstagram))
	r.adapters[domain.PlatformThreads] = newInstagramAdapter(domain.PlatformThreads, clientFor(domain.PlatformThreads))
	r.adapters[domain.PlatformTwitter] = newTwitterAdapter(clientFor(domain.PlatformTwitter))
	r.adapters[domain.PlatformReddit] = newRedditAdapter(clientFor(domain.PlatformReddit))
	r.adapters[domain.PlatformLinkedIn] = newLinkedInAdapter(clientFor(domain.PlatformLinkedIn))
	r.adapters[domain.PlatformTikTok] = newTikTokAdapter(clientFor(domain.PlatformTikTok))
	r.adapters[domain.PlatformYouTube] = newYouTubeAdapter(clientFor(domain.PlatformYouTube))
	r.adapters[domain.PlatformPinterest] = newPinterestAdapter(clientFor(domain.PlatformPinterest))
	r.adapters[domain.PlatformBluesky] = blueskyAdapter{}

	return r
}

// Lookup returns the configuration of a connectable platform. Unknown platforms and
// platforms without client credentials report false.
func (r *Registry) Lookup(p domain.Platform) (Config, bool) {
	c, ok := r.configs[p]
	if !ok || !c.Configured() {
		return Config{}, false
	}
	return c, true
}

func (r *Registry) Adapter(p domain.Platform) (Adapter, bool) {
	a, ok := r.adapters[p]
	return a, ok
}

// Configured lists the connectable platforms in display order.
func (r *Registry) Configured() []domain.Platform {
	var out []domain.Platform
	for _, p := range domain.Platforms {
		if _, ok := r.Lookup(p); ok {
			out = append(out, p)
		}
	}
	return out
}
