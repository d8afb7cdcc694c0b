package domain

import "fmt"

type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformReddit    Platform = "reddit"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformPinterest Platform = "pinterest"
	PlatformThreads   Platform = "threads"
	PlatformBluesky   Platform = "bluesky"
)

// Platforms lists every platform identifier the service knows about, in display order.
var Platforms = []Platform{
	PlatformFacebook,
	PlatformInstagram,
	PlatformTwitter,
	PlatformReddit,
	PlatformLinkedIn,
	PlatformTikTok,
	PlatformYouTube,
	PlatformPinterest,
	PlatformThreads,
	PlatformBluesky,
}

// ParsePlatform validates a raw identifier (usually a URL segment).
func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
}

func (p Platform) String() string {
	return string(p)
}
