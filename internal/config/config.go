package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	SearchProviderSoundCloud = "soundcloud"
	SearchProviderYouTube    = "youtube"
	SearchProviderYTMusic    = "ytmusic"
	SearchProviderYouTubeAPI = "youtube_api"
)

var knownSearchProviders = map[string]struct{}{
	SearchProviderSoundCloud: {},
	SearchProviderYouTube:    {},
	SearchProviderYTMusic:    {},
	SearchProviderYouTubeAPI: {},
}

type Config struct {
	Env                 string
	DiscordToken        string
	CommandPrefix       string
	InactivityTimeoutMs int
	DefaultVolume       float64
	SearchProviders     []string
	SearchRatePerSecond float64
	SearchBurst         int
	ResolveTimeoutSec   int
	SpotifyClientID     string
	SpotifyClientSecret string
	YouTubeAPIKey       string
	YTDLPPath           string
	YTCookiesB64        string
	YTCookiesPath       string
	AudioBitrateKbps    int
	MetricsAddr         string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.InactivityTimeoutMs <= 0 {
		return fmt.Errorf("INACTIVITY_TIMEOUT_MS must be positive, got %d", c.InactivityTimeoutMs)
	}
	if c.DefaultVolume < 0 || c.DefaultVolume > 1 {
		return fmt.Errorf("DEFAULT_VOLUME must be between 0.0 and 1.0, got %v", c.DefaultVolume)
	}
	if c.SearchRatePerSecond <= 0 {
		return fmt.Errorf("SEARCH_RATE_PER_SECOND must be positive, got %v", c.SearchRatePerSecond)
	}
	if c.SearchBurst <= 0 {
		return fmt.Errorf("SEARCH_BURST must be positive, got %d", c.SearchBurst)
	}
	if c.ResolveTimeoutSec <= 0 {
		return fmt.Errorf("RESOLVE_TIMEOUT_SEC must be positive, got %d", c.ResolveTimeoutSec)
	}
	if c.AudioBitrateKbps < 8 || c.AudioBitrateKbps > 512 {
		return fmt.Errorf("AUDIO_BITRATE_KBPS must be between 8 and 512, got %d", c.AudioBitrateKbps)
	}
	if (c.SpotifyClientID == "") != (c.SpotifyClientSecret == "") {
		return fmt.Errorf("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set together")
	}
	return c.validateSearchProviders()
}

func (c *Config) validateSearchProviders() error {
	if len(c.SearchProviders) == 0 {
		return fmt.Errorf("SEARCH_PROVIDERS must list at least one provider")
	}
	seen := make(map[string]struct{}, len(c.SearchProviders))
	for _, name := range c.SearchProviders {
		if _, ok := knownSearchProviders[name]; !ok {
			return fmt.Errorf("SEARCH_PROVIDERS contains unknown provider %q", name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("SEARCH_PROVIDERS lists %q more than once", name)
		}
		seen[name] = struct{}{}
		if name == SearchProviderYouTubeAPI && c.YouTubeAPIKey == "" {
			return fmt.Errorf("YOUTUBE_API_KEY is required when SEARCH_PROVIDERS includes %s", SearchProviderYouTubeAPI)
		}
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "COMMAND_PREFIX", value: strings.TrimSpace(c.CommandPrefix)},
		{name: "YTDLP_PATH", value: c.YTDLPPath},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) InactivityTimeout() time.Duration {
	return time.Duration(c.InactivityTimeoutMs) * time.Millisecond
}

func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.ResolveTimeoutSec) * time.Second
}

func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}
