package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/ongaku/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env                 string   `env:"ENV" envDefault:"production"`
	DiscordToken        string   `env:"DISCORD_TOKEN,required"`
	CommandPrefix       string   `env:"COMMAND_PREFIX" envDefault:"!"`
	InactivityTimeoutMs int      `env:"INACTIVITY_TIMEOUT_MS" envDefault:"300000"`
	DefaultVolume       float64  `env:"DEFAULT_VOLUME" envDefault:"0.7"`
	SearchProviders     []string `env:"SEARCH_PROVIDERS" envDefault:"soundcloud,ytmusic,youtube" envSeparator:","`
	SearchRatePerSecond float64  `env:"SEARCH_RATE_PER_SECOND" envDefault:"2"`
	SearchBurst         int      `env:"SEARCH_BURST" envDefault:"4"`
	ResolveTimeoutSec   int      `env:"RESOLVE_TIMEOUT_SEC" envDefault:"30"`
	SpotifyClientID     string   `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string   `env:"SPOTIFY_CLIENT_SECRET"`
	YouTubeAPIKey       string   `env:"YOUTUBE_API_KEY"`
	YTDLPPath           string   `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	YTCookiesB64        string   `env:"YT_COOKIES_B64"`
	YTCookiesPath       string   `env:"YT_COOKIES_PATH" envDefault:"/tmp/yt-cookies.txt"`
	AudioBitrateKbps    int      `env:"AUDIO_BITRATE_KBPS" envDefault:"96"`
	MetricsAddr         string   `env:"METRICS_ADDR"`
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load(dotenvFiles ...string) (*internalconfig.Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}
	return parse()
}

func parse() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                 raw.Env,
		DiscordToken:        raw.DiscordToken,
		CommandPrefix:       raw.CommandPrefix,
		InactivityTimeoutMs: raw.InactivityTimeoutMs,
		DefaultVolume:       raw.DefaultVolume,
		SearchProviders:     normalizeProviders(raw.SearchProviders),
		SearchRatePerSecond: raw.SearchRatePerSecond,
		SearchBurst:         raw.SearchBurst,
		ResolveTimeoutSec:   raw.ResolveTimeoutSec,
		SpotifyClientID:     raw.SpotifyClientID,
		SpotifyClientSecret: raw.SpotifyClientSecret,
		YouTubeAPIKey:       raw.YouTubeAPIKey,
		YTDLPPath:           raw.YTDLPPath,
		YTCookiesB64:        raw.YTCookiesB64,
		YTCookiesPath:       raw.YTCookiesPath,
		AudioBitrateKbps:    raw.AudioBitrateKbps,
		MetricsAddr:         raw.MetricsAddr,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func normalizeProviders(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}
