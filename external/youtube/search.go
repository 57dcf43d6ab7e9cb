package youtube

import (
	"context"
	"fmt"

	"github.com/foxseedlab/ongaku/internal/config"
	"github.com/foxseedlab/ongaku/internal/resolver"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

const musicWatchURLPrefix = "https://music.youtube.com/watch?v="

// WebSearcher scrapes YouTube search results.
type WebSearcher struct {
	client *ytsearch.Client
}

func NewWebSearcher() *WebSearcher {
	return &WebSearcher{client: ytsearch.NewClient(nil)}
}

func (s *WebSearcher) Name() string {
	return config.SearchProviderYouTube
}

func (s *WebSearcher) Search(ctx context.Context, text string, limit int) ([]resolver.SearchResult, error) {
	res, err := s.client.Search(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}
	out := make([]resolver.SearchResult, 0, limit)
	for _, v := range res.Results {
		if v.VideoID == "" {
			continue
		}
		out = append(out, resolver.SearchResult{
			Title:   v.Title,
			Author:  v.Channel,
			Locator: watchURLPrefix + v.VideoID,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// MusicSearcher searches the YouTube Music song catalogue.
type MusicSearcher struct{}

func NewMusicSearcher() *MusicSearcher {
	return &MusicSearcher{}
}

func (s *MusicSearcher) Name() string {
	return config.SearchProviderYTMusic
}

func (s *MusicSearcher) Search(ctx context.Context, text string, limit int) ([]resolver.SearchResult, error) {
	res, err := ytmusic.TrackSearch(text).Next()
	if err != nil {
		return nil, fmt.Errorf("youtube music search failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]resolver.SearchResult, 0, limit)
	for _, v := range res.Tracks {
		if v.VideoID == "" {
			continue
		}
		r := resolver.SearchResult{
			Title:   v.Title,
			Locator: musicWatchURLPrefix + v.VideoID,
		}
		if len(v.Artists) > 0 {
			r.Author = v.Artists[0].Name
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
