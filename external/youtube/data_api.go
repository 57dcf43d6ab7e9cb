package youtube

import (
	"context"
	"fmt"
	"html"

	"github.com/foxseedlab/ongaku/internal/config"
	"github.com/foxseedlab/ongaku/internal/resolver"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// DataAPISearcher searches through the YouTube Data API v3.
type DataAPISearcher struct {
	service *ytapi.Service
}

func NewDataAPISearcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*DataAPISearcher, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube data api service: %w", err)
	}
	return &DataAPISearcher{service: service}, nil
}

func (s *DataAPISearcher) Name() string {
	return config.SearchProviderYouTubeAPI
}

func (s *DataAPISearcher) Search(ctx context.Context, text string, limit int) ([]resolver.SearchResult, error) {
	if limit <= 0 {
		limit = 1
	}
	resp, err := s.service.Search.List([]string{"id", "snippet"}).
		Q(text).
		Type("video").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube data api search failed: %w", err)
	}
	out := make([]resolver.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		r := resolver.SearchResult{Locator: watchURLPrefix + item.Id.VideoId}
		if item.Snippet != nil {
			r.Title = html.UnescapeString(item.Snippet.Title)
			r.Author = html.UnescapeString(item.Snippet.ChannelTitle)
		}
		out = append(out, r)
	}
	return out, nil
}
