package spotify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/foxseedlab/ongaku/internal/music"
	"github.com/foxseedlab/ongaku/internal/resolver"
	"github.com/zmb3/spotify"
	"golang.org/x/oauth2/clientcredentials"
)

type trackGetter interface {
	GetTrack(id spotify.ID) (*spotify.FullTrack, error)
}

// MetadataFetcher reads track title and artist from the Spotify Web API
// using the client credentials flow.
type MetadataFetcher struct {
	tracks trackGetter
}

func NewMetadataFetcher(clientID, clientSecret string) *MetadataFetcher {
	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotify.TokenURL,
	}
	return newMetadataFetcher(cfg.Client(context.Background()))
}

func newMetadataFetcher(httpClient *http.Client) *MetadataFetcher {
	client := spotify.NewClient(httpClient)
	return &MetadataFetcher{tracks: &client}
}

func (f *MetadataFetcher) FetchMetadata(ctx context.Context, link string) (resolver.Metadata, error) {
	id, ok := resolver.ParseSpotifyTrackID(link)
	if !ok {
		return resolver.Metadata{}, music.ErrInvalidLink
	}

	type result struct {
		track *spotify.FullTrack
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		track, err := f.tracks.GetTrack(spotify.ID(id))
		ch <- result{track: track, err: err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return resolver.Metadata{}, ctx.Err()
	}
	if r.err != nil {
		return resolver.Metadata{}, fmt.Errorf("failed to fetch spotify track %s: %w", id, r.err)
	}
	if r.track == nil {
		return resolver.Metadata{}, music.ErrMetadataNotFound
	}
	meta := resolver.Metadata{Title: r.track.Name}
	if len(r.track.Artists) > 0 {
		meta.Author = r.track.Artists[0].Name
	}
	return meta, nil
}
