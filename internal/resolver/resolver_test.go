package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/foxseedlab/ongaku/internal/music"
)

type mockSearcher struct {
	name    string
	results []SearchResult
	err     error
	queries []string
}

func (m *mockSearcher) Name() string { return m.name }

func (m *mockSearcher) Search(_ context.Context, text string, _ int) ([]SearchResult, error) {
	m.queries = append(m.queries, text)
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type mockMetadataFetcher struct {
	meta  Metadata
	err   error
	links []string
}

func (m *mockMetadataFetcher) FetchMetadata(_ context.Context, link string) (Metadata, error) {
	m.links = append(m.links, link)
	return m.meta, m.err
}

type mockLinkLookup struct {
	meta  Metadata
	err   error
	calls int
}

func (m *mockLinkLookup) Lookup(_ context.Context, _ string) (Metadata, error) {
	m.calls++
	return m.meta, m.err
}

func TestResolve_EmptyQuery(t *testing.T) {
	r := NewResolver(Providers{}, nil)
	_, err := r.Resolve(context.Background(), Request{Query: "   "})
	if !errors.Is(err, music.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestResolve_TextUsesFirstSuccessfulProvider(t *testing.T) {
	primary := &mockSearcher{name: "primary", err: errors.New("boom")}
	secondary := &mockSearcher{name: "secondary"}
	tertiary := &mockSearcher{name: "tertiary", results: []SearchResult{{Title: "Lofi Beats", Locator: "https://example.com/lofi"}}}
	unused := &mockSearcher{name: "unused", results: []SearchResult{{Title: "other", Locator: "x"}}}
	r := NewResolver(Providers{Searchers: []Searcher{primary, secondary, tertiary, unused}}, nil)

	track, err := r.Resolve(context.Background(), Request{Query: "lofi", RequesterID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if track.Title != "Lofi Beats" || track.SourceLocator != "https://example.com/lofi" || track.RequesterID != "user-1" {
		t.Fatalf("unexpected track: %+v", track)
	}
	if track.ID == "" {
		t.Fatal("expected track id to be assigned")
	}
	if len(primary.queries) != 1 || len(secondary.queries) != 1 || len(tertiary.queries) != 1 {
		t.Fatalf("expected each provider up to the winner to be asked once, got %d/%d/%d", len(primary.queries), len(secondary.queries), len(tertiary.queries))
	}
	if len(unused.queries) != 0 {
		t.Fatal("expected chain to stop at first success")
	}
}

func TestResolve_SkipsResultsWithoutLocator(t *testing.T) {
	first := &mockSearcher{name: "first", results: []SearchResult{{Title: "no locator"}}}
	second := &mockSearcher{name: "second", results: []SearchResult{{Title: "ok", Locator: "loc"}}}
	r := NewResolver(Providers{Searchers: []Searcher{first, second}}, nil)

	track, err := r.Resolve(context.Background(), Request{Query: "song"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if track.SourceLocator != "loc" {
		t.Fatalf("expected second provider locator, got %q", track.SourceLocator)
	}
}

func TestResolve_AllProvidersFail(t *testing.T) {
	r := NewResolver(Providers{Searchers: []Searcher{
		&mockSearcher{name: "a", err: errors.New("down")},
		&mockSearcher{name: "b"},
	}}, nil)

	_, err := r.Resolve(context.Background(), Request{Query: "nothing"})
	if !errors.Is(err, music.ErrNoStreamFound) {
		t.Fatalf("expected ErrNoStreamFound, got %v", err)
	}
}

func TestResolve_SearchResultWithoutTitle(t *testing.T) {
	r := NewResolver(Providers{Searchers: []Searcher{
		&mockSearcher{name: "a", results: []SearchResult{{Locator: "loc"}}},
	}}, nil)

	_, err := r.Resolve(context.Background(), Request{Query: "song"})
	if !errors.Is(err, music.ErrMetadataNotFound) {
		t.Fatalf("expected ErrMetadataNotFound, got %v", err)
	}
}

func TestResolve_SpotifyLinkSearchesArtistAndTitle(t *testing.T) {
	fetcher := &mockMetadataFetcher{meta: Metadata{Title: "Blue", Author: "Artist"}}
	searcher := &mockSearcher{name: "a", results: []SearchResult{{Title: "Artist - Blue (Official)", Locator: "loc"}}}
	r := NewResolver(Providers{Metadata: fetcher, Searchers: []Searcher{searcher}}, nil)
	var progress string

	track, err := r.Resolve(context.Background(), Request{
		Query:      "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc",
		OnMetadata: func(searchText string) { progress = searchText },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "Artist - Blue" {
		t.Fatalf("unexpected search queries: %v", searcher.queries)
	}
	if progress != "Artist - Blue" {
		t.Fatalf("expected progress callback with search text, got %q", progress)
	}
	if track.Title != "Blue" || track.SourceLocator != "loc" {
		t.Fatalf("expected the metadata title to name the track, got %+v", track)
	}
}

func TestResolve_SpotifyLinkWithoutArtistSearchesTitleOnly(t *testing.T) {
	fetcher := &mockMetadataFetcher{meta: Metadata{Title: "Blue"}}
	searcher := &mockSearcher{name: "a", results: []SearchResult{{Title: "Blue", Locator: "loc"}}}
	r := NewResolver(Providers{Metadata: fetcher, Searchers: []Searcher{searcher}}, nil)

	if _, err := r.Resolve(context.Background(), Request{Query: "spotify:track:4uLU6hMCjMI75M1A2tKUQC"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if searcher.queries[0] != "Blue" {
		t.Fatalf("expected title-only search, got %q", searcher.queries[0])
	}
}

func TestResolve_InvalidSpotifyLink(t *testing.T) {
	fetcher := &mockMetadataFetcher{}
	r := NewResolver(Providers{Metadata: fetcher}, nil)

	_, err := r.Resolve(context.Background(), Request{Query: "https://open.spotify.com/album/xyz"})
	if !errors.Is(err, music.ErrInvalidLink) {
		t.Fatalf("expected ErrInvalidLink, got %v", err)
	}
	if len(fetcher.links) != 0 {
		t.Fatal("expected no metadata fetch for an invalid link")
	}
}

func TestResolve_SpotifyMetadataEmpty(t *testing.T) {
	r := NewResolver(Providers{Metadata: &mockMetadataFetcher{meta: Metadata{Author: "Artist"}}}, nil)

	_, err := r.Resolve(context.Background(), Request{Query: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"})
	if !errors.Is(err, music.ErrMetadataNotFound) {
		t.Fatalf("expected ErrMetadataNotFound, got %v", err)
	}
}

func TestResolve_SpotifyWithoutFetcher(t *testing.T) {
	r := NewResolver(Providers{}, nil)

	_, err := r.Resolve(context.Background(), Request{Query: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"})
	if !errors.Is(err, music.ErrMetadataNotFound) {
		t.Fatalf("expected ErrMetadataNotFound, got %v", err)
	}
}

func TestResolve_YouTubeLinkResolvesInPlace(t *testing.T) {
	lookup := &mockLinkLookup{meta: Metadata{Title: "Video", Author: "Channel"}}
	searcher := &mockSearcher{name: "a"}
	r := NewResolver(Providers{
		Links:     map[LinkKind]LinkLookup{LinkYouTube: lookup},
		Searchers: []Searcher{searcher},
	}, nil)

	link := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	track, err := r.Resolve(context.Background(), Request{Query: link})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if track.Title != "Video" || track.SourceLocator != link {
		t.Fatalf("unexpected track: %+v", track)
	}
	if len(searcher.queries) != 0 {
		t.Fatal("expected no search for a resolvable link")
	}
}

func TestResolve_YouTubeLinkFallsBackToSearch(t *testing.T) {
	lookup := &mockLinkLookup{err: errors.New("unavailable")}
	searcher := &mockSearcher{name: "a", results: []SearchResult{{Title: "Found", Locator: "loc"}}}
	r := NewResolver(Providers{
		Links:     map[LinkKind]LinkLookup{LinkYouTube: lookup},
		Searchers: []Searcher{searcher},
	}, nil)

	link := "https://youtu.be/dQw4w9WgXcQ"
	track, err := r.Resolve(context.Background(), Request{Query: link})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lookup.calls != 1 {
		t.Fatalf("expected one lookup, got %d", lookup.calls)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != link {
		t.Fatalf("expected fallback search with the same query, got %v", searcher.queries)
	}
	if track.SourceLocator != "loc" {
		t.Fatalf("unexpected locator: %q", track.SourceLocator)
	}
}

func TestResolve_SoundCloudLinkUsesLookupLocator(t *testing.T) {
	lookup := &mockLinkLookup{meta: Metadata{Title: "Set", Locator: "https://soundcloud.com/artist/set"}}
	r := NewResolver(Providers{Links: map[LinkKind]LinkLookup{LinkSoundCloud: lookup}}, nil)

	track, err := r.Resolve(context.Background(), Request{Query: "https://soundcloud.com/artist/set?utm_source=x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if track.SourceLocator != "https://soundcloud.com/artist/set" {
		t.Fatalf("unexpected locator: %q", track.SourceLocator)
	}
}

func TestResolve_CancelledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	first := &mockSearcher{name: "a", err: context.Canceled}
	second := &mockSearcher{name: "b", results: []SearchResult{{Title: "x", Locator: "y"}}}
	r := NewResolver(Providers{Searchers: []Searcher{first, second}}, nil)

	_, err := r.Resolve(ctx, Request{Query: "song"})
	if !errors.Is(err, music.ErrNoStreamFound) {
		t.Fatalf("expected ErrNoStreamFound, got %v", err)
	}
	if len(second.queries) != 0 {
		t.Fatal("expected chain to stop after cancellation")
	}
}
