package resolver

import "context"

type SearchResult struct {
	Title   string
	Author  string
	Locator string
}

type Metadata struct {
	Title  string
	Author string
	// Locator is set by link lookups that can play the link directly.
	Locator string
}

// Searcher is one entry of the playable-source fallback chain.
type Searcher interface {
	Name() string
	Search(ctx context.Context, text string, limit int) ([]SearchResult, error)
}

// MetadataFetcher reads title and artist for links that carry no playable stream.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, link string) (Metadata, error)
}

// LinkLookup resolves a playable-source link in place.
type LinkLookup interface {
	Lookup(ctx context.Context, link string) (Metadata, error)
}

type Providers struct {
	Metadata  MetadataFetcher
	Links     map[LinkKind]LinkLookup
	Searchers []Searcher
}
