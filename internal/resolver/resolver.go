package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/ongaku/internal/music"
	"golang.org/x/time/rate"
)

const searchResultLimit = 1

type Resolver struct {
	metadata  MetadataFetcher
	links     map[LinkKind]LinkLookup
	searchers []Searcher
	limiter   *rate.Limiter
}

// NewResolver builds a resolver over the given providers. A nil limiter
// disables outbound rate limiting.
func NewResolver(p Providers, limiter *rate.Limiter) *Resolver {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	links := make(map[LinkKind]LinkLookup, len(p.Links))
	for kind, lookup := range p.Links {
		if lookup != nil {
			links[kind] = lookup
		}
	}
	return &Resolver{
		metadata:  p.Metadata,
		links:     links,
		searchers: append([]Searcher(nil), p.Searchers...),
		limiter:   limiter,
	}
}

type Request struct {
	Query       string
	RequesterID string
	// OnMetadata is called when a metadata link has been read and the
	// stream search is about to start.
	OnMetadata func(searchText string)
}

// Resolve turns a user query into a Track with a playable source locator.
func (r *Resolver) Resolve(ctx context.Context, req Request) (music.Track, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return music.Track{}, music.ErrEmptyQuery
	}
	kind, link := classify(query)
	switch kind {
	case queryMetadataLink:
		return r.resolveMetadataLink(ctx, query, req)
	case queryPlayableLink:
		return r.resolvePlayableLink(ctx, query, link, req.RequesterID)
	default:
		return r.resolveText(ctx, query, req.RequesterID)
	}
}

func (r *Resolver) resolveMetadataLink(ctx context.Context, link string, req Request) (music.Track, error) {
	if _, ok := ParseSpotifyTrackID(link); !ok {
		return music.Track{}, fmt.Errorf("%w: %s", music.ErrInvalidLink, link)
	}
	if r.metadata == nil {
		return music.Track{}, fmt.Errorf("%w: no metadata provider configured for %s", music.ErrMetadataNotFound, link)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return music.Track{}, fmt.Errorf("%w: %w", music.ErrMetadataNotFound, err)
	}
	meta, err := r.metadata.FetchMetadata(ctx, link)
	if err != nil {
		return music.Track{}, fmt.Errorf("%w: %w", music.ErrMetadataNotFound, err)
	}
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		return music.Track{}, fmt.Errorf("%w: empty title for %s", music.ErrMetadataNotFound, link)
	}
	searchText := title
	if author := strings.TrimSpace(meta.Author); author != "" {
		searchText = author + " - " + title
	}
	slog.Info("metadata resolved", "link", link, "search_text", searchText)
	if req.OnMetadata != nil {
		req.OnMetadata(searchText)
	}

	hit, err := r.search(ctx, searchText)
	if err != nil {
		return music.Track{}, err
	}
	return music.NewTrack(title, hit.Locator, req.RequesterID), nil
}

func (r *Resolver) resolvePlayableLink(ctx context.Context, link string, kind LinkKind, requesterID string) (music.Track, error) {
	lookup, ok := r.links[kind]
	if !ok {
		slog.Warn("no lookup registered for link kind; searching as text", "kind", string(kind), "link", link)
		return r.resolveText(ctx, link, requesterID)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return music.Track{}, fmt.Errorf("%w: %w", music.ErrNoStreamFound, err)
	}
	meta, err := lookup.Lookup(ctx, link)
	if err == nil && strings.TrimSpace(meta.Title) != "" {
		locator := meta.Locator
		if locator == "" {
			locator = link
		}
		return music.NewTrack(strings.TrimSpace(meta.Title), locator, requesterID), nil
	}
	if err == nil {
		err = errors.New("lookup returned no title")
	}
	slog.Warn("link lookup failed; falling back to text search", "kind", string(kind), "link", link, "error", err)
	return r.resolveText(ctx, link, requesterID)
}

func (r *Resolver) resolveText(ctx context.Context, text, requesterID string) (music.Track, error) {
	hit, err := r.search(ctx, text)
	if err != nil {
		return music.Track{}, err
	}
	title := strings.TrimSpace(hit.Title)
	if title == "" {
		return music.Track{}, fmt.Errorf("%w: search result for %q has no title", music.ErrMetadataNotFound, text)
	}
	return music.NewTrack(title, hit.Locator, requesterID), nil
}

// search walks the provider chain in order and stops at the first result
// with a locator.
func (r *Resolver) search(ctx context.Context, text string) (SearchResult, error) {
	var errs []error
	for _, s := range r.searchers {
		if err := r.limiter.Wait(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		results, err := s.Search(ctx, text, searchResultLimit)
		if err != nil {
			slog.Warn("search provider failed", "provider", s.Name(), "query", text, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		hit, ok := firstPlayable(results)
		if !ok {
			slog.Debug("search provider returned no playable result", "provider", s.Name(), "query", text)
			continue
		}
		slog.Info("stream source found", "provider", s.Name(), "query", text, "title", hit.Title)
		return hit, nil
	}
	if len(errs) == 0 {
		return SearchResult{}, fmt.Errorf("%w for %q", music.ErrNoStreamFound, text)
	}
	return SearchResult{}, fmt.Errorf("%w for %q: %w", music.ErrNoStreamFound, text, errors.Join(errs...))
}

func firstPlayable(results []SearchResult) (SearchResult, bool) {
	for _, res := range results {
		if strings.TrimSpace(res.Locator) != "" {
			return res, true
		}
	}
	return SearchResult{}, false
}
