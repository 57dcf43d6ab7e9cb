package resolver

import (
	"fmt"

	"github.com/foxseedlab/ongaku/internal/config"
	"github.com/samber/do/v2"
	"golang.org/x/time/rate"
)

func SearcherServiceName(provider string) string {
	return "resolver.searcher." + provider
}

func LinkLookupServiceName(kind LinkKind) string {
	return "resolver.link." + string(kind)
}

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Resolver, error) {
		cfg := do.MustInvoke[*config.Config](i)

		searchers := make([]Searcher, 0, len(cfg.SearchProviders))
		for _, name := range cfg.SearchProviders {
			s, err := do.InvokeNamed[Searcher](i, SearcherServiceName(name))
			if err != nil {
				return nil, fmt.Errorf("search provider %s is not available: %w", name, err)
			}
			searchers = append(searchers, s)
		}

		var metadata MetadataFetcher
		if cfg.SpotifyEnabled() {
			metadata = do.MustInvoke[MetadataFetcher](i)
		}

		links := map[LinkKind]LinkLookup{
			LinkYouTube:    do.MustInvokeNamed[LinkLookup](i, LinkLookupServiceName(LinkYouTube)),
			LinkSoundCloud: do.MustInvokeNamed[LinkLookup](i, LinkLookupServiceName(LinkSoundCloud)),
		}

		limiter := rate.NewLimiter(rate.Limit(cfg.SearchRatePerSecond), cfg.SearchBurst)
		return NewResolver(Providers{
			Metadata:  metadata,
			Links:     links,
			Searchers: searchers,
		}, limiter), nil
	})
}
