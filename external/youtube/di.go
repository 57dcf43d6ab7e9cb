package youtube

import (
	"context"

	externalaudio "github.com/foxseedlab/ongaku/external/audio"
	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/foxseedlab/ongaku/internal/config"
	"github.com/foxseedlab/ongaku/internal/resolver"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Client, error) {
		return NewClient(), nil
	})
	do.ProvideNamed(injector, resolver.LinkLookupServiceName(resolver.LinkYouTube), func(i do.Injector) (resolver.LinkLookup, error) {
		return do.MustInvoke[*Client](i), nil
	})
	do.ProvideNamed(injector, externalaudio.YouTubeStreamURLServiceName, func(i do.Injector) (audio.StreamURLResolver, error) {
		return do.MustInvoke[*Client](i), nil
	})
	do.ProvideNamed(injector, resolver.SearcherServiceName(config.SearchProviderYouTube), func(i do.Injector) (resolver.Searcher, error) {
		return NewWebSearcher(), nil
	})
	do.ProvideNamed(injector, resolver.SearcherServiceName(config.SearchProviderYTMusic), func(i do.Injector) (resolver.Searcher, error) {
		return NewMusicSearcher(), nil
	})
	do.ProvideNamed(injector, resolver.SearcherServiceName(config.SearchProviderYouTubeAPI), func(i do.Injector) (resolver.Searcher, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewDataAPISearcher(context.Background(), c.YouTubeAPIKey)
	})
}
