package ytdlp

import (
	"log/slog"

	externalaudio "github.com/foxseedlab/ongaku/external/audio"
	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/foxseedlab/ongaku/internal/config"
	"github.com/foxseedlab/ongaku/internal/resolver"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Client, error) {
		c := do.MustInvoke[*config.Config](i)
		if err := WriteCookies(c.YTCookiesB64, c.YTCookiesPath); err != nil {
			slog.Warn("continuing without yt-dlp cookies", "error", err)
		}
		return NewClient(c.YTDLPPath, c.YTCookiesPath), nil
	})
	do.ProvideNamed(injector, resolver.SearcherServiceName(config.SearchProviderSoundCloud), func(i do.Injector) (resolver.Searcher, error) {
		return do.MustInvoke[*Client](i), nil
	})
	do.ProvideNamed(injector, resolver.LinkLookupServiceName(resolver.LinkSoundCloud), func(i do.Injector) (resolver.LinkLookup, error) {
		return do.MustInvoke[*Client](i), nil
	})
	do.ProvideNamed(injector, externalaudio.ExtractorStreamURLServiceName, func(i do.Injector) (audio.StreamURLResolver, error) {
		return do.MustInvoke[*Client](i), nil
	})
	do.Provide(injector, func(i do.Injector) (audio.StreamPiper, error) {
		return do.MustInvoke[*Client](i), nil
	})
}
