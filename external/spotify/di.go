package spotify

import (
	"github.com/foxseedlab/ongaku/internal/config"
	"github.com/foxseedlab/ongaku/internal/resolver"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (resolver.MetadataFetcher, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewMetadataFetcher(c.SpotifyClientID, c.SpotifyClientSecret), nil
	})
}
