package audio

import (
	"context"

	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/foxseedlab/ongaku/internal/config"
	"github.com/foxseedlab/ongaku/internal/resolver"
	"github.com/samber/do/v2"
)

const (
	YouTubeStreamURLServiceName   = "audio.stream_url.youtube"
	ExtractorStreamURLServiceName = "audio.stream_url.extractor"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.EncoderFactory, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewEncoderFactory(c.DefaultVolume, c.AudioBitrateKbps), nil
	})
	do.Provide(injector, func(i do.Injector) (audio.Openers, error) {
		encoders := do.MustInvoke[audio.EncoderFactory](i)
		urls := &streamURLRouter{
			youtube:   do.MustInvokeNamed[audio.StreamURLResolver](i, YouTubeStreamURLServiceName),
			extractor: do.MustInvokeNamed[audio.StreamURLResolver](i, ExtractorStreamURLServiceName),
		}
		piper := do.MustInvoke[audio.StreamPiper](i)
		return audio.Openers{
			Primary:  NewLinkOpener(urls, encoders),
			Fallback: NewPipeOpener(piper, encoders),
		}, nil
	})
}

// streamURLRouter sends YouTube locators to the native client and
// everything else to the extractor.
type streamURLRouter struct {
	youtube   audio.StreamURLResolver
	extractor audio.StreamURLResolver
}

func (r *streamURLRouter) StreamURL(ctx context.Context, locator string) (string, error) {
	if _, ok := resolver.YouTubeVideoID(locator); ok {
		return r.youtube.StreamURL(ctx, locator)
	}
	return r.extractor.StreamURL(ctx, locator)
}
