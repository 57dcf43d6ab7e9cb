package audio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foxseedlab/ongaku/internal/audio"
)

const (
	LinkOpenerName = "link"
	PipeOpenerName = "pipe"
)

// LinkOpener resolves a direct media URL and lets the encoder fetch it.
type LinkOpener struct {
	urls     audio.StreamURLResolver
	encoders audio.EncoderFactory
}

func NewLinkOpener(urls audio.StreamURLResolver, encoders audio.EncoderFactory) *LinkOpener {
	return &LinkOpener{urls: urls, encoders: encoders}
}

func (o *LinkOpener) Name() string {
	return LinkOpenerName
}

func (o *LinkOpener) Open(ctx context.Context, locator string) (audio.Resource, error) {
	mediaURL, err := o.urls.StreamURL(ctx, locator)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stream url: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	enc, err := o.encoders.EncodeURL(ctx, mediaURL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start encoder: %w", err)
	}
	res := newResource(enc, cancel, nil)
	if err := res.prime(ctx); err != nil {
		return nil, err
	}
	slog.Debug("opened stream from direct url", "locator", locator)
	return res, nil
}

// PipeOpener streams the source through an extractor process into the encoder.
type PipeOpener struct {
	piper    audio.StreamPiper
	encoders audio.EncoderFactory
}

func NewPipeOpener(piper audio.StreamPiper, encoders audio.EncoderFactory) *PipeOpener {
	return &PipeOpener{piper: piper, encoders: encoders}
}

func (o *PipeOpener) Name() string {
	return PipeOpenerName
}

func (o *PipeOpener) Open(ctx context.Context, locator string) (audio.Resource, error) {
	ctx, cancel := context.WithCancel(ctx)
	r, stop, err := o.piper.Pipe(ctx, locator)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start extractor: %w", err)
	}
	enc, err := o.encoders.EncodeStream(ctx, r)
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("failed to start encoder: %w", err)
	}
	res := newResource(enc, cancel, stop)
	if err := res.prime(ctx); err != nil {
		return nil, err
	}
	slog.Debug("opened piped stream", "locator", locator)
	return res, nil
}
