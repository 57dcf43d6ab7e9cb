package audio

import (
	"context"
	"io"
	"time"
)

// FrameSource yields encoded opus frames and returns io.EOF once the track ends.
type FrameSource interface {
	OpusFrame() ([]byte, error)
	FrameDuration() time.Duration
}

// Resource is an open, bindable audio stream plus any external process it owns.
// Release must be safe to call more than once.
type Resource interface {
	FrameSource
	Release()
}

// Opener is one extraction strategy that turns a source locator into a Resource.
// ctx bounds the lifetime of the returned Resource, not only the open call.
type Opener interface {
	Name() string
	Open(ctx context.Context, locator string) (Resource, error)
}

// Openers is the strategy pair tried for every track: Primary first, then
// Fallback exactly once.
type Openers struct {
	Primary  Opener
	Fallback Opener
}

// Encoder is a running transcode. Error reports why the transcode stopped
// early and is only meaningful once OpusFrame has returned io.EOF.
type Encoder interface {
	FrameSource
	Error() error
	Cleanup()
}

type EncoderFactory interface {
	EncodeURL(ctx context.Context, mediaURL string) (Encoder, error)
	EncodeStream(ctx context.Context, r io.Reader) (Encoder, error)
}

// StreamURLResolver maps a source locator to a direct media URL.
type StreamURLResolver interface {
	StreamURL(ctx context.Context, locator string) (string, error)
}

// StreamPiper starts a process that writes the source's media bytes to the
// returned reader. stop kills the process and must be safe to call twice.
type StreamPiper interface {
	Pipe(ctx context.Context, locator string) (r io.Reader, stop func(), err error)
}
