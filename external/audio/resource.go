package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/foxseedlab/ongaku/internal/music"
)

// resource ties an encoder to everything that feeds it. Release tears all
// of it down once.
type resource struct {
	enc    audio.Encoder
	cancel context.CancelFunc
	stop   func()
	once   sync.Once

	// first is the frame read while opening; it is handed out before
	// anything else.
	first  []byte
	frames int
}

func newResource(enc audio.Encoder, cancel context.CancelFunc, stop func()) *resource {
	return &resource{enc: enc, cancel: cancel, stop: stop}
}

// prime blocks until the encoder yields its first frame. A source that ends
// or fails before producing audio is reported as an open failure, and the
// resource is released.
func (r *resource) prime(ctx context.Context) error {
	type result struct {
		frame []byte
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		frame, err := r.enc.OpusFrame()
		ch <- result{frame: frame, err: err}
	}()

	select {
	case <-ctx.Done():
		r.Release()
		return fmt.Errorf("%w: %w", music.ErrStreamOpenFailed, ctx.Err())
	case res := <-ch:
		if res.err == nil {
			r.first = res.frame
			return nil
		}
		err := res.err
		if errors.Is(err, io.EOF) {
			err = errors.New("source produced no audio")
			if encErr := r.enc.Error(); encErr != nil {
				err = encErr
			}
		}
		r.Release()
		return fmt.Errorf("%w: %w", music.ErrStreamOpenFailed, err)
	}
}

// OpusFrame is called from a single playback goroutine.
func (r *resource) OpusFrame() ([]byte, error) {
	if r.first != nil {
		frame := r.first
		r.first = nil
		r.frames++
		return frame, nil
	}
	frame, err := r.enc.OpusFrame()
	if err == nil {
		r.frames++
		return frame, nil
	}
	if errors.Is(err, io.EOF) {
		if encErr := r.enc.Error(); encErr != nil {
			return nil, fmt.Errorf("encoder stopped after %d frames: %w", r.frames, encErr)
		}
	}
	return nil, err
}

func (r *resource) FrameDuration() time.Duration {
	return r.enc.FrameDuration()
}

func (r *resource) Release() {
	r.once.Do(func() {
		if r.stop != nil {
			r.stop()
		}
		if r.cancel != nil {
			r.cancel()
		}
		r.enc.Cleanup()
	})
}
