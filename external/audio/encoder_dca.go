//go:build !opus

package audio

import (
	"context"
	"io"

	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/jonas747/dca"
)

type dcaEncoderFactory struct {
	opts dca.EncodeOptions
}

// NewEncoderFactory returns the ffmpeg-backed dca encoder. volume is a
// linear gain in [0, 1].
func NewEncoderFactory(volume float64, bitrateKbps int) audio.EncoderFactory {
	opts := *dca.StdEncodeOptions
	opts.RawOutput = true
	opts.Bitrate = bitrateKbps
	opts.Volume = dcaVolume(volume)
	opts.Application = dca.AudioApplicationAudio
	return &dcaEncoderFactory{opts: opts}
}

// dca scales volume so that 256 is unity gain.
func dcaVolume(volume float64) int {
	return int(volume * 256)
}

func (f *dcaEncoderFactory) EncodeURL(_ context.Context, mediaURL string) (audio.Encoder, error) {
	opts := f.opts
	session, err := dca.EncodeFile(mediaURL, &opts)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (f *dcaEncoderFactory) EncodeStream(_ context.Context, r io.Reader) (audio.Encoder, error) {
	opts := f.opts
	session, err := dca.EncodeMem(r, &opts)
	if err != nil {
		return nil, err
	}
	return session, nil
}
