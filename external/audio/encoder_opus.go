//go:build opus

package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/foxseedlab/ongaku/internal/audio"
	"github.com/hraban/opus"
)

const (
	sampleRate      = 48000
	channels        = 2
	frameSizeMs     = 20
	samplesPerFrame = sampleRate * frameSizeMs * channels / 1000
	maxPacketBytes  = 4000
	ffmpegPath      = "ffmpeg"
)

type opusEncoderFactory struct {
	volume  float64
	bitrate int
}

// NewEncoderFactory returns an encoder that decodes with ffmpeg and encodes
// opus in process through libopus.
func NewEncoderFactory(volume float64, bitrateKbps int) audio.EncoderFactory {
	return &opusEncoderFactory{volume: volume, bitrate: bitrateKbps * 1000}
}

func (f *opusEncoderFactory) EncodeURL(ctx context.Context, mediaURL string) (audio.Encoder, error) {
	return f.start(ctx, mediaURL, nil)
}

func (f *opusEncoderFactory) EncodeStream(ctx context.Context, r io.Reader) (audio.Encoder, error) {
	return f.start(ctx, "pipe:0", r)
}

func (f *opusEncoderFactory) start(ctx context.Context, input string, stdin io.Reader) (audio.Encoder, error) {
	enc, err := opus.NewEncoder(sampleRate, channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if err := enc.SetBitrate(f.bitrate); err != nil {
		return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	var args []string
	if stdin == nil {
		args = append(args, "-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5")
	}
	args = append(args,
		"-i", input,
		"-af", "volume="+strconv.FormatFloat(f.volume, 'f', 2, 64),
		"-f", "s16le", "-ar", strconv.Itoa(sampleRate), "-ac", strconv.Itoa(channels),
		"-loglevel", "warning",
		"pipe:1",
	)
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	return &opusEncoder{
		ctx:    ctx,
		cmd:    cmd,
		cancel: cancel,
		pcm:    stdout,
		enc:    enc,
		frame:  make([]int16, samplesPerFrame),
		raw:    make([]byte, samplesPerFrame*2),
	}, nil
}

type opusEncoder struct {
	ctx    context.Context
	cmd    *exec.Cmd
	cancel context.CancelFunc
	pcm    io.Reader
	enc    *opus.Encoder
	frame  []int16
	raw    []byte

	waitOnce sync.Once
	waitErr  error
	once     sync.Once
}

func (e *opusEncoder) OpusFrame() ([]byte, error) {
	if _, err := io.ReadFull(e.pcm, e.raw); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			e.wait()
			return nil, io.EOF
		}
		return nil, err
	}
	for i := range e.frame {
		e.frame[i] = int16(binary.LittleEndian.Uint16(e.raw[i*2:]))
	}
	out := make([]byte, maxPacketBytes)
	n, err := e.enc.Encode(e.frame, out)
	if err != nil {
		return nil, fmt.Errorf("opus encode failed: %w", err)
	}
	return out[:n], nil
}

func (e *opusEncoder) FrameDuration() time.Duration {
	return frameSizeMs * time.Millisecond
}

// Error returns ffmpeg's exit failure. A process we killed ourselves is not
// an error.
func (e *opusEncoder) Error() error {
	err := e.wait()
	if err == nil || e.ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("ffmpeg failed: %w", err)
}

func (e *opusEncoder) wait() error {
	e.waitOnce.Do(func() {
		e.waitErr = e.cmd.Wait()
	})
	return e.waitErr
}

func (e *opusEncoder) Cleanup() {
	e.once.Do(func() {
		e.cancel()
		if err := e.wait(); err != nil {
			slog.Debug("ffmpeg exited", "error", err)
		}
	})
}
