// Package device plays a live engine stream on the system audio output
// through ebiten's audio package.
package device

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// Channels is the only channel count the output supports.
const Channels = 2

// ErrUnsupportedFormat is returned for streams the output cannot play.
var ErrUnsupportedFormat = errors.New("device: unsupported stream format")

var (
	contextOnce  sync.Once
	audioContext *ebitaudio.Context
	contextRate  int
)

// sharedContext returns the process-wide audio context. ebiten allows one
// context per process, so every output must use the same rate.
func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	contextOnce.Do(func() {
		contextRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})

	if contextRate != sampleRate {
		return nil, fmt.Errorf("%w: audio context already running at %d Hz, requested %d Hz",
			ErrUnsupportedFormat, contextRate, sampleRate)
	}

	return audioContext, nil
}

type options struct {
	logger     *slog.Logger
	bufferSize time.Duration
}

// Option configures an Output.
type Option func(*options)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBufferSize sets the player buffer length. Shorter buffers lower the
// latency of parameter changes.
func WithBufferSize(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.bufferSize = d
		}
	}
}

// Output pulls interleaved little-endian float32 stereo frames from a
// reader and plays them.
type Output struct {
	player *ebitaudio.Player
	log    *slog.Logger
}

// Open creates a paused output reading from src. src must deliver stereo
// float32 frames at sampleRate, as engine.Engine.Read does.
func Open(src io.Reader, sampleRate, channels int, opts ...Option) (*Output, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrUnsupportedFormat)
	}

	if channels != Channels {
		return nil, fmt.Errorf("%w: %d channels, want %d", ErrUnsupportedFormat, channels, Channels)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, sampleRate)
	}

	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}

	player, err := ctx.NewPlayerF32(src)
	if err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}

	if o.bufferSize > 0 {
		player.SetBufferSize(o.bufferSize)
	}

	o.logger.Info("audio output opened", "sample_rate", sampleRate, "buffer", o.bufferSize)

	return &Output{player: player, log: o.logger}, nil
}

// Play resumes pulling from the source.
func (o *Output) Play() { o.player.Play() }

// Pause stops pulling from the source.
func (o *Output) Pause() { o.player.Pause() }

// IsPlaying reports whether the player is running.
func (o *Output) IsPlaying() bool { return o.player.IsPlaying() }

// Position returns how much audio the listener has heard.
func (o *Output) Position() time.Duration { return o.player.Position() }

// Close stops and releases the player.
func (o *Output) Close() error {
	o.player.Pause()

	err := o.player.Close()
	if err != nil {
		return fmt.Errorf("device: %w", err)
	}

	o.log.Info("audio output closed")

	return nil
}
