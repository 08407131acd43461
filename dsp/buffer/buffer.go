package buffer

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidShape is returned for non-positive channel counts, negative
	// lengths or channels of unequal length.
	ErrInvalidShape = errors.New("buffer: invalid shape")
	// ErrInvalidSampleRate is returned for a non-positive or non-finite rate.
	ErrInvalidSampleRate = errors.New("buffer: invalid sample rate")
)

// Buffer holds planar float samples, one slice per channel, all of the
// same length.
type Buffer struct {
	sampleRate float64
	channels   [][]float64
}

// New returns a zero-filled buffer.
func New(channels, frames int, sampleRate float64) (*Buffer, error) {
	if channels <= 0 || frames < 0 {
		return nil, fmt.Errorf("%w: %d channels, %d frames", ErrInvalidShape, channels, frames)
	}

	err := checkRate(sampleRate)
	if err != nil {
		return nil, err
	}

	data := make([][]float64, channels)
	for i := range data {
		data[i] = make([]float64, frames)
	}

	return &Buffer{sampleRate: sampleRate, channels: data}, nil
}

// FromChannels wraps existing channel slices without copying.
// Mutations to the slices are visible through the Buffer and vice versa.
func FromChannels(sampleRate float64, channels ...[]float64) (*Buffer, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidShape)
	}

	err := checkRate(sampleRate)
	if err != nil {
		return nil, err
	}

	frames := len(channels[0])
	for i, ch := range channels {
		if len(ch) != frames {
			return nil, fmt.Errorf("%w: channel %d has %d frames, want %d", ErrInvalidShape, i, len(ch), frames)
		}
	}

	return &Buffer{sampleRate: sampleRate, channels: channels}, nil
}

func checkRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, sampleRate)
	}

	return nil
}

// SampleRate returns the rate in Hz.
func (b *Buffer) SampleRate() float64 {
	return b.sampleRate
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int {
	return len(b.channels)
}

// Len returns the number of frames per channel.
func (b *Buffer) Len() int {
	if len(b.channels) == 0 {
		return 0
	}

	return len(b.channels[0])
}

// Duration returns the length in seconds.
func (b *Buffer) Duration() float64 {
	return float64(b.Len()) / b.sampleRate
}

// Channel returns channel i. The slice aliases the buffer.
func (b *Buffer) Channel(i int) []float64 {
	return b.channels[i]
}

// Channels returns all channel slices. They alias the buffer.
func (b *Buffer) Channels() [][]float64 {
	return b.channels
}
