// Package testutil builds deterministic audio fixtures for tests.
package testutil

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
)

// Sine describes the tone written to one channel.
type Sine struct {
	Freq  float64
	Amp   float64
	Phase float64
}

// Tone returns a buffer with one channel per sine.
func Tone(t testing.TB, rate float64, frames int, sines ...Sine) *buffer.Buffer {
	t.Helper()

	buf := newBuffer(t, len(sines), frames, rate)

	for c, s := range sines {
		ch := buf.Channel(c)
		step := 2 * math.Pi * s.Freq / rate

		for i := range ch {
			ch[i] = s.Amp * math.Sin(step*float64(i)+s.Phase)
		}
	}

	return buf
}

// Constant returns a buffer with every sample set to value.
func Constant(t testing.TB, rate float64, channels, frames int, value float64) *buffer.Buffer {
	t.Helper()

	buf := newBuffer(t, channels, frames, rate)

	for _, ch := range buf.Channels() {
		for i := range ch {
			ch[i] = value
		}
	}

	return buf
}

// Impulse returns a buffer with a unit sample at pos on every channel.
func Impulse(t testing.TB, rate float64, channels, frames, pos int) *buffer.Buffer {
	t.Helper()

	buf := newBuffer(t, channels, frames, rate)

	if pos >= 0 && pos < frames {
		for _, ch := range buf.Channels() {
			ch[pos] = 1
		}
	}

	return buf
}

// Noise returns seeded white noise in [-amp, amp].
func Noise(t testing.TB, seed int64, rate float64, channels, frames int, amp float64) *buffer.Buffer {
	t.Helper()

	buf := newBuffer(t, channels, frames, rate)
	rng := rand.New(rand.NewSource(seed))

	for _, ch := range buf.Channels() {
		for i := range ch {
			ch[i] = (rng.Float64()*2 - 1) * amp
		}
	}

	return buf
}

func newBuffer(t testing.TB, channels, frames int, rate float64) *buffer.Buffer {
	t.Helper()

	buf, err := buffer.New(channels, frames, rate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return buf
}
