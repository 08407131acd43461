// Package delay provides the circular delay line behind the delay node.
package delay

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSize is returned for non-positive line sizes.
var ErrInvalidSize = errors.New("delay: invalid size")

// Line is a circular delay line. A delay of 1 reads the most recently
// written sample.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line holding size samples.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	return &Line{buffer: make([]float64, size)}, nil
}

// NewForDuration returns a line long enough for maxSeconds of fractional
// delay at sampleRate.
func NewForDuration(maxSeconds, sampleRate float64) (*Line, error) {
	if maxSeconds <= 0 || sampleRate <= 0 || math.IsNaN(maxSeconds*sampleRate) || math.IsInf(maxSeconds*sampleRate, 0) {
		return nil, fmt.Errorf("%w: %v s at %v Hz", ErrInvalidSize, maxSeconds, sampleRate)
	}

	// Hermite reads need two samples beyond the longest delay.
	return New(int(math.Ceil(maxSeconds*sampleRate)) + 4)
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// MaxDelay returns the longest fractional delay in samples that can be read.
func (d *Line) MaxDelay() float64 {
	return float64(len(d.buffer) - 3)
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample

	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	readPos := ((d.writePos-delay)%size + size) % size

	return d.buffer[readPos]
}

// ReadFractional reads delay samples back with cubic Hermite
// interpolation. The delay is clamped to [1, MaxDelay].
func (d *Line) ReadFractional(delay float64) float64 {
	if delay < 1 || math.IsNaN(delay) {
		delay = 1
	}

	if maxDelay := d.MaxDelay(); delay > maxDelay {
		delay = maxDelay
	}

	p := int(delay)
	t := delay - float64(p)

	if t == 0 {
		return d.Read(p)
	}

	xm1 := d.Read(max(1, p-1))
	x0 := d.Read(p)
	x1 := d.Read(p + 1)
	x2 := d.Read(p + 2)

	return hermite4(t, xm1, x0, x1, x2)
}

// Reset clears line state.
func (d *Line) Reset() {
	clear(d.buffer)
	d.writePos = 0
}

func hermite4(t, xm1, x0, x1, x2 float64) float64 {
	c0 := x0
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)

	return ((c3*t+c2)*t+c1)*t + c0
}
