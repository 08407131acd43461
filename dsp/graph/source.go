package graph

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
)

// SourceNode plays a buffer once. A source can be started a single time;
// playing again needs a new node. When the buffer rate differs from the
// context rate the buffer is resampled linearly.
type SourceNode struct {
	id  NodeID
	buf *buffer.Buffer

	step float64

	started   bool
	startTime float64
	stopTime  float64
	pos       float64
	ended     bool
}

// CreateBufferSource adds a source node playing buf.
func (c *Context) CreateBufferSource(buf *buffer.Buffer) (*SourceNode, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: nil buffer", ErrInvalidNodeArgument)
	}

	s := &SourceNode{
		buf:      buf,
		step:     buf.SampleRate() / c.sampleRate,
		stopTime: math.Inf(1),
	}
	s.id = c.add(KindSource, s)

	return s, nil
}

// ID returns the node handle.
func (s *SourceNode) ID() NodeID { return s.id }

// Buffer returns the buffer being played.
func (s *SourceNode) Buffer() *buffer.Buffer { return s.buf }

// Start schedules playback at context time when, beginning offset seconds
// into the buffer. Offsets outside the buffer are clamped.
func (s *SourceNode) Start(when, offset float64) error {
	if s.started {
		return ErrSourceStarted
	}

	if math.IsNaN(when) || math.IsNaN(offset) {
		return fmt.Errorf("%w: start(%v, %v)", ErrInvalidNodeArgument, when, offset)
	}

	offset = math.Max(0, math.Min(offset, s.buf.Duration()))

	s.started = true
	s.startTime = math.Max(0, when)
	s.pos = offset * s.buf.SampleRate()

	return nil
}

// Stop schedules the end of playback at context time when.
func (s *SourceNode) Stop(when float64) error {
	if !s.started {
		return ErrSourceNotStarted
	}

	s.stopTime = math.Max(s.startTime, when)

	return nil
}

// Started reports whether Start has been called.
func (s *SourceNode) Started() bool { return s.started }

// Ended reports whether playback reached the end of the buffer or the
// scheduled stop time.
func (s *SourceNode) Ended() bool { return s.ended }

// Position returns the playhead in seconds of buffer time.
func (s *SourceNode) Position() float64 {
	return s.pos / s.buf.SampleRate()
}

func (s *SourceNode) process(q quantum, _, out [][]float64) error {
	for ch := range out {
		clear(out[ch])
	}

	if !s.started || s.ended {
		return nil
	}

	frames := s.buf.Len()
	bufChannels := s.buf.NumChannels()

	for i := range Quantum {
		t := q.time + float64(i)/q.sampleRate
		if t < s.startTime {
			continue
		}

		if t >= s.stopTime || s.pos >= float64(frames) {
			s.ended = true

			return nil
		}

		idx := int(s.pos)
		frac := s.pos - float64(idx)

		for ch := range out {
			src := s.buf.Channel(ch % bufChannels)
			if ch >= bufChannels && bufChannels != 1 {
				// Missing channels of a multi-channel buffer stay silent.
				continue
			}

			v := src[idx]
			if frac > 0 && idx+1 < frames {
				v += (src[idx+1] - v) * frac
			}

			out[ch][i] = v
		}

		s.pos += s.step
	}

	if s.pos >= float64(frames) {
		s.ended = true
	}

	return nil
}
