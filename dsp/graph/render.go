package graph

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
)

// renderQuantum advances the graph by one quantum. The destination's
// output block holds the result.
func (c *Context) renderQuantum() error {
	q := quantum{
		frame:      c.frame,
		time:       c.CurrentTime(),
		sampleRate: c.sampleRate,
	}

	for _, id := range c.order {
		n := c.nodes[id]
		if d, ok := n.proc.(delayed); ok {
			err := d.pull(q, n.out)
			if err != nil {
				return fmt.Errorf("graph: %s node %d: %w", n.kind, n.id, err)
			}
		}
	}

	for _, id := range c.order {
		n := c.nodes[id]
		if _, ok := n.proc.(delayed); ok {
			continue
		}

		c.mixInputs(n)

		err := n.proc.process(q, n.in, n.out)
		if err != nil {
			return fmt.Errorf("graph: %s node %d: %w", n.kind, n.id, err)
		}
	}

	for _, id := range c.order {
		n := c.nodes[id]
		if d, ok := n.proc.(delayed); ok {
			c.mixInputs(n)
			d.push(q, n.in)
		}
	}

	c.frame += Quantum

	return nil
}

// mixInputs sums the outputs of every input of n into n.in.
func (c *Context) mixInputs(n *node) {
	for ch := range n.in {
		clear(n.in[ch])
	}

	for _, from := range n.inputs {
		src := c.nodes[from]
		for ch := range n.in {
			vecmath.AddBlockInPlace(n.in[ch], src.out[ch])
		}
	}
}

// Process renders len(out[0]) frames of a live context into out, one
// slice per channel. Frames of a partially consumed quantum are kept for
// the next call, so block sizes need not be multiples of Quantum.
func (c *Context) Process(out [][]float64) error {
	if c.closed {
		return ErrClosed
	}

	if c.offline {
		return fmt.Errorf("%w: offline contexts render with StartRendering", ErrInvalidConfig)
	}

	if len(out) != c.channels {
		return fmt.Errorf("%w: got %d, want %d", ErrChannelMismatch, len(out), c.channels)
	}

	frames := len(out[0])
	written := 0

	for written < frames {
		if c.pending == 0 {
			err := c.renderQuantum()
			if err != nil {
				return err
			}

			dest := c.nodes[Destination]
			for ch := range c.hold {
				copy(c.hold[ch], dest.out[ch])
			}

			c.pending = Quantum
		}

		take := min(c.pending, frames-written)
		offset := Quantum - c.pending

		for ch := range out {
			copy(out[ch][written:written+take], c.hold[ch][offset:offset+take])
		}

		written += take
		c.pending -= take
	}

	return nil
}

// StartRendering renders an offline context to completion and returns
// Length frames. It can be called once. ctx is checked between quanta.
func (c *Context) StartRendering(ctx context.Context) (*buffer.Buffer, error) {
	if c.closed {
		return nil, ErrClosed
	}

	if !c.offline {
		return nil, ErrNotOffline
	}

	if c.rendered {
		return nil, ErrAlreadyRendered
	}

	c.rendered = true

	result, err := buffer.New(c.channels, c.length, c.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}

	dest := c.nodes[Destination]

	for pos := 0; pos < c.length; pos += Quantum {
		err := ctx.Err()
		if err != nil {
			return nil, fmt.Errorf("graph: render interrupted at frame %d: %w", pos, err)
		}

		err = c.renderQuantum()
		if err != nil {
			return nil, err
		}

		n := min(Quantum, c.length-pos)
		for ch := range c.channels {
			copy(result.Channel(ch)[pos:pos+n], dest.out[ch][:n])
		}
	}

	return result, nil
}
