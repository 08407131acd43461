// Package graph implements an explicit audio processing graph.
//
// A Context is an arena that owns every node created against it. Nodes are
// addressed by NodeID handles; connections are directed edges between
// handles. Rendering happens in fixed quanta of Quantum frames: every node
// sums the outputs of its inputs and processes them once per quantum, in
// topological order. Delay nodes break feedback cycles: their output for a
// quantum is read from history before any node runs and their input is
// written after every node has run.
//
// A Context is either live (pulled block by block by an audio device via
// Process) or offline (rendered to completion by StartRendering). Contexts
// are not safe for concurrent use.
package graph

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-fxchain/dsp/core"
)

// Quantum is the number of frames rendered per processing step.
const Quantum = 128

// NodeID is a handle to a node inside one Context.
type NodeID int

// Destination is the handle of the context's destination node.
const Destination NodeID = 0

// Kind identifies a node type.
type Kind int

const (
	KindDestination Kind = iota
	KindGain
	KindBiquad
	KindCompressor
	KindDelay
	KindConvolver
	KindSource
)

func (k Kind) String() string {
	switch k {
	case KindDestination:
		return "destination"
	case KindGain:
		return "gain"
	case KindBiquad:
		return "biquad"
	case KindCompressor:
		return "compressor"
	case KindDelay:
		return "delay"
	case KindConvolver:
		return "convolver"
	case KindSource:
		return "source"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Errors returned by graph operations.
var (
	ErrUnknownNode         = errors.New("graph: unknown node")
	ErrInvalidConnection   = errors.New("graph: invalid connection")
	ErrCycle               = errors.New("graph: cycle without delay")
	ErrClosed              = errors.New("graph: context closed")
	ErrInvalidConfig       = errors.New("graph: invalid configuration")
	ErrChannelMismatch     = errors.New("graph: channel count mismatch")
	ErrNotOffline          = errors.New("graph: not an offline context")
	ErrAlreadyRendered     = errors.New("graph: offline context already rendered")
	ErrSourceStarted       = errors.New("graph: source already started")
	ErrSourceNotStarted    = errors.New("graph: source not started")
	ErrSampleRateMismatch  = errors.New("graph: sample rate mismatch")
	ErrInvalidNodeArgument = errors.New("graph: invalid node argument")
)

// quantum describes the block being rendered.
type quantum struct {
	frame      int64
	time       float64
	sampleRate float64
}

// processor renders one quantum from the summed input into out.
type processor interface {
	process(q quantum, in, out [][]float64) error
}

// delayed is implemented by processors whose output for a quantum does
// not depend on the same quantum's input.
type delayed interface {
	processor
	pull(q quantum, out [][]float64) error
	push(q quantum, in [][]float64)
}

type node struct {
	id      NodeID
	kind    Kind
	proc    processor
	inputs  []NodeID
	outputs []NodeID
	in, out [][]float64
}

// Context owns a set of nodes and renders them.
type Context struct {
	sampleRate float64
	channels   int
	offline    bool
	length     int

	nodes []*node
	order []NodeID

	frame    int64
	rendered bool
	closed   bool

	// live pull state
	hold    [][]float64
	pending int
}

// NewLive returns a context that is rendered incrementally with Process.
func NewLive(channels int, sampleRate float64) (*Context, error) {
	return newContext(channels, sampleRate, false, 0)
}

// NewOffline returns a context that renders length frames with
// StartRendering.
func NewOffline(channels, length int, sampleRate float64) (*Context, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidConfig, length)
	}

	return newContext(channels, sampleRate, true, length)
}

func newContext(channels int, sampleRate float64, offline bool, length int) (*Context, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidConfig, channels)
	}

	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidConfig, sampleRate)
	}

	c := &Context{
		sampleRate: sampleRate,
		channels:   channels,
		offline:    offline,
		length:     length,
		hold:       makeBlock(channels),
	}

	c.add(KindDestination, destination{})

	return c, nil
}

func makeBlock(channels int) [][]float64 {
	block := make([][]float64, channels)
	for i := range block {
		block[i] = make([]float64, Quantum)
	}

	return block
}

// SampleRate returns the rendering rate in Hz.
func (c *Context) SampleRate() float64 { return c.sampleRate }

// Channels returns the channel count of every node output.
func (c *Context) Channels() int { return c.channels }

// Offline reports whether the context renders offline.
func (c *Context) Offline() bool { return c.offline }

// Length returns the number of frames an offline context renders.
func (c *Context) Length() int { return c.length }

// CurrentTime returns the context clock in seconds: the start time of the
// next quantum to render.
func (c *Context) CurrentTime() float64 {
	return core.FramesToSeconds(int(c.frame), c.sampleRate)
}

// Started reports whether at least one quantum has been rendered.
func (c *Context) Started() bool {
	return c.frame > 0
}

// Len returns the number of live nodes, including the destination.
func (c *Context) Len() int {
	n := 0
	for _, nd := range c.nodes {
		if nd != nil {
			n++
		}
	}

	return n
}

func (c *Context) add(kind Kind, proc processor) NodeID {
	id := NodeID(len(c.nodes))
	c.nodes = append(c.nodes, &node{
		id:   id,
		kind: kind,
		proc: proc,
		in:   makeBlock(c.channels),
		out:  makeBlock(c.channels),
	})
	c.order = append(c.order, id)

	return id
}

func (c *Context) lookup(id NodeID) (*node, error) {
	if c.closed {
		return nil, ErrClosed
	}

	if id < 0 || int(id) >= len(c.nodes) || c.nodes[id] == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}

	return c.nodes[id], nil
}

// Kind returns the kind of node id.
func (c *Context) Kind(id NodeID) (Kind, error) {
	n, err := c.lookup(id)
	if err != nil {
		return 0, err
	}

	return n.kind, nil
}

// Connect adds the edge from → to. Connecting an existing edge again is a
// no-op. Edges that would close a cycle without passing through a delay
// node are rejected with ErrCycle.
func (c *Context) Connect(from, to NodeID) error {
	src, err := c.lookup(from)
	if err != nil {
		return err
	}

	dst, err := c.lookup(to)
	if err != nil {
		return err
	}

	if src.kind == KindDestination || dst.kind == KindSource {
		return fmt.Errorf("%w: %s %d → %s %d", ErrInvalidConnection, src.kind, from, dst.kind, to)
	}

	for _, id := range src.outputs {
		if id == to {
			return nil
		}
	}

	src.outputs = append(src.outputs, to)
	dst.inputs = append(dst.inputs, from)

	order, ok := c.sort()
	if !ok {
		src.outputs = src.outputs[:len(src.outputs)-1]
		dst.inputs = dst.inputs[:len(dst.inputs)-1]

		return fmt.Errorf("%w: %d → %d", ErrCycle, from, to)
	}

	c.order = order

	return nil
}

// Disconnect removes every outgoing edge of id.
func (c *Context) Disconnect(id NodeID) error {
	n, err := c.lookup(id)
	if err != nil {
		return err
	}

	for _, to := range n.outputs {
		c.dropInput(to, id)
	}

	n.outputs = n.outputs[:0]

	return nil
}

// DisconnectFrom removes the edge from → to if present.
func (c *Context) DisconnectFrom(from, to NodeID) error {
	src, err := c.lookup(from)
	if err != nil {
		return err
	}

	if _, err := c.lookup(to); err != nil {
		return err
	}

	for i, id := range src.outputs {
		if id == to {
			src.outputs = append(src.outputs[:i], src.outputs[i+1:]...)
			c.dropInput(to, from)

			break
		}
	}

	return nil
}

func (c *Context) dropInput(to, from NodeID) {
	dst := c.nodes[to]
	if dst == nil {
		return
	}

	for i, id := range dst.inputs {
		if id == from {
			dst.inputs = append(dst.inputs[:i], dst.inputs[i+1:]...)

			return
		}
	}
}

// Remove disconnects node id and frees its slot. Handles are never reused.
// The destination cannot be removed.
func (c *Context) Remove(id NodeID) error {
	n, err := c.lookup(id)
	if err != nil {
		return err
	}

	if n.kind == KindDestination {
		return fmt.Errorf("%w: destination cannot be removed", ErrInvalidConnection)
	}

	for _, to := range n.outputs {
		c.dropInput(to, id)
	}

	for _, from := range n.inputs {
		src := c.nodes[from]
		if src == nil {
			continue
		}

		for i, out := range src.outputs {
			if out == id {
				src.outputs = append(src.outputs[:i], src.outputs[i+1:]...)

				break
			}
		}
	}

	c.nodes[id] = nil

	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)

			break
		}
	}

	return nil
}

// Outputs returns a copy of the outgoing edges of id.
func (c *Context) Outputs(id NodeID) ([]NodeID, error) {
	n, err := c.lookup(id)
	if err != nil {
		return nil, err
	}

	return append([]NodeID(nil), n.outputs...), nil
}

// Inputs returns a copy of the incoming edges of id, in connection order.
func (c *Context) Inputs(id NodeID) ([]NodeID, error) {
	n, err := c.lookup(id)
	if err != nil {
		return nil, err
	}

	return append([]NodeID(nil), n.inputs...), nil
}

// Close releases every node. The context cannot be used afterwards.
func (c *Context) Close() {
	c.nodes = nil
	c.order = nil
	c.hold = nil
	c.closed = true
}

// sort returns a processing order using Kahn's algorithm. Edges into
// delay nodes are ignored, so cycles through a delay are allowed. Ties are
// broken by handle so the order is deterministic.
func (c *Context) sort() ([]NodeID, bool) {
	indegree := make([]int, len(c.nodes))
	live := 0

	for _, n := range c.nodes {
		if n == nil {
			continue
		}

		live++

		if _, ok := n.proc.(delayed); ok {
			continue
		}

		indegree[n.id] = len(n.inputs)
	}

	queue := make([]NodeID, 0, live)

	for _, n := range c.nodes {
		if n != nil && indegree[n.id] == 0 {
			queue = append(queue, n.id)
		}
	}

	order := make([]NodeID, 0, live)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		order = append(order, id)

		for _, to := range c.nodes[id].outputs {
			if _, ok := c.nodes[to].proc.(delayed); ok {
				continue
			}

			indegree[to]--
			if indegree[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	return order, len(order) == live
}
