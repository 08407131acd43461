package graph

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-fxchain/dsp/buffer"
	"github.com/cwbudde/algo-fxchain/dsp/conv"
	"github.com/cwbudde/algo-fxchain/dsp/delay"
	"github.com/cwbudde/algo-fxchain/dsp/dynamics"
	"github.com/cwbudde/algo-fxchain/dsp/filter/biquad"
	"github.com/cwbudde/algo-fxchain/dsp/filter/design"
	"github.com/cwbudde/algo-fxchain/dsp/param"
	"github.com/cwbudde/algo-fxchain/dsp/reverb"
)

// maxGain bounds gain params.
const maxGain = math.MaxFloat32

type destination struct{}

func (destination) process(_ quantum, in, out [][]float64) error {
	for ch := range out {
		copy(out[ch], in[ch])
	}

	return nil
}

// GainNode scales its input by the Gain param.
type GainNode struct {
	id     NodeID
	Gain   *param.Param
	values []float64
}

// CreateGain adds a gain node with the given initial gain.
func (c *Context) CreateGain(initial float64) *GainNode {
	g := &GainNode{
		Gain:   param.New(initial, -maxGain, maxGain),
		values: make([]float64, Quantum),
	}
	g.id = c.add(KindGain, g)

	return g
}

// ID returns the node handle.
func (g *GainNode) ID() NodeID { return g.id }

func (g *GainNode) process(q quantum, in, out [][]float64) error {
	if g.Gain.Process(q.time, q.sampleRate, g.values) {
		for ch := range out {
			vecmath.ScaleBlock(out[ch], in[ch], g.values[0])
		}

		return nil
	}

	for ch := range out {
		vecmath.MulBlock(out[ch], in[ch], g.values)
	}

	return nil
}

// BiquadNode is a second-order filter with automatable frequency, Q and
// gain. The shape is fixed at creation.
type BiquadNode struct {
	id        NodeID
	shape     design.Shape
	Frequency *param.Param
	Q         *param.Param
	Gain      *param.Param

	sections []*biquad.Section
	freq     []float64
	q        []float64
	gain     []float64

	designed   bool
	lastFreq   float64
	lastQ      float64
	lastGain   float64
	sampleRate float64
}

// CreateBiquad adds a filter node.
func (c *Context) CreateBiquad(shape design.Shape, freq, q, gainDB float64) *BiquadNode {
	nyquist := c.sampleRate / 2

	b := &BiquadNode{
		shape:      shape,
		Frequency:  param.New(freq, 10, nyquist*0.999),
		Q:          param.New(q, 0.0001, 1000),
		Gain:       param.New(gainDB, -40, 40),
		sections:   make([]*biquad.Section, c.channels),
		freq:       make([]float64, Quantum),
		q:          make([]float64, Quantum),
		gain:       make([]float64, Quantum),
		sampleRate: c.sampleRate,
	}

	for ch := range b.sections {
		b.sections[ch] = biquad.NewSection(biquad.Identity())
	}

	b.id = c.add(KindBiquad, b)

	return b
}

// ID returns the node handle.
func (b *BiquadNode) ID() NodeID { return b.id }

// Shape returns the filter shape.
func (b *BiquadNode) Shape() design.Shape { return b.shape }

// Coefficients returns the coefficients in use after the last quantum.
func (b *BiquadNode) Coefficients() biquad.Coefficients {
	if !b.designed {
		return design.Design(b.shape, b.Frequency.Value(), b.Gain.Value(), b.Q.Value(), b.sampleRate)
	}

	return b.sections[0].Coefficients
}

func (b *BiquadNode) setCoefficients(freq, q, gain float64) {
	if b.designed && freq == b.lastFreq && q == b.lastQ && gain == b.lastGain {
		return
	}

	coeffs := design.Design(b.shape, freq, gain, q, b.sampleRate)
	for _, s := range b.sections {
		s.Coefficients = coeffs
	}

	b.designed = true
	b.lastFreq, b.lastQ, b.lastGain = freq, q, gain
}

func (b *BiquadNode) process(q quantum, in, out [][]float64) error {
	cf := b.Frequency.Process(q.time, q.sampleRate, b.freq)
	cq := b.Q.Process(q.time, q.sampleRate, b.q)
	cg := b.Gain.Process(q.time, q.sampleRate, b.gain)

	if cf && cq && cg {
		b.setCoefficients(b.freq[0], b.q[0], b.gain[0])

		for ch, s := range b.sections {
			s.ProcessBlockTo(out[ch], in[ch])
		}

		return nil
	}

	for i := range Quantum {
		b.setCoefficients(b.freq[i], b.q[i], b.gain[i])

		for ch, s := range b.sections {
			out[ch][i] = s.ProcessSample(in[ch][i])
		}
	}

	return nil
}

// CompressorNode is a stereo-linked dynamics compressor. Its params are
// evaluated once per quantum.
type CompressorNode struct {
	id        NodeID
	Threshold *param.Param
	Knee      *param.Param
	Ratio     *param.Param
	Attack    *param.Param
	Release   *param.Param

	comp    *dynamics.Compressor
	scratch []float64
}

// CreateCompressor adds a compressor node with the usual defaults:
// threshold -24 dB, knee 30 dB, ratio 12, attack 3 ms, release 250 ms.
func (c *Context) CreateCompressor() (*CompressorNode, error) {
	comp, err := dynamics.New(c.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}

	n := &CompressorNode{
		Threshold: param.New(-24, -100, 0),
		Knee:      param.New(30, 0, 40),
		Ratio:     param.New(12, 1, 20),
		Attack:    param.New(0.003, 0, 1),
		Release:   param.New(0.25, 0.001, 1),
		comp:      comp,
		scratch:   make([]float64, Quantum),
	}
	n.id = c.add(KindCompressor, n)

	return n, nil
}

// ID returns the node handle.
func (n *CompressorNode) ID() NodeID { return n.id }

// Reduction returns the current gain reduction in dB (<= 0).
func (n *CompressorNode) Reduction() float64 {
	return n.comp.Metrics().GainReductionDB
}

func (n *CompressorNode) krate(p *param.Param, q quantum) float64 {
	p.Process(q.time, q.sampleRate, n.scratch)

	return n.scratch[0]
}

func (n *CompressorNode) process(q quantum, in, out [][]float64) error {
	threshold := n.krate(n.Threshold, q)
	knee := n.krate(n.Knee, q)
	ratio := n.krate(n.Ratio, q)
	attack := n.krate(n.Attack, q)
	release := n.krate(n.Release, q)

	// Params are range-clamped, so the setters cannot fail.
	if threshold != n.comp.Threshold() {
		_ = n.comp.SetThreshold(threshold)
	}

	if knee != n.comp.Knee() {
		_ = n.comp.SetKnee(knee)
	}

	if ratio != n.comp.Ratio() {
		_ = n.comp.SetRatio(ratio)
	}

	if attack != n.comp.Attack() {
		_ = n.comp.SetAttack(attack)
	}

	if release != n.comp.Release() {
		_ = n.comp.SetRelease(release)
	}

	for ch := range out {
		copy(out[ch], in[ch])
	}

	n.comp.ProcessBlock(out, Quantum)

	return nil
}

// DelayNode delays its input by the DelayTime param (seconds). The
// effective delay never drops below one quantum so the node can close a
// feedback loop.
type DelayNode struct {
	id        NodeID
	DelayTime *param.Param

	lines  []*delay.Line
	values []float64
}

// CreateDelay adds a delay node able to hold maxSeconds.
func (c *Context) CreateDelay(maxSeconds float64) (*DelayNode, error) {
	if maxSeconds <= 0 || maxSeconds > 180 || math.IsNaN(maxSeconds) {
		return nil, fmt.Errorf("%w: max delay %v s", ErrInvalidNodeArgument, maxSeconds)
	}

	d := &DelayNode{
		DelayTime: param.New(0, 0, maxSeconds),
		lines:     make([]*delay.Line, c.channels),
		values:    make([]float64, Quantum),
	}

	for ch := range d.lines {
		line, err := delay.NewForDuration(maxSeconds+float64(2*Quantum)/c.sampleRate, c.sampleRate)
		if err != nil {
			return nil, fmt.Errorf("graph: %w", err)
		}

		d.lines[ch] = line
	}

	d.id = c.add(KindDelay, d)

	return d, nil
}

// ID returns the node handle.
func (d *DelayNode) ID() NodeID { return d.id }

func (d *DelayNode) process(q quantum, in, out [][]float64) error {
	err := d.pull(q, out)
	if err != nil {
		return err
	}

	d.push(q, in)

	return nil
}

func (d *DelayNode) pull(q quantum, out [][]float64) error {
	d.DelayTime.Process(q.time, q.sampleRate, d.values)

	for i := range Quantum {
		frames := math.Max(d.values[i]*q.sampleRate, Quantum)

		// Samples of this quantum are not written yet; sample i sits i
		// frames closer to the newest written sample.
		rel := frames - float64(i)
		for ch, line := range d.lines {
			out[ch][i] = line.ReadFractional(rel)
		}
	}

	return nil
}

func (d *DelayNode) push(_ quantum, in [][]float64) {
	for ch, line := range d.lines {
		for _, x := range in[ch] {
			line.Write(x)
		}
	}
}

// ConvolverNode convolves each channel with the matching channel of an
// impulse response.
type ConvolverNode struct {
	id         NodeID
	channels   int
	sampleRate float64

	ir     *buffer.Buffer
	scale  float64
	convs  []*conv.Partitioned
	silent bool
}

// CreateConvolver adds a convolver without an impulse response; it
// outputs silence until SetBuffer is called.
func (c *Context) CreateConvolver() *ConvolverNode {
	n := &ConvolverNode{channels: c.channels, sampleRate: c.sampleRate, silent: true}
	n.id = c.add(KindConvolver, n)

	return n
}

// ID returns the node handle.
func (n *ConvolverNode) ID() NodeID { return n.id }

// Buffer returns the impulse response in use.
func (n *ConvolverNode) Buffer() *buffer.Buffer { return n.ir }

// SetBuffer installs an impulse response. With normalize set, the response
// is scaled by reverb.NormalizationScale. Input history is discarded.
// A nil buffer silences the node.
func (n *ConvolverNode) SetBuffer(ir *buffer.Buffer, normalize bool) error {
	if ir == nil {
		n.ir, n.convs, n.silent = nil, nil, true

		return nil
	}

	if ir.SampleRate() != n.sampleRate {
		return fmt.Errorf("%w: impulse %v Hz, context %v Hz", ErrSampleRateMismatch, ir.SampleRate(), n.sampleRate)
	}

	if ir.Len() == 0 {
		return fmt.Errorf("%w: empty impulse response", ErrInvalidNodeArgument)
	}

	scale := 1.0
	if normalize {
		scale = reverb.NormalizationScale(ir)
	}

	convs := make([]*conv.Partitioned, n.channels)
	kernel := make([]float64, ir.Len())

	for ch := range convs {
		vecmath.ScaleBlock(kernel, ir.Channel(ch%ir.NumChannels()), scale)

		p, err := conv.NewPartitioned(kernel, Quantum)
		if err != nil {
			return fmt.Errorf("graph: convolver: %w", err)
		}

		convs[ch] = p
	}

	n.ir, n.scale, n.convs, n.silent = ir, scale, convs, false

	return nil
}

func (n *ConvolverNode) process(_ quantum, in, out [][]float64) error {
	if n.silent {
		for ch := range out {
			clear(out[ch])
		}

		return nil
	}

	for ch, p := range n.convs {
		err := p.ProcessBlock(in[ch], out[ch])
		if err != nil {
			return err
		}
	}

	return nil
}
