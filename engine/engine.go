// Package engine drives an effect chain: it owns the live processing
// context, the transport state machine and the offline renderer, and keeps
// both graphs in step with one chain model.
package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cwbudde/algo-fxchain/codec"
	"github.com/cwbudde/algo-fxchain/config"
	"github.com/cwbudde/algo-fxchain/dsp/analysis"
	"github.com/cwbudde/algo-fxchain/dsp/buffer"
	"github.com/cwbudde/algo-fxchain/dsp/effectchain"
	"github.com/cwbudde/algo-fxchain/dsp/graph"
	"github.com/cwbudde/algo-fxchain/dsp/reverb"
	"github.com/cwbudde/algo-fxchain/prefs"
)

var (
	// ErrNoBuffer is returned by transport and render operations before a
	// buffer is loaded or after a failed load.
	ErrNoBuffer = errors.New("engine: no buffer loaded")
	// ErrRenderFailure wraps offline render errors.
	ErrRenderFailure = errors.New("engine: render failure")
)

// State is the transport state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type options struct {
	logger  *slog.Logger
	store   prefs.Store
	catalog *effectchain.Catalog
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStore sets the preference store the chain order is persisted in.
// The default keeps preferences in memory.
func WithStore(s prefs.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithCatalog replaces the default effect catalog.
func WithCatalog(c *effectchain.Catalog) Option {
	return func(o *options) {
		if c != nil {
			o.catalog = c
		}
	}
}

// WithClock sets the time source used for meter peak hold.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Engine is the host-facing effect chain. All methods are safe for
// concurrent use; they are serialized by one mutex, including Read.
type Engine struct {
	mu sync.Mutex

	cfg   config.Config
	log   *slog.Logger
	store prefs.Store
	now   func() time.Time

	chain   *effectchain.Chain
	builder *effectchain.Builder
	syncer  *effectchain.Syncer

	ctx    *graph.Context
	units  effectchain.Units
	input  *graph.GainNode
	master *graph.GainNode

	analyser *analysis.Analyser
	meter    *analysis.Meter
	scratch  []float64

	buf    *buffer.Buffer
	source *graph.SourceNode
	state  State
	offset float64

	block [][]float64
}

// New returns an engine for cfg. The chain order is restored from the
// preference store; a missing or corrupt value falls back to the catalog
// order.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	o := options{
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.store == nil {
		o.store = prefs.NewMemoryStore()
	}

	if o.catalog == nil {
		o.catalog = effectchain.DefaultCatalog()
	}

	e := &Engine{
		cfg:   cfg,
		log:   o.logger,
		store: o.store,
		now:   o.now,
		builder: effectchain.NewBuilder(o.catalog,
			effectchain.WithImpulses(reverb.NewCache(uint64(cfg.Reverb.Seed))),
			effectchain.WithInitialDecay(cfg.Reverb.InitialDecay),
		),
		syncer: effectchain.NewSyncer(effectchain.Smoothing{
			Bypass:    cfg.Smoothing.Bypass,
			Gain:      cfg.Smoothing.Gain,
			DelayTime: cfg.Smoothing.DelayTime,
		}),
		meter: analysis.NewMeter(analysis.WithFloorDB(cfg.Meter.FloorDB)),
	}

	e.chain = effectchain.NewChain(o.catalog, e.restoreOrder(o.catalog))

	e.analyser, err = analysis.NewAnalyser(cfg.Analyser.FFTSize, cfg.Analyser.Smoothing)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.scratch = make([]float64, cfg.Analyser.FFTSize)

	e.ctx, err = graph.NewLive(cfg.Channels, float64(cfg.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.units, err = e.builder.BuildAll(e.ctx)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.input = e.ctx.CreateGain(1)
	e.master = e.ctx.CreateGain(1)

	err = e.ctx.Connect(e.master.ID(), graph.Destination)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	err = e.wire()
	if err != nil {
		return nil, err
	}

	err = e.syncer.ApplyAll(e.ctx, e.chain, e.units)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.log.Info("engine ready",
		"sample_rate", cfg.SampleRate, "channels", cfg.Channels, "order", e.chain.Order())

	return e, nil
}

func (e *Engine) restoreOrder(catalog *effectchain.Catalog) []string {
	raw, err := e.store.Get(effectchain.OrderKey)
	if errors.Is(err, prefs.ErrNotFound) {
		return catalog.IDs()
	}

	if err != nil {
		e.log.Warn("chain order unavailable, using catalog order", "err", err)

		return catalog.IDs()
	}

	order, err := effectchain.ParseOrder([]byte(raw))
	if err != nil {
		e.log.Warn("persisted chain order corrupt, using catalog order", "err", err)

		return catalog.IDs()
	}

	return order
}

func (e *Engine) persistOrder() {
	data, err := effectchain.MarshalOrder(e.chain.Order())
	if err == nil {
		err = e.store.Set(effectchain.OrderKey, string(data))
	}

	if err != nil {
		e.log.Warn("persist chain order", "err", err)
	}
}

func (e *Engine) wire() error {
	err := effectchain.Wire(e.ctx, e.input.ID(), e.master.ID(), e.chain.Order(), e.units)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	return nil
}

// Config returns the settings the engine was built with.
func (e *Engine) Config() config.Config { return e.cfg }

// Close stops playback and releases the live context.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.releaseSource()
	e.state = Stopped
	e.ctx.Close()
}

// LoadBuffer replaces the loaded audio and stops the transport. A nil
// buffer unloads.
func (e *Engine) LoadBuffer(buf *buffer.Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.load(buf)
}

// LoadFile decodes a WAV or MP3 file and loads it. On failure the loaded
// buffer is cleared and the error wraps codec.ErrDecodeFailure.
func (e *Engine) LoadFile(path string) error {
	buf, err := codec.DecodeFile(path)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.load(nil)
		e.log.Error("decode failed", "path", path, "err", err)

		return err
	}

	e.load(buf)

	return nil
}

func (e *Engine) load(buf *buffer.Buffer) {
	e.releaseSource()
	e.buf = buf
	e.offset = 0
	e.state = Stopped
	e.analyser.Reset()
	e.meter.Reset()

	if buf == nil {
		e.log.Info("buffer unloaded")

		return
	}

	e.log.Info("buffer loaded",
		"channels", buf.NumChannels(), "frames", buf.Len(),
		"sample_rate", buf.SampleRate(), "duration", buf.Duration())
}

// SetParameter validates and stores a parameter value, then pushes it onto
// the live graph with smoothing.
func (e *Engine) SetParameter(effectID, paramID string, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.chain.SetParameter(effectID, paramID, value)
	if err != nil {
		return err
	}

	return e.syncer.ApplyParameter(e.ctx, e.units[effectID], paramID, value)
}

// SetBypass toggles an effect between processing and pass-through.
func (e *Engine) SetBypass(effectID string, bypassed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.chain.SetBypass(effectID, bypassed)
	if err != nil {
		return err
	}

	e.syncer.ApplyBypass(e.ctx, e.units[effectID], bypassed)

	return nil
}

// Reorder applies a new chain order, persists it and rewires the live
// graph. While playing the source is restarted at the current position.
func (e *Engine) Reorder(order []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.chain.Reorder(order)
	if err != nil {
		return err
	}

	e.persistOrder()

	playing := e.state == Playing
	if playing {
		e.pause()
	}

	err = e.wire()
	if err != nil {
		return err
	}

	e.log.Debug("chain reordered", "order", order)

	if playing {
		return e.play()
	}

	return nil
}

// ResetAll restores every effect to its defaults, keeping the order.
func (e *Engine) ResetAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.chain.ResetAll()

	err := e.syncer.ApplyAll(e.ctx, e.chain, e.units)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	return nil
}

// Play starts playback from the stored offset. Playing is a no-op.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Playing {
		return nil
	}

	return e.play()
}

func (e *Engine) play() error {
	if e.buf == nil {
		return ErrNoBuffer
	}

	src, err := e.ctx.CreateBufferSource(e.buf)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	err = e.ctx.Connect(src.ID(), e.input.ID())
	if err == nil {
		err = e.wire()
	}

	if err == nil {
		err = e.syncer.ApplyAll(e.ctx, e.chain, e.units)
	}

	if err == nil {
		err = src.Start(e.ctx.CurrentTime(), e.offset)
	}

	if err != nil {
		_ = e.ctx.Remove(src.ID())

		return fmt.Errorf("engine: play: %w", err)
	}

	e.source = src
	e.state = Playing
	e.log.Debug("transport", "state", e.state, "offset", e.offset)

	return nil
}

// Pause stops playback and keeps the position. Only a playing engine
// changes state.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Playing {
		return
	}

	e.pause()
}

func (e *Engine) pause() {
	e.offset = e.playhead()
	e.releaseSource()
	e.state = Paused
	e.log.Debug("transport", "state", e.state, "offset", e.offset)
}

func (e *Engine) releaseSource() {
	if e.source == nil {
		return
	}

	if e.source.Started() {
		_ = e.source.Stop(e.ctx.CurrentTime())
	}

	_ = e.ctx.Remove(e.source.ID())
	e.source = nil
}

// Seek moves the playhead to offset seconds, clamped to the buffer. While
// playing the source is restarted at the new position.
func (e *Engine) Seek(offset float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.buf == nil {
		return ErrNoBuffer
	}

	if math.IsNaN(offset) {
		offset = 0
	}

	offset = math.Max(0, math.Min(offset, e.buf.Duration()))

	if e.state != Playing {
		e.offset = offset

		return nil
	}

	e.releaseSource()
	e.offset = offset

	return e.play()
}

// State returns the transport state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Position returns the playhead in seconds.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.playhead()
}

func (e *Engine) playhead() float64 {
	if e.state == Playing && e.source != nil {
		return math.Min(e.source.Position(), e.buf.Duration())
	}

	return e.offset
}

// Duration returns the loaded buffer length in seconds, or 0.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.buf == nil {
		return 0
	}

	return e.buf.Duration()
}

// Order returns the current chain order.
func (e *Engine) Order() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.chain.Order()
}

// Instances returns the state of every effect in chain order.
func (e *Engine) Instances() []effectchain.InstanceState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.chain.Instances()
}

// Catalog returns the effect catalog.
func (e *Engine) Catalog() *effectchain.Catalog {
	return e.chain.Catalog()
}

// Process renders len(out[0]) frames of live audio into out, one slice
// per output channel, and feeds the analyser. Natural end of playback is
// detected after the block.
func (e *Engine) Process(out [][]float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.process(out)
}

func (e *Engine) process(out [][]float64) error {
	err := e.ctx.Process(out)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if len(out) > 0 {
		e.analyser.WriteMixed(out, len(out[0]))
	}

	if e.state == Playing && e.source != nil && e.source.Ended() {
		e.releaseSource()
		e.offset = 0
		e.state = Stopped
		e.log.Debug("transport", "state", e.state, "reason", "ended")
	}

	return nil
}

// Read fills p with interleaved little-endian float32 frames for the
// configured channel count. Partial frames at the end of p are left
// untouched. Read never returns io.EOF; a stopped engine renders the
// effect tails and then silence.
func (e *Engine) Read(p []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	channels := e.cfg.Channels
	frames := len(p) / (4 * channels)

	if frames == 0 {
		return 0, nil
	}

	if len(e.block) != channels || cap(e.block[0]) < frames {
		e.block = make([][]float64, channels)
		for ch := range e.block {
			e.block[ch] = make([]float64, frames)
		}
	}

	for ch := range e.block {
		e.block[ch] = e.block[ch][:frames]
	}

	err := e.process(e.block)
	if err != nil {
		return 0, err
	}

	pos := 0
	for i := range frames {
		for ch := range channels {
			binary.LittleEndian.PutUint32(p[pos:], math.Float32bits(float32(e.block[ch][i])))
			pos += 4
		}
	}

	return pos, nil
}

var _ io.Reader = (*Engine)(nil)

// MaxBlockFrames bounds a single RenderBlock call.
const MaxBlockFrames = 1 << 16

// RenderBlock renders frames of live audio as interleaved float32
// samples for the configured channel count.
func (e *Engine) RenderBlock(frames int) ([]float32, error) {
	if frames <= 0 || frames > MaxBlockFrames {
		return nil, fmt.Errorf("%w: block of %d frames, want 1..%d",
			effectchain.ErrOutOfRange, frames, MaxBlockFrames)
	}

	block := make([][]float64, e.cfg.Channels)
	for c := range block {
		block[c] = make([]float64, frames)
	}

	err := e.Process(block)
	if err != nil {
		return nil, err
	}

	out := make([]float32, frames*len(block))
	for i := range frames {
		for c, ch := range block {
			out[i*len(block)+c] = float32(ch[i])
		}
	}

	return out, nil
}

// Spectrum fills dst with the smoothed master spectrum in dB, one value per
// bin up to FFTSize/2.
func (e *Engine) Spectrum(dst []float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.analyser.FloatFrequencyData(dst)
}

// Waveform fills dst with the newest master samples.
func (e *Engine) Waveform(dst []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.analyser.FloatTimeDomainData(dst)
}

// Meter returns a level reading over the analyser window.
func (e *Engine) Meter() analysis.Reading {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.analyser.FloatTimeDomainData(e.scratch)

	return e.meter.Update(e.scratch, e.now())
}

// GainReduction returns the live compressor's current gain reduction in
// dB. It reads 0 when the chain has no compressor.
func (e *Engine) GainReduction() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.units[effectchain.EffectCompressor]
	if !ok {
		return 0
	}

	db, _ := u.GainReduction()

	return db
}

// SetMasterGain sets the output level with gain smoothing.
func (e *Engine) SetMasterGain(gain float64) error {
	if math.IsNaN(gain) || gain < 0 {
		return fmt.Errorf("%w: master gain %v", effectchain.ErrOutOfRange, gain)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.syncer.Automation(e.ctx).Gain(e.master.Gain, gain)

	return nil
}
